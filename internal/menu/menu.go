package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"sendbot/internal/schedule"
)

// Action is the operator's final choice when the menu loop ends.
type Action int

const (
	ActionQuit Action = iota
	ActionStart
)

// Controller is the interactive schedule editor: a blocking
// read-eval loop over stdin/stdout bound to the schedule store.
type Controller struct {
	store   *schedule.Store
	logger  *slog.Logger
	scanner *bufio.Scanner
	out     io.Writer
}

type Config struct {
	Store  *schedule.Store
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func New(cfg Config) *Controller {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Controller{
		store:   cfg.Store,
		logger:  cfg.Logger,
		scanner: bufio.NewScanner(cfg.In),
		out:     cfg.Out,
	}
}

// Run drives the menu until the operator picks start or quit. It
// returns the finalized schedule snapshot on start; the schedule is
// immutable for that run from the caller's point of view. EOF and
// context cancellation both end the loop as quit.
func (c *Controller) Run(ctx context.Context) (Action, []schedule.Entry, error) {
	for {
		select {
		case <-ctx.Done():
			return ActionQuit, nil, nil
		default:
		}

		c.describeSchedule()
		fmt.Fprintln(c.out, "Menu:")
		fmt.Fprintln(c.out, "  1) Add a message")
		fmt.Fprintln(c.out, "  2) Edit a message")
		fmt.Fprintln(c.out, "  3) Delete a message")
		fmt.Fprintln(c.out, "  4) Clear all messages")
		fmt.Fprintln(c.out, "  5) Start sending (save first)")
		fmt.Fprintln(c.out, "  6) Load sample schedule")
		fmt.Fprintln(c.out, "  q) Quit without sending")

		choice, ok := c.prompt("Select an option: ")
		if !ok {
			return ActionQuit, nil, c.scanner.Err()
		}

		switch strings.ToLower(choice) {
		case "1":
			c.addMessage()
		case "2":
			c.editMessage()
		case "3":
			c.deleteMessage()
		case "4":
			c.store.Clear()
			fmt.Fprintln(c.out, "Cleared schedule.")
			fmt.Fprintln(c.out)
		case "5":
			entries := c.store.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(c.out, "Add at least one message before starting.")
				fmt.Fprintln(c.out)
				continue
			}
			c.store.Save()
			fmt.Fprintln(c.out, "Saved schedule. Starting...")
			fmt.Fprintln(c.out)
			return ActionStart, entries, nil
		case "6":
			c.store.LoadSample()
			fmt.Fprintln(c.out, "Loaded sample schedule.")
			fmt.Fprintln(c.out)
		case "q":
			c.logger.Info("operator quit without sending")
			return ActionQuit, nil, nil
		default:
			fmt.Fprintln(c.out, "Please select a valid option.")
			fmt.Fprintln(c.out)
		}
	}
}

func (c *Controller) describeSchedule() {
	entries := c.store.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "(no scheduled messages yet)")
		fmt.Fprintln(c.out)
		return
	}
	fmt.Fprintln(c.out, "Current schedule:")
	for i, e := range entries {
		fmt.Fprintf(c.out, "  %d. send every %g seconds: %s\n", i+1, e.DelaySeconds, e.Message)
	}
	fmt.Fprintln(c.out)
}

func (c *Controller) addMessage() {
	content, ok := c.prompt("Message content: ")
	if !ok {
		return
	}
	if content == "" {
		fmt.Fprintln(c.out, "Content cannot be empty.")
		fmt.Fprintln(c.out)
		return
	}
	delay, ok := c.promptFloat("Delay (seconds) before sending this message: ", false)
	if !ok || delay == nil {
		return
	}
	if err := c.store.Add(content, *delay); err != nil {
		fmt.Fprintf(c.out, "Cannot add message: %v\n\n", err)
		return
	}
	fmt.Fprintln(c.out, "Saved.")
	fmt.Fprintln(c.out)
}

func (c *Controller) editMessage() {
	index, ok := c.promptIndex("edit")
	if !ok {
		return
	}
	// Re-fetch under the store's lock: the schedule watcher may have
	// shrunk the list while the operator was answering the prompt.
	current, err := c.store.Get(index)
	if err != nil {
		fmt.Fprintf(c.out, "Cannot edit message: %v\n\n", err)
		return
	}

	newContent, ok := c.prompt(fmt.Sprintf("New content (leave blank to keep %q): ", current.Message))
	if !ok {
		return
	}
	newDelay, ok := c.promptFloat(
		fmt.Sprintf("New delay in seconds (current %g, blank to keep): ", current.DelaySeconds), true)
	if !ok {
		return
	}

	var textPtr *string
	if newContent != "" {
		textPtr = &newContent
	}
	if err := c.store.Edit(index, textPtr, newDelay); err != nil {
		fmt.Fprintf(c.out, "Cannot edit message: %v\n\n", err)
		return
	}
	fmt.Fprintln(c.out, "Updated.")
	fmt.Fprintln(c.out)
}

func (c *Controller) deleteMessage() {
	index, ok := c.promptIndex("delete")
	if !ok {
		return
	}
	removed, err := c.store.Delete(index)
	if err != nil {
		fmt.Fprintf(c.out, "Cannot delete message: %v\n\n", err)
		return
	}
	fmt.Fprintf(c.out, "Removed: %s\n\n", removed.Message)
}

// prompt reads one trimmed line. ok is false on EOF.
func (c *Controller) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.scanner.Text()), true
}

// promptFloat re-prompts until it reads a valid non-negative number.
// With allowEmpty, a blank line returns (nil, true).
func (c *Controller) promptFloat(label string, allowEmpty bool) (*float64, bool) {
	for {
		raw, ok := c.prompt(label)
		if !ok {
			return nil, false
		}
		if allowEmpty && raw == "" {
			return nil, true
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			fmt.Fprintln(c.out, "Please enter a valid number of seconds.")
			continue
		}
		return &v, true
	}
}

// promptIndex asks for a 1-based entry number and returns the 0-based
// index. ok is false when there are no entries or on EOF.
func (c *Controller) promptIndex(action string) (int, bool) {
	max := c.store.Len()
	if max == 0 {
		fmt.Fprintln(c.out, "No messages to modify.")
		fmt.Fprintln(c.out)
		return 0, false
	}
	for {
		raw, ok := c.prompt(fmt.Sprintf("Choose which message to %s (1-%d): ", action, max))
		if !ok {
			return 0, false
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintln(c.out, "Please enter a valid number.")
			continue
		}
		if v < 1 || v > max {
			fmt.Fprintf(c.out, "Please choose a number between 1 and %d.\n", max)
			continue
		}
		return v - 1, true
	}
}
