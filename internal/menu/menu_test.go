package menu

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sendbot/internal/schedule"
)

func newTestController(t *testing.T, script string) (*Controller, *schedule.Store, *bytes.Buffer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := schedule.NewStore(filepath.Join(t.TempDir(), "schedule.json"), logger)
	var out bytes.Buffer
	c := New(Config{
		Store:  store,
		Logger: logger,
		In:     strings.NewReader(script),
		Out:    &out,
	})
	return c, store, &out
}

func TestRun_AddThenStart(t *testing.T) {
	c, store, _ := newTestController(t, "1\nhello\n2\n5\n")
	// Script: add "hello" with delay 2, then start.

	action, entries, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionStart {
		t.Fatalf("expected ActionStart, got %v", action)
	}
	if len(entries) != 1 || entries[0].Message != "hello" || entries[0].DelaySeconds != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if store.Len() != 1 {
		t.Fatalf("store should hold the added entry, got %d", store.Len())
	}
}

func TestRun_Quit(t *testing.T) {
	c, _, _ := newTestController(t, "q\n")
	action, entries, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionQuit || entries != nil {
		t.Fatalf("expected quit with no entries, got %v %+v", action, entries)
	}
}

func TestRun_EOFQuits(t *testing.T) {
	c, _, _ := newTestController(t, "")
	action, _, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionQuit {
		t.Fatalf("expected quit on EOF, got %v", action)
	}
}

func TestRun_EmptyContentReprompts(t *testing.T) {
	// Blank content is rejected, then a valid add succeeds.
	c, store, out := newTestController(t, "1\n\n1\nhi\n3\nq\n")
	action, _, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionQuit {
		t.Fatalf("expected quit, got %v", action)
	}
	if !strings.Contains(out.String(), "Content cannot be empty.") {
		t.Fatal("expected empty-content warning in output")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry after retry, got %d", store.Len())
	}
}

func TestRun_NonNumericDelayReprompts(t *testing.T) {
	c, store, out := newTestController(t, "1\nhi\nabc\n4\nq\n")
	if _, _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Please enter a valid number of seconds.") {
		t.Fatal("expected re-prompt message for bad delay")
	}
	got := store.Entries()
	if len(got) != 1 || got[0].DelaySeconds != 4 {
		t.Fatalf("expected entry with delay 4 after re-prompt, got %+v", got)
	}
}

func TestRun_StartRequiresEntries(t *testing.T) {
	c, _, out := newTestController(t, "5\nq\n")
	action, _, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionQuit {
		t.Fatalf("start on empty schedule should not start, got %v", action)
	}
	if !strings.Contains(out.String(), "Add at least one message before starting.") {
		t.Fatal("expected empty-schedule warning")
	}
}

func TestRun_EditOutOfRangeReprompts(t *testing.T) {
	c, store, out := newTestController(t, "1\nhi\n1\n2\n99\n1\n\n\nq\n")
	// Add one entry, then edit: index 99 is re-prompted, index 1 accepted,
	// blank content and blank delay keep current values.
	if _, _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Please choose a number between 1 and 1.") {
		t.Fatal("expected out-of-range re-prompt")
	}
	got := store.Entries()
	if len(got) != 1 || got[0].Message != "hi" || got[0].DelaySeconds != 1 {
		t.Fatalf("blank edit should keep values, got %+v", got)
	}
}

func TestRun_DeleteEchoesRemoved(t *testing.T) {
	c, store, out := newTestController(t, "1\nbye\n1\n3\n1\nq\n")
	if _, _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Removed: bye") {
		t.Fatal("expected removal echo")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty schedule after delete, got %d", store.Len())
	}
}

func TestRun_InvalidOption(t *testing.T) {
	c, _, out := newTestController(t, "z\nq\n")
	if _, _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Please select a valid option.") {
		t.Fatal("expected invalid-option message")
	}
}

// hookedReader serves scripted lines and runs a callback while a
// given line is being read, before the caller acts on it.
type hookedReader struct {
	lines []string
	idx   int
	hooks map[int]func()
}

func (r *hookedReader) Read(p []byte) (int, error) {
	if r.idx >= len(r.lines) {
		return 0, io.EOF
	}
	n := copy(p, r.lines[r.idx])
	if hook, ok := r.hooks[r.idx]; ok {
		hook()
	}
	r.idx++
	return n, nil
}

func TestRun_EditWhenScheduleShrinksMidPrompt(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := schedule.NewStore(filepath.Join(t.TempDir(), "schedule.json"), logger)
	if err := store.Add("hi", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	// The watcher can empty the store while the operator is answering
	// the index prompt. The index was validated against the old
	// length, so the subsequent read must fail cleanly, not panic.
	in := &hookedReader{
		lines: []string{"2\n", "1\n", "q\n"},
		hooks: map[int]func(){1: store.Clear},
	}
	var out bytes.Buffer
	c := New(Config{Store: store, Logger: logger, In: in, Out: &out})

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("menu loop panicked: %v", r)
		}
	}()
	action, _, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionQuit {
		t.Fatalf("expected quit, got %v", action)
	}
	if !strings.Contains(out.String(), "Cannot edit message:") {
		t.Fatal("expected a reported edit failure after the schedule shrank")
	}
}

func TestRun_StartSavesSchedule(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := schedule.NewStore(filepath.Join(t.TempDir(), "schedule.json"), logger)
	if err := store.Add("hello", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Drop the auto-saved file while the start option is being read,
	// so only the explicit save on start can bring it back.
	in := &hookedReader{
		lines: []string{"5\n"},
		hooks: map[int]func(){0: func() {
			if err := os.Remove(store.Path()); err != nil {
				t.Errorf("remove schedule file: %v", err)
			}
		}},
	}
	var out bytes.Buffer
	c := New(Config{Store: store, Logger: logger, In: in, Out: &out})

	action, entries, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionStart || len(entries) != 1 {
		t.Fatalf("unexpected result: %v %+v", action, entries)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("start should leave the schedule persisted: %v", err)
	}
}

func TestRun_LoadSample(t *testing.T) {
	c, store, _ := newTestController(t, "6\n5\n")
	action, entries, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action != ActionStart {
		t.Fatalf("expected start, got %v", action)
	}
	if len(entries) != len(schedule.SampleEntries()) {
		t.Fatalf("expected sample schedule, got %+v", entries)
	}
	if store.Len() != len(entries) {
		t.Fatal("store and returned snapshot disagree")
	}
}
