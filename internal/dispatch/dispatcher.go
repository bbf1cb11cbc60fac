package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sendbot/internal/schedule"
)

// Submitter sends one message into the channel view. The browser
// session implements it in production.
type Submitter interface {
	Submit(ctx context.Context, text string) error
}

// Recorder persists the outcome of a send attempt. Implemented by
// the history store; optional.
type Recorder interface {
	Record(ctx context.Context, entryIndex int, message, status, errText string) error
}

// Notifier pushes dispatch problems to the operator. Optional.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// minLoopDelay stops a zero-delay entry from hot-spinning the
// browser.
const minLoopDelay = time.Second

// Dispatcher runs one independent repeating send loop per schedule
// entry. Loops share the submitter and stop together when the
// context is cancelled; there is no per-loop stop control.
type Dispatcher struct {
	submitter Submitter
	recorder  Recorder
	notifier  Notifier
	logger    *slog.Logger
}

type Config struct {
	Submitter Submitter
	Recorder  Recorder // may be nil
	Notifier  Notifier // may be nil
	Logger    *slog.Logger
}

func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		submitter: cfg.Submitter,
		recorder:  cfg.Recorder,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
	}
}

// Run starts every loop and blocks until ctx is cancelled and all
// loops have returned. Each loop's first send fires after its own
// delay; a restart restarts every countdown from zero.
func (d *Dispatcher) Run(ctx context.Context, entries []schedule.Entry) {
	d.logger.Info("dispatch started", "entries", len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, e schedule.Entry) {
			defer wg.Done()
			d.runLoop(ctx, idx, e)
		}(i, entry)
	}
	wg.Wait()

	d.logger.Info("dispatch stopped")
}

func (d *Dispatcher) runLoop(ctx context.Context, index int, entry schedule.Entry) {
	delay := time.Duration(entry.DelaySeconds * float64(time.Second))
	if delay <= 0 {
		delay = minLoopDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// A failed send is logged and recorded; the loop keeps its
		// cadence rather than taking the whole process down.
		if err := d.submitter.Submit(ctx, entry.Message); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn("send failed", "entry", index, "message", entry.Message, "err", err)
			d.record(ctx, index, entry.Message, StatusFailed, err.Error())
			d.notify(ctx, "sendbot: send failed for "+entry.Message+": "+err.Error())
		} else {
			d.logger.Info("sent", "entry", index, "message", entry.Message)
			d.record(ctx, index, entry.Message, StatusSent, "")
		}

		timer.Reset(delay)
	}
}

func (d *Dispatcher) record(ctx context.Context, index int, message, status, errText string) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, index, message, status, errText); err != nil {
		d.logger.Warn("cannot record send", "err", err)
	}
}

func (d *Dispatcher) notify(ctx context.Context, text string) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, text); err != nil {
		d.logger.Warn("cannot notify operator", "err", err)
	}
}
