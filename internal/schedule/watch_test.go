package schedule

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_ReloadsExternalEdit(t *testing.T) {
	s := newTestStore(t)
	_ = s.Add("original", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher a moment to register before editing.
	time.Sleep(100 * time.Millisecond)

	edited := `[{"message": "edited externally", "delay": 3}]`
	if err := os.WriteFile(s.Path(), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		entries := s.Entries()
		if len(entries) == 1 && entries[0].Message == "edited externally" {
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch: %v", err)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("external edit was never picked up")
}

func TestWatch_KeepsMemoryOnCorruptEdit(t *testing.T) {
	s := newTestStore(t)
	_ = s.Add("keep me", 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(s.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Wait past the debounce window, then confirm the in-memory
	// schedule survived.
	time.Sleep(600 * time.Millisecond)
	entries := s.Entries()
	if len(entries) != 1 || entries[0].Message != "keep me" {
		t.Fatalf("corrupt edit clobbered the schedule: %+v", entries)
	}
}
