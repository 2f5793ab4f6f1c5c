package core

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	lg.SetLevel(logrus.PanicLevel)
	return lg
}

func TestPoolWatcher_DedupesRepeatedRequest(t *testing.T) {
	pool := NewMemoryPool(3)
	req := DecryptionRequest{Filename: Filename("f"), WitnessHex: "ab", Location: Location{Address: "addr"}}
	if _, err := pool.Submit(context.Background(), req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Submitting the identical request a second time is rejected by the
	// pool itself (spec invariant: add is unique by id), so the duplicate
	// the watcher must dedup against is the pool returning the same
	// still-pending entry across repeated polls.

	watcher := NewPoolWatcher(pool, discardLogger())
	out := make(chan DecryptionRequest, 16)
	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	go watcher.Watch(ctx, out)
	<-ctx.Done()
	watcher.Stop()
	close(out)

	count := 0
	for range out {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 dispatch across repeated polls, got %d", count)
	}
}
