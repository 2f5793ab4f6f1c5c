package core

// PoolWatcher polls a RequestPool for new DecryptionRequests and
// dispatches each one exactly once to a handler channel.
//
// Grounded on original_source/fangorn/src/pool/watcher.rs's
// PollingWatcher: a 100ms poll loop, a seen-ID set, and an atomic
// running flag, kept as an atomic bool alongside Go's context
// cancellation.

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const pollInterval = 100 * time.Millisecond

// PoolWatcher polls a RequestPool and dispatches unseen requests.
type PoolWatcher struct {
	pool    RequestPool
	logger  *logrus.Logger
	running atomic.Bool
	seen    map[[32]byte]struct{}
}

// NewPoolWatcher constructs a watcher over the given pool.
func NewPoolWatcher(pool RequestPool, lg *logrus.Logger) *PoolWatcher {
	return &PoolWatcher{pool: pool, logger: lg, seen: make(map[[32]byte]struct{})}
}

// listable is implemented by pools that can enumerate their current
// contents; MemoryPool and any production pool wired to an indexing
// node should satisfy it for the watcher to have anything to poll.
type listable interface {
	ListPending(ctx context.Context) ([]DecryptionRequest, error)
}

// Watch polls until ctx is cancelled or Stop is called, sending each
// newly-observed request to out.
func (w *PoolWatcher) Watch(ctx context.Context, out chan<- DecryptionRequest) {
	w.running.Store(true)
	lp, ok := w.pool.(listable)
	if !ok {
		w.logger.Warn("pool watcher: pool does not support listing, watcher is a no-op")
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for w.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reqs, err := lp.ListPending(ctx)
			if err != nil {
				w.logger.Warnf("pool watcher: list pending: %v", err)
				continue
			}
			for _, req := range reqs {
				id := req.ID()
				if _, seen := w.seen[id]; seen {
					continue
				}
				w.seen[id] = struct{}{}
				zap.L().Sugar().Debugw("pool watcher: dispatching request", "request_id", fmt.Sprintf("%x", id))
				select {
				case out <- req:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Stop halts the poll loop after the current iteration.
func (w *PoolWatcher) Stop() {
	w.running.Store(false)
}
