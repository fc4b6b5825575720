package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/client/store"
	"github.com/frotalog/registro/internal/common/dto"
)

// Engine runs sync cycles against one local store. At most one cycle may be
// in flight; a second caller gets ErrSyncInProgress instead of interleaving
// watermarks.
type Engine struct {
	store  *store.Store
	client *Client
	logger *zap.Logger

	mu sync.Mutex
}

// Result summarizes one successful cycle. Rejected rows are not a cycle
// failure; they stay pending locally and are retried next time.
type Result struct {
	PulledCreated int
	PulledUpdated int
	PulledDeleted int
	PushedRows    int
	RejectedIDs   []string
	Timestamp     int64
}

// New creates a sync engine.
func New(st *store.Store, client *Client, logger *zap.Logger) *Engine {
	return &Engine{
		store:  st,
		client: client,
		logger: logger.Named("engine"),
	}
}

// Sync runs exactly one cycle to completion or failure: pull, merge, push,
// acknowledge, advance watermark. The watermark only advances after the push
// succeeded at transport level, so a failed cycle replays the same delta next
// time; pull application is idempotent, which makes the replay safe.
func (e *Engine) Sync(ctx context.Context, token string) (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	if err := e.client.Ping(ctx); err != nil {
		return nil, err
	}

	watermark, err := e.store.Watermark(ctx)
	if err != nil {
		return nil, err
	}

	pull, err := e.client.Pull(ctx, token, watermark)
	if err != nil {
		return nil, err
	}

	if err := e.store.ApplyPull(ctx, pull.Changes); err != nil {
		return nil, err
	}

	pending, err := e.store.PendingChanges(ctx)
	if err != nil {
		return nil, err
	}

	var lastPulledAt int64
	if watermark != nil {
		lastPulledAt = *watermark
	}
	pushResp, err := e.client.Push(ctx, token, dto.PushRequest{
		Changes:      pending,
		LastPulledAt: lastPulledAt,
	})
	if err != nil {
		// Watermark untouched: the next cycle re-pulls the same delta and
		// re-attempts the same local changes.
		return nil, err
	}

	if err := e.store.MarkSynced(ctx, pending, pushResp.RejectedIDs); err != nil {
		return nil, err
	}

	if err := e.store.SetWatermark(ctx, pull.Timestamp); err != nil {
		return nil, err
	}

	result := &Result{
		RejectedIDs: pushResp.RejectedIDs,
		Timestamp:   pull.Timestamp,
	}
	for _, tc := range pull.Changes {
		result.PulledCreated += len(tc.Created)
		result.PulledUpdated += len(tc.Updated)
		result.PulledDeleted += len(tc.Deleted)
	}
	for _, tc := range pending {
		result.PushedRows += len(tc.Created) + len(tc.Updated) + len(tc.Deleted)
	}

	e.logger.Info("sync cycle complete",
		zap.Int("pulled_created", result.PulledCreated),
		zap.Int("pulled_updated", result.PulledUpdated),
		zap.Int("pushed_rows", result.PushedRows),
		zap.Int("rejected", len(result.RejectedIDs)),
		zap.Int64("timestamp", result.Timestamp))

	return result, nil
}
