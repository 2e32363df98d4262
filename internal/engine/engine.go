// Package engine drives the fetch, build and publish loop.
//
// Timer ticks that arrive while a cycle is in flight are dropped. Forced
// refreshes (after a mutation, a change feed nudge or a key press) that
// arrive while busy are coalesced into exactly one follow-up cycle. The
// published RenderModel is only ever replaced by a complete build.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/whalewatch/dashboard/internal/metrics"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// DefaultInterval is the poll period.
const DefaultInterval = 5 * time.Second

// SnapshotFetcher produces one complete snapshot or an error.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*store.Snapshot, error)
}

// Sink receives every newly published model.
type Sink func(model *viewmodel.RenderModel)

// Engine owns the current RenderModel.
type Engine struct {
	logger   *zap.Logger
	fetcher  SnapshotFetcher
	signals  *signals.Store
	tracker  *metrics.MetricsTracker
	opts     viewmodel.Options
	interval time.Duration

	current  atomic.Pointer[viewmodel.RenderModel]
	snapshot atomic.Pointer[store.Snapshot]

	// publishMu serializes build, swap and notify. Sinks therefore see
	// models in the same order as Current.
	publishMu sync.Mutex

	forced chan struct{}

	sinksMu sync.RWMutex
	sinks   []Sink
}

// New creates an engine. A nil tracker gets a private one.
func New(logger *zap.Logger, fetcher SnapshotFetcher, filter *signals.Store, tracker *metrics.MetricsTracker, opts viewmodel.Options, interval time.Duration) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = metrics.NewMetricsTracker()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		logger:   logger,
		fetcher:  fetcher,
		signals:  filter,
		tracker:  tracker,
		opts:     opts,
		interval: interval,
		forced:   make(chan struct{}, 1),
	}
}

// Subscribe registers a sink. Sinks run under the publish lock, so they must
// return promptly and must not call back into the engine.
func (e *Engine) Subscribe(s Sink) {
	e.sinksMu.Lock()
	defer e.sinksMu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Current returns the last published model, or nil before the first success.
func (e *Engine) Current() *viewmodel.RenderModel {
	return e.current.Load()
}

// Refresh requests a forced cycle. It never blocks; requests made while one
// is already pending are merged.
func (e *Engine) Refresh(_ context.Context) {
	select {
	case e.forced <- struct{}{}:
	default:
	}
}

// Run polls until ctx ends. The first cycle starts immediately.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("engine_started", zap.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	done := make(chan struct{}, 1)
	busy, pending := false, false
	start := func(reason string) {
		busy = true
		go func() {
			e.RunCycle(ctx, reason)
			done <- struct{}{}
		}()
	}

	start("initial")
	for {
		select {
		case <-ctx.Done():
			if busy {
				<-done
			}
			e.logger.Info("engine_stopped")
			return
		case <-ticker.C:
			if busy {
				e.tracker.IncrementSkipped()
				e.logger.Debug("tick_skipped", zap.String("reason", "cycle in flight"))
				continue
			}
			start("tick")
		case <-e.forced:
			if busy {
				if !pending {
					pending = true
					e.tracker.IncrementQueued()
				}
				continue
			}
			start("forced")
		case <-done:
			busy = false
			if pending {
				pending = false
				start("queued")
			}
		}
	}
}

// RunCycle fetches one snapshot and publishes it. On failure the current
// model is left untouched and the error is returned for callers that care.
func (e *Engine) RunCycle(ctx context.Context, reason string) error {
	began := time.Now()
	snap, err := e.fetcher.FetchSnapshot(ctx)
	elapsed := time.Since(began)
	e.tracker.RecordCycle(elapsed, err)

	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		e.logger.Warn("snapshot_cycle_failed",
			zap.String("reason", reason),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return err
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.signals.Replace(snap.Signals)
	model := e.build(snap)
	e.snapshot.Store(snap)
	e.current.Store(model)

	e.logger.Debug("snapshot_cycle_completed",
		zap.String("reason", reason),
		zap.Duration("elapsed", elapsed),
		zap.Int("whales", model.Stats.TotalWhales),
		zap.Int("signals", len(model.Signals.Rows)),
	)
	e.notify(model)
	return nil
}

// Refilter republishes the current model with the signal view recomputed
// from the store's thresholds. No request is made. It returns nil before the
// first successful cycle.
func (e *Engine) Refilter() *viewmodel.RenderModel {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	prev := e.current.Load()
	snap := e.snapshot.Load()
	if prev == nil || snap == nil {
		return nil
	}

	next := *prev
	next.Signals = viewmodel.BuildSignals(e.signals.Apply(), len(snap.Signals), e.signals.Thresholds(), e.opts.MarketURLBase)
	e.current.Store(&next)
	e.notify(&next)
	return &next
}

// Tracker exposes the metrics tracker for status panels.
func (e *Engine) Tracker() *metrics.MetricsTracker {
	return e.tracker
}

func (e *Engine) build(snap *store.Snapshot) *viewmodel.RenderModel {
	in := viewmodel.InputFromSnapshot(snap, e.signals.Apply(), e.signals.Thresholds())
	return viewmodel.Build(in, e.opts)
}

func (e *Engine) notify(model *viewmodel.RenderModel) {
	e.sinksMu.RLock()
	sinks := append([]Sink(nil), e.sinks...)
	e.sinksMu.RUnlock()

	for _, s := range sinks {
		s(model)
	}
}
