package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/whalewatch/dashboard/internal/store"
	"go.uber.org/zap"
)

// SnapshotPaths are the read endpoints of one poll, in Snapshot field order.
var SnapshotPaths = []string{
	PathWhales,
	PathHistory,
	PathConfig,
	PathOpportunities,
	PathWhitelist,
	PathSignals,
}

// FetchBatchError reports the endpoint that sank a batch.
type FetchBatchError struct {
	Endpoint string
	Err      error
}

func (e *FetchBatchError) Error() string {
	return fmt.Sprintf("fetch batch failed at %s: %v", e.Endpoint, e.Err)
}

func (e *FetchBatchError) Unwrap() error {
	return e.Err
}

// Getter fetches one JSON document.
type Getter interface {
	GetRaw(ctx context.Context, path string) (json.RawMessage, error)
}

// FetchBatch issues every GET concurrently and returns the bodies in the
// order of paths. The first failure cancels the rest and no partial result
// is returned.
func FetchBatch(ctx context.Context, getter Getter, paths []string) ([]json.RawMessage, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]json.RawMessage, len(paths))

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failure  *FetchBatchError
	)

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			body, err := getter.GetRaw(ctx, path)
			if err != nil {
				failOnce.Do(func() {
					failure = &FetchBatchError{Endpoint: path, Err: err}
					cancel()
				})
				return
			}
			results[i] = body
		}(i, path)
	}

	wg.Wait()

	if failure != nil {
		return nil, failure
	}
	return results, nil
}

// Fetcher turns one batch into a typed snapshot.
type Fetcher struct {
	logger *zap.Logger
	getter Getter
	now    func() time.Time
}

// NewFetcher creates a Fetcher over the given getter.
func NewFetcher(logger *zap.Logger, getter Getter) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		logger: logger,
		getter: getter,
		now:    time.Now,
	}
}

// FetchSnapshot polls every read endpoint. A body that does not decode into
// its model fails the batch like a transport error does.
func (f *Fetcher) FetchSnapshot(ctx context.Context) (*store.Snapshot, error) {
	start := f.now()

	bodies, err := FetchBatch(ctx, f.getter, SnapshotPaths)
	if err != nil {
		return nil, err
	}

	snap := &store.Snapshot{}
	targets := []any{
		&snap.Whales,
		&snap.History,
		&snap.Config,
		&snap.Opportunities,
		&snap.Whitelist,
		&snap.Signals,
	}

	for i, body := range bodies {
		if err := json.Unmarshal(body, targets[i]); err != nil {
			return nil, &FetchBatchError{Endpoint: SnapshotPaths[i], Err: fmt.Errorf("decode failed: %w", err)}
		}
	}

	snap.FetchedAt = f.now()
	f.logger.Debug("snapshot_fetched",
		zap.Int("whales", len(snap.Whales)),
		zap.Int("positions", len(snap.History.Positions)),
		zap.Int("signals", len(snap.Signals)),
		zap.Duration("took", snap.FetchedAt.Sub(start)),
	)

	return snap, nil
}
