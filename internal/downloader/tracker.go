package downloader

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/resgrab/internal/filter"
	"github.com/dgnsrekt/resgrab/internal/types"
)

// Fetcher is the fetch-and-persist primitive the tracker schedules.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destinationPath string) (Result, error)
}

// Listener observes record transitions (pending, then succeeded or failed).
// It is called from download goroutines and must not block.
type Listener func(types.DownloadRecord)

// Stats is a snapshot of tracker counters.
type Stats struct {
	Matched   int64
	InFlight  int64
	Succeeded int64
	Failed    int64
}

// Tracker runs one goroutine per matched resource and keeps a completion
// handle for each so the run can wait for every outstanding download.
type Tracker struct {
	fetcher   Fetcher
	listeners []Listener

	wg     sync.WaitGroup
	nextID atomic.Int64

	inFlight  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	mu      sync.Mutex
	records []*types.DownloadRecord
}

func NewTracker(fetcher Fetcher, listeners ...Listener) *Tracker {
	return &Tracker{fetcher: fetcher, listeners: listeners}
}

// Schedule starts the download of res and returns immediately with its id.
func (t *Tracker) Schedule(ctx context.Context, res filter.MatchedResource) int64 {
	rec := &types.DownloadRecord{
		ID:          t.nextID.Add(1),
		SourceURL:   res.SourceURL,
		FileName:    res.FileName,
		Destination: res.DestinationPath,
		Status:      types.StatusPending,
		StartedAt:   time.Now().UTC(),
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	snapshot := *rec
	t.mu.Unlock()

	t.inFlight.Add(1)
	t.wg.Add(1)
	t.notify(snapshot)

	go t.run(ctx, rec)
	return rec.ID
}

func (t *Tracker) run(ctx context.Context, rec *types.DownloadRecord) {
	defer t.wg.Done()
	defer t.inFlight.Add(-1)

	result, err := t.fetcher.Fetch(ctx, rec.SourceURL, rec.Destination)

	t.mu.Lock()
	rec.FinishedAt = time.Now().UTC()
	rec.StatusCode = result.StatusCode
	rec.Bytes = result.Bytes
	if err != nil {
		rec.Status = types.StatusFailed
		rec.ErrorCode = ErrorCode(err)
		rec.Error = err.Error()
	} else {
		rec.Status = types.StatusSucceeded
	}
	snapshot := *rec
	t.mu.Unlock()

	if err != nil {
		t.failed.Add(1)
		slog.Error("Download failed",
			"id", snapshot.ID,
			"url", snapshot.SourceURL,
			"destination", snapshot.Destination,
			"code", snapshot.ErrorCode,
			"error", err)
	} else {
		t.succeeded.Add(1)
		slog.Info("Download complete",
			"id", snapshot.ID,
			"destination", snapshot.Destination,
			"status", snapshot.StatusCode,
			"bytes", snapshot.Bytes,
			"duration_ms", snapshot.FinishedAt.Sub(snapshot.StartedAt).Milliseconds())
	}
	t.notify(snapshot)
}

func (t *Tracker) notify(rec types.DownloadRecord) {
	for _, l := range t.listeners {
		l(rec)
	}
}

// Wait blocks until every scheduled download has finished or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Matched:   t.nextID.Load(),
		InFlight:  t.inFlight.Load(),
		Succeeded: t.succeeded.Load(),
		Failed:    t.failed.Load(),
	}
}

// Records returns copies of all records in scheduling order.
func (t *Tracker) Records() []types.DownloadRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.DownloadRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	return out
}
