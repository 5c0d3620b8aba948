package downloader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/resgrab/internal/filter"
	"github.com/dgnsrekt/resgrab/internal/types"
)

type fakeFetcher struct {
	release chan struct{}
	fail    map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL, destinationPath string) (Result, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if err, ok := f.fail[sourceURL]; ok {
		return Result{}, err
	}
	return Result{StatusCode: 200, Bytes: int64(len(sourceURL))}, nil
}

func TestTrackerWaitsForAllDownloads(t *testing.T) {
	fetcher := &fakeFetcher{
		release: make(chan struct{}),
		fail: map[string]error{
			"https://cdn.example.com/bad.css": newError(CodeTransport, "request failed", errors.New("connection reset")),
		},
	}

	var mu sync.Mutex
	var events []types.DownloadRecord
	tracker := NewTracker(fetcher, func(rec types.DownloadRecord) {
		mu.Lock()
		events = append(events, rec)
		mu.Unlock()
	})

	urls := []string{
		"https://cdn.example.com/a.css",
		"https://cdn.example.com/bad.css",
		"https://cdn.example.com/b.css",
	}
	for _, u := range urls {
		tracker.Schedule(context.Background(), filter.MatchedResource{SourceURL: u, FileName: u[strings.LastIndex(u, "/")+1:], DestinationPath: "unused"})
	}

	if got := tracker.Stats(); got.Matched != 3 || got.InFlight != 3 {
		t.Fatalf("Stats() before release = %+v; want 3 matched, 3 in flight", got)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tracker.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() with blocked downloads = %v; want deadline exceeded", err)
	}

	close(fetcher.release)
	if err := tracker.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	stats := tracker.Stats()
	if stats.Succeeded != 2 || stats.Failed != 1 || stats.InFlight != 0 {
		t.Fatalf("Stats() = %+v; want 2 succeeded, 1 failed, 0 in flight", stats)
	}

	records := tracker.Records()
	if len(records) != 3 {
		t.Fatalf("len(Records()) = %d; want 3", len(records))
	}
	for i, rec := range records {
		if rec.ID != int64(i+1) {
			t.Fatalf("records[%d].ID = %d; want %d", i, rec.ID, i+1)
		}
		if rec.SourceURL == "https://cdn.example.com/bad.css" {
			if rec.Status != types.StatusFailed || rec.ErrorCode != CodeTransport {
				t.Fatalf("bad.css record = %+v; want failed transport", rec)
			}
			if !strings.Contains(rec.Error, "connection reset") {
				t.Fatalf("bad.css error = %q; want underlying message", rec.Error)
			}
			continue
		}
		if rec.Status != types.StatusSucceeded {
			t.Fatalf("record %s status = %q; want succeeded", rec.SourceURL, rec.Status)
		}
		if rec.FinishedAt.IsZero() {
			t.Fatalf("record %s has no finish time", rec.SourceURL)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 6 {
		t.Fatalf("listener events = %d; want 6 (pending + final per download)", len(events))
	}
}

func TestTrackerWaitWithNothingScheduled(t *testing.T) {
	tracker := NewTracker(&fakeFetcher{})
	if err := tracker.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := tracker.Stats(); got != (Stats{}) {
		t.Fatalf("Stats() = %+v; want zero", got)
	}
}
