package capture

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/resgrab/internal/filter"
	"github.com/dgnsrekt/resgrab/internal/types"
)

// Scheduler starts a download without blocking the caller.
type Scheduler interface {
	Schedule(ctx context.Context, res filter.MatchedResource) int64
}

// Stats counts classified requests.
type Stats struct {
	Observed int64
	Excluded int64
	Rejected int64
}

// RequestCapture classifies every outbound request of the target page and
// hands matches to the scheduler.
type RequestCapture struct {
	ctx       context.Context
	filter    *filter.ResourceFilter
	scheduler Scheduler
	verbose   bool

	observed atomic.Int64
	excluded atomic.Int64
	rejected atomic.Int64
}

// NewRequestCapture creates a capture whose downloads run under ctx. ctx
// should outlive the browser session so closing the page never cancels them.
func NewRequestCapture(ctx context.Context, f *filter.ResourceFilter, scheduler Scheduler, verbose bool) *RequestCapture {
	return &RequestCapture{
		ctx:       ctx,
		filter:    f,
		scheduler: scheduler,
		verbose:   verbose,
	}
}

// OnRequestWillBeSent adapts a CDP request event.
func (c *RequestCapture) OnRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	if ev == nil || ev.Request == nil {
		return
	}
	c.Observe(types.RequestDescriptor{URL: ev.Request.URL + ev.Request.URLFragment})
}

// Observe classifies one request and schedules its download on a match.
func (c *RequestCapture) Observe(req types.RequestDescriptor) {
	c.observed.Add(1)

	verdict, res := c.filter.Classify(req.URL)
	switch verdict.Reason {
	case filter.ReasonMatched:
		slog.Info("Matched request, downloading",
			"url", truncateURL(res.SourceURL),
			"destination", res.DestinationPath)
		c.scheduler.Schedule(c.ctx, *res)
	case filter.ReasonExcluded:
		c.excluded.Add(1)
		slog.Debug("Request excluded",
			"exclusion", verdict.Exclusion,
			"url", truncateURL(req.URL))
	default:
		c.rejected.Add(1)
		if c.verbose {
			slog.Info("Request does not contain search term, not downloaded",
				"search_term", c.filter.SearchTerm(),
				"url", truncateURL(req.URL))
		} else {
			slog.Debug("Request does not contain search term",
				"url", truncateURL(req.URL))
		}
	}
}

// Stats returns the current counters.
func (c *RequestCapture) Stats() Stats {
	return Stats{
		Observed: c.observed.Load(),
		Excluded: c.excluded.Load(),
		Rejected: c.rejected.Load(),
	}
}
