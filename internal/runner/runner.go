// Package runner wires one capture run: validate the invocation, load the
// page, classify its requests, download matches and wait for all of them.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/resgrab/internal/api"
	"github.com/dgnsrekt/resgrab/internal/capture"
	"github.com/dgnsrekt/resgrab/internal/cdp"
	"github.com/dgnsrekt/resgrab/internal/config"
	"github.com/dgnsrekt/resgrab/internal/downloader"
	"github.com/dgnsrekt/resgrab/internal/events"
	"github.com/dgnsrekt/resgrab/internal/filter"
	"github.com/dgnsrekt/resgrab/internal/netutil"
	"github.com/dgnsrekt/resgrab/internal/notify"
	"github.com/dgnsrekt/resgrab/internal/storage"
	"github.com/dgnsrekt/resgrab/internal/types"
)

// Invocation is what the operator asked for.
type Invocation struct {
	TargetURL  string
	SearchTerm string
	Verbose    bool
}

// Browser loads a page and reports its requests to the handler it was built
// with. Load returns when the page-load lifecycle ends.
type Browser interface {
	Load(ctx context.Context, targetURL string) error
}

// BrowserFactory builds a Browser that reports requests to handler.
type BrowserFactory func(handler cdp.RequestHandler) Browser

// Launcher starts a local browser before the session attaches to it.
type Launcher interface {
	Launch(ctx context.Context) error
	Stop()
}

// SessionFactory returns the chromedp-backed BrowserFactory for cfg.
func SessionFactory(cfg *config.Config) BrowserFactory {
	return func(handler cdp.RequestHandler) Browser {
		return cdp.NewSession(cdp.Options{
			Remote:          cfg.BrowserMode == config.BrowserModeRemote,
			CDPURL:          cfg.GetCDPURL(),
			Headless:        cfg.Headless,
			UserAgent:       cfg.UserAgent,
			NavigateTimeout: cfg.NavigateTimeout(),
			Settle:          cfg.Settle(),
		}, handler)
	}
}

// Option customizes a Runner.
type Option func(*Runner)

// WithHTTPClient sets the client used for resource downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) { r.client = c }
}

// WithLauncher starts l after the invocation is validated and stops it when
// the run ends.
func WithLauncher(l Launcher) Option {
	return func(r *Runner) { r.launcher = l }
}

// Runner executes capture runs and exposes the live state of the current one.
type Runner struct {
	cfg        *config.Config
	newBrowser BrowserFactory
	client     *http.Client
	launcher   Launcher

	mu      sync.RWMutex
	inv     Invocation
	layout  storage.Layout
	capture *capture.RequestCapture
	tracker *downloader.Tracker
	done    bool
}

func New(cfg *config.Config, newBrowser BrowserFactory, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, newBrowser: newBrowser}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks the invocation and returns the origin that groups its
// downloads.
func (inv Invocation) Validate() (string, error) {
	if strings.TrimSpace(inv.TargetURL) == "" {
		return "", newError(CodeUsage, "target url is required", nil)
	}
	if inv.SearchTerm == "" {
		return "", newError(CodeUsage, "search term is required", nil)
	}
	origin, err := storage.OriginFromTargetURL(inv.TargetURL)
	if err != nil {
		return "", newError(CodeUsage, "target url must be an absolute url", err)
	}
	return origin, nil
}

// Run loads inv.TargetURL, downloads every matching request and returns once
// all scheduled downloads finished. Per-resource failures are reported in the
// summary, not as an error.
func (r *Runner) Run(ctx context.Context, inv Invocation) (types.RunSummary, error) {
	origin, err := inv.Validate()
	if err != nil {
		return types.RunSummary{}, err
	}
	layout, err := storage.NewLayout(r.cfg.OutputRoot, origin, inv.SearchTerm)
	if err != nil {
		return types.RunSummary{}, newError(CodeUsage, "invalid output layout", err)
	}

	exclusions, err := r.loadExclusions()
	if err != nil {
		return types.RunSummary{}, err
	}
	resFilter := filter.New(layout, exclusions...)

	var listeners []downloader.Listener

	if r.cfg.ManifestDir != "" {
		manifest, err := storage.NewJSONLWriter(storage.ManifestPath(r.cfg.ManifestDir, layout, time.Now()), 4096, 25)
		if err != nil {
			return types.RunSummary{}, newError(CodeConfig, "open manifest", err)
		}
		defer func() {
			if err := manifest.Close(); err != nil {
				slog.Warn("Manifest close failed", "error", err)
			}
		}()
		listeners = append(listeners, func(rec types.DownloadRecord) {
			if rec.Status == types.StatusPending {
				return
			}
			if err := manifest.Write(rec); err != nil {
				slog.Warn("Manifest write failed", "id", rec.ID, "error", err)
			}
		})
	}

	var broker *events.Broker
	if r.cfg.StatusAddr != "" {
		broker = events.NewBroker()
		listeners = append(listeners, broker.PublishRecord)
	}

	dl := downloader.New(r.client, downloader.Options{
		UserAgent:       r.cfg.UserAgent,
		FailOnHTTPError: r.cfg.FailOnHTTPError,
	})
	tracker := downloader.NewTracker(dl, listeners...)
	reqCapture := capture.NewRequestCapture(ctx, resFilter, tracker, inv.Verbose)

	r.mu.Lock()
	r.inv = inv
	r.layout = layout
	r.capture = reqCapture
	r.tracker = tracker
	r.done = false
	r.mu.Unlock()

	if broker != nil {
		stop, err := r.serveStatus(broker)
		if err != nil {
			return types.RunSummary{}, err
		}
		defer stop()
	}

	if r.launcher != nil {
		if err := r.launcher.Launch(ctx); err != nil {
			return r.finish(ctx, newError(CodeNavigation, "launch browser", err))
		}
		defer r.launcher.Stop()
	}

	slog.Info("Searching", "url", inv.TargetURL, "search_term", inv.SearchTerm, "directory", layout.Dir(), "exclusions", resFilter.Exclusions())
	if !inv.Verbose {
		slog.Info("Pass 1 as the last argument to show every request that is not downloaded")
	}

	slog.Info("Files containing the search term were requested:", "search_term", inv.SearchTerm)
	loadErr := r.newBrowser(reqCapture).Load(ctx, inv.TargetURL)
	slog.Info("Request observation finished", "observed", reqCapture.Stats().Observed)

	if loadErr != nil {
		loadErr = newError(CodeNavigation, "page load failed", loadErr)
		slog.Error("Page load failed", "url", inv.TargetURL, "error", loadErr)
	}
	return r.finish(ctx, loadErr)
}

// finish waits for outstanding downloads, reports the tally and returns it
// with runErr.
func (r *Runner) finish(ctx context.Context, runErr error) (types.RunSummary, error) {
	r.mu.RLock()
	tracker := r.tracker
	r.mu.RUnlock()

	if inFlight := tracker.Stats().InFlight; inFlight > 0 {
		slog.Info("Waiting for downloads to finish", "in_flight", inFlight)
	}
	if err := tracker.Wait(ctx); err != nil {
		slog.Warn("Stopped waiting for downloads", "in_flight", tracker.Stats().InFlight, "error", err)
		runErr = errors.Join(runErr, err)
	}

	r.mu.Lock()
	r.done = true
	r.mu.Unlock()

	summary := r.Summary(ctx)
	slog.Info("Run finished",
		"observed", summary.Observed,
		"matched", summary.Matched,
		"excluded", summary.Excluded,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"directory", summary.Directory)

	if r.cfg.NTFYEndpoint != "" {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notify.SendSummary(notifyCtx, r.client, r.cfg.NTFYEndpoint, summary); err != nil {
			slog.Warn("Completion notification failed", "endpoint", r.cfg.NTFYEndpoint, "error", err)
		}
	}
	return summary, runErr
}

func (r *Runner) loadExclusions() ([]filter.Exclusion, error) {
	if r.cfg.FilterConfig == "" {
		return nil, nil
	}
	rules, err := config.LoadFilterRules(r.cfg.FilterConfig)
	if err != nil {
		return nil, newError(CodeConfig, "load filter rules", err)
	}
	exclusions := make([]filter.Exclusion, 0, len(rules.Exclusions))
	for _, rule := range rules.Exclusions {
		if rule.Prefix != "" {
			exclusions = append(exclusions, filter.Prefix(rule.Name, rule.Prefix))
			continue
		}
		exclusions = append(exclusions, filter.Contains(rule.Name, rule.Contains))
	}
	return exclusions, nil
}

func (r *Runner) serveStatus(broker *events.Broker) (func(), error) {
	ln, err := netutil.Listen(r.cfg.StatusAddr, r.cfg.StatusFallbackAddrs)
	if err != nil {
		return nil, newError(CodeConfig, "listen on status address", err)
	}
	srv := &http.Server{Handler: api.NewServer(r, broker)}

	go func() {
		slog.Info("Status API listening", "addr", ln.Addr().String(), "docs", "http://"+ln.Addr().String()+"/docs")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Status API failed", "error", err)
		}
	}()

	return func() {
		broker.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("Status API shutdown failed", "error", err)
		}
	}, nil
}

// Summary reports the current run's counters.
func (r *Runner) Summary(_ context.Context) types.RunSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := types.RunSummary{
		TargetURL:  r.inv.TargetURL,
		Origin:     r.layout.Origin,
		SearchTerm: r.inv.SearchTerm,
		Done:       r.done,
	}
	if r.tracker == nil {
		return s
	}
	s.Directory = r.layout.Dir()

	cs := r.capture.Stats()
	s.Observed = cs.Observed
	s.Excluded = cs.Excluded
	s.Rejected = cs.Rejected

	ts := r.tracker.Stats()
	s.Matched = ts.Matched
	s.InFlight = ts.InFlight
	s.Succeeded = ts.Succeeded
	s.Failed = ts.Failed
	return s
}

// Downloads lists every download scheduled by the current run.
func (r *Runner) Downloads(_ context.Context) []types.DownloadRecord {
	r.mu.RLock()
	tracker := r.tracker
	r.mu.RUnlock()
	if tracker == nil {
		return []types.DownloadRecord{}
	}
	return tracker.Records()
}
