package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// RequestHandler receives every outbound request event of the loaded page.
// It is called on the CDP event loop and must not block.
type RequestHandler interface {
	OnRequestWillBeSent(ev *network.EventRequestWillBeSent)
}

// Options configures a browser session.
type Options struct {
	// Remote attaches to an already running browser at CDPURL instead of
	// starting one.
	Remote   bool
	CDPURL   string
	Headless bool

	UserAgent       string
	NavigateTimeout time.Duration
	Settle          time.Duration
}

// Session loads one page in a fresh tab and streams its requests to a handler.
type Session struct {
	opts    Options
	handler RequestHandler
}

func NewSession(opts Options, handler RequestHandler) *Session {
	return &Session{opts: opts, handler: handler}
}

func (s *Session) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Remote {
		slog.Info("Connecting to Chromium", "url", s.opts.CDPURL)
		return chromedp.NewRemoteAllocator(ctx, s.opts.CDPURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if s.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.opts.UserAgent))
	}
	slog.Info("Starting Chromium", "headless", s.opts.Headless)
	return chromedp.NewExecAllocator(ctx, opts...)
}

// Load opens targetURL and returns once the load event fired and the settle
// window elapsed. The tab is closed before returning.
func (s *Session) Load(ctx context.Context, targetURL string) error {
	allocCtx, allocCancel := s.allocator(ctx)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer func() {
		tabCancel()
		slog.Info("Page is closed", "url", truncateURL(targetURL))
	}()

	chromedp.ListenTarget(tabCtx, s.createEventHandler())

	if err := chromedp.Run(tabCtx, network.Enable(), network.SetCacheDisabled(true), page.Enable()); err != nil {
		return fmt.Errorf("failed to enable network/page domains: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(tabCtx, s.opts.NavigateTimeout)
	defer navCancel()

	var actions []chromedp.Action
	if s.opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(s.opts.UserAgent))
	}
	actions = append(actions, chromedp.Navigate(targetURL))

	if err := chromedp.Run(navCtx, actions...); err != nil {
		return fmt.Errorf("navigate to %s: %w", targetURL, err)
	}
	slog.Info("Page loaded", "url", truncateURL(targetURL))

	if s.opts.Settle > 0 {
		slog.Debug("Observing requests after load", "settle", s.opts.Settle)
		select {
		case <-time.After(s.opts.Settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Session) createEventHandler() func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.handler.OnRequestWillBeSent(e)
		case *network.EventLoadingFailed:
			slog.Debug("Browser request failed", "request_id", e.RequestID, "error", e.ErrorText)
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				slog.Debug("Frame navigated", "url", truncateURL(e.Frame.URL))
			}
		}
	}
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
