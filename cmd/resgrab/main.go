package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgnsrekt/resgrab/internal/browser"
	"github.com/dgnsrekt/resgrab/internal/config"
	"github.com/dgnsrekt/resgrab/internal/runner"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	missingURLMessage  = "Please enter a url as the first parameter. e.g. https://imgur.com"
	missingTermMessage = "Please enter a file Name Search Term as the 2nd parameter. e.g. css, js, bootstrap or jquery"
)

var errUsage = errors.New("usage")

func main() {
	inv, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Debug("config loaded",
		"output_root", cfg.OutputRoot,
		"browser_mode", cfg.BrowserMode,
		"headless", cfg.Headless,
		"cdp_url", cfg.GetCDPURL(),
		"navigate_timeout_ms", cfg.NavigateTimeoutMS,
		"settle_ms", cfg.SettleMS,
		"fail_on_http_error", cfg.FailOnHTTPError,
		"filter_config", cfg.FilterConfig,
		"manifest_dir", cfg.ManifestDir,
		"status_addr", cfg.StatusAddr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []runner.Option
	if cfg.BrowserMode == config.BrowserModeRemote && cfg.LaunchBrowser {
		opts = append(opts, runner.WithLauncher(browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			ProfileDir: cfg.ProfileDir,
			Headless:   cfg.Headless,
			UserAgent:  cfg.UserAgent,
		})))
	}

	r := runner.New(cfg, runner.SessionFactory(cfg), opts...)
	if _, err := r.Run(ctx, inv); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// parseArgs reads `[-v] <targetURL> <searchTerm> [showRejects]`. A trailing
// "1" or "true" behaves like -v.
func parseArgs(args []string, stderr io.Writer) (runner.Invocation, error) {
	fs := flag.NewFlagSet("resgrab", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "log every request that is not downloaded")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: resgrab [-v] <targetURL> <searchTerm> [showRejects]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return runner.Invocation{}, err
	}

	rest := fs.Args()
	if len(rest) < 1 || rest[0] == "" {
		fmt.Fprintln(stderr, missingURLMessage)
		return runner.Invocation{}, errUsage
	}
	if len(rest) < 2 || rest[1] == "" {
		fmt.Fprintln(stderr, missingTermMessage)
		return runner.Invocation{}, errUsage
	}

	inv := runner.Invocation{
		TargetURL:  rest[0],
		SearchTerm: rest[1],
		Verbose:    *verbose,
	}
	if len(rest) > 2 && (rest[2] == "1" || rest[2] == "true") {
		inv.Verbose = true
	}
	return inv, nil
}

func exitCode(err error) int {
	var runErr *runner.Error
	if errors.As(err, &runErr) && runErr.Code == runner.CodeUsage {
		return 2
	}
	return 1
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
