package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"RESGRAB_OUTPUT_ROOT", "RESGRAB_BROWSER_MODE", "RESGRAB_USER_AGENT",
		"RESGRAB_FAIL_ON_HTTP_ERROR", "RESGRAB_NAVIGATE_TIMEOUT_MS", "RESGRAB_STATUS_ADDR",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OutputRoot != "./files" {
		t.Fatalf("OutputRoot = %q; want %q", cfg.OutputRoot, "./files")
	}
	if cfg.BrowserMode != BrowserModeExec {
		t.Fatalf("BrowserMode = %q; want %q", cfg.BrowserMode, BrowserModeExec)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Fatalf("UserAgent = %q; want default", cfg.UserAgent)
	}
	if cfg.FailOnHTTPError {
		t.Fatal("FailOnHTTPError = true; want false")
	}
	if cfg.StatusAddr != "" {
		t.Fatalf("StatusAddr = %q; want disabled", cfg.StatusAddr)
	}
	if got, want := cfg.NavigateTimeout(), time.Minute; got != want {
		t.Fatalf("NavigateTimeout() = %v; want %v", got, want)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RESGRAB_OUTPUT_ROOT", "/tmp/grab")
	t.Setenv("RESGRAB_BROWSER_MODE", "REMOTE")
	t.Setenv("CHROMIUM_CDP_PORT", "9333")
	t.Setenv("RESGRAB_FAIL_ON_HTTP_ERROR", "true")
	t.Setenv("RESGRAB_NAVIGATE_TIMEOUT_MS", "10")
	t.Setenv("RESGRAB_SETTLE_MS", "-5")
	t.Setenv("RESGRAB_MANIFEST_DIR", "off")
	t.Setenv("RESGRAB_STATUS_FALLBACK_ADDRS", " 127.0.0.1:8181, ,127.0.0.1:8182")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OutputRoot != "/tmp/grab" {
		t.Fatalf("OutputRoot = %q; want /tmp/grab", cfg.OutputRoot)
	}
	if cfg.BrowserMode != BrowserModeRemote {
		t.Fatalf("BrowserMode = %q; want %q", cfg.BrowserMode, BrowserModeRemote)
	}
	if got, want := cfg.GetCDPURL(), "http://127.0.0.1:9333"; got != want {
		t.Fatalf("GetCDPURL() = %q; want %q", got, want)
	}
	if !cfg.FailOnHTTPError {
		t.Fatal("FailOnHTTPError = false; want true")
	}
	if cfg.NavigateTimeoutMS != 1000 {
		t.Fatalf("NavigateTimeoutMS = %d; want clamped to 1000", cfg.NavigateTimeoutMS)
	}
	if cfg.Settle() != 0 {
		t.Fatalf("Settle() = %v; want 0", cfg.Settle())
	}
	if cfg.ManifestDir != "" {
		t.Fatalf("ManifestDir = %q; want disabled", cfg.ManifestDir)
	}
	if got := strings.Join(cfg.StatusFallbackAddrs, "|"); got != "127.0.0.1:8181|127.0.0.1:8182" {
		t.Fatalf("StatusFallbackAddrs = %v", cfg.StatusFallbackAddrs)
	}
}

func TestLoadRejectsUnknownBrowserMode(t *testing.T) {
	t.Setenv("RESGRAB_BROWSER_MODE", "firefox")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil; want error")
	}
}

func TestLoadFilterRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.yaml")
	body := `exclusions:
  - name: blob
    prefix: "blob:"
  - name: tracking
    contains: pixel
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	rules, err := LoadFilterRules(path)
	if err != nil {
		t.Fatalf("LoadFilterRules() error = %v", err)
	}
	if len(rules.Exclusions) != 2 {
		t.Fatalf("len(Exclusions) = %d; want 2", len(rules.Exclusions))
	}
	if rules.Exclusions[0].Prefix != "blob:" || rules.Exclusions[1].Contains != "pixel" {
		t.Fatalf("Exclusions = %+v", rules.Exclusions)
	}
}

func TestLoadFilterRulesValidation(t *testing.T) {
	tests := map[string]string{
		"missing_name": "exclusions:\n  - contains: x\n",
		"both_set":     "exclusions:\n  - name: a\n    contains: x\n    prefix: y\n",
		"neither_set":  "exclusions:\n  - name: a\n",
		"bad_yaml":     "exclusions: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "filter.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("os.WriteFile() error = %v", err)
			}
			_, err := LoadFilterRules(path)
			if err == nil {
				t.Fatal("LoadFilterRules() = nil; want error")
			}
			if !strings.HasPrefix(err.Error(), "filter rules:") {
				t.Fatalf("error = %q; want filter rules prefix", err)
			}
		})
	}
}

func TestLoadFilterRulesMissingFile(t *testing.T) {
	_, err := LoadFilterRules(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadFilterRules() error = %v; want os.ErrNotExist", err)
	}
}
