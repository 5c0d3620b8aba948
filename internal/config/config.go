package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserAgent is the desktop browser the session pretends to be.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/104.0.0.0 Safari/537.24601"

const (
	BrowserModeExec   = "exec"
	BrowserModeRemote = "remote"
)

// Config holds all configuration for a capture run.
type Config struct {
	// Storage settings
	OutputRoot  string
	ManifestDir string

	// Browser session
	BrowserMode       string
	Headless          bool
	UserAgent         string
	CDPAddress        string
	CDPPort           int
	LaunchBrowser     bool
	ProfileDir        string
	NavigateTimeoutMS int
	SettleMS          int

	// Download policy
	FailOnHTTPError bool
	FilterConfig    string

	// Reporting
	StatusAddr          string
	StatusFallbackAddrs []string
	NTFYEndpoint        string
	LogLevel            string
	LogFile             string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		OutputRoot:          getEnvOrDefault("RESGRAB_OUTPUT_ROOT", "./files"),
		ManifestDir:         getEnvOrDefault("RESGRAB_MANIFEST_DIR", "./logs/manifest"),
		BrowserMode:         strings.ToLower(getEnvOrDefault("RESGRAB_BROWSER_MODE", BrowserModeExec)),
		Headless:            getEnvBoolOrDefault("RESGRAB_HEADLESS", true),
		UserAgent:           getEnvOrDefault("RESGRAB_USER_AGENT", DefaultUserAgent),
		CDPAddress:          getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:             getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		LaunchBrowser:       getEnvBoolOrDefault("RESGRAB_LAUNCH_BROWSER", false),
		ProfileDir:          getEnvOrDefault("RESGRAB_PROFILE_DIR", "./browser_profile"),
		NavigateTimeoutMS:   getEnvIntOrDefault("RESGRAB_NAVIGATE_TIMEOUT_MS", 60000),
		SettleMS:            getEnvIntOrDefault("RESGRAB_SETTLE_MS", 0),
		FailOnHTTPError:     getEnvBoolOrDefault("RESGRAB_FAIL_ON_HTTP_ERROR", false),
		FilterConfig:        os.Getenv("RESGRAB_FILTER_CONFIG"),
		StatusAddr:          os.Getenv("RESGRAB_STATUS_ADDR"),
		StatusFallbackAddrs: parseList(os.Getenv("RESGRAB_STATUS_FALLBACK_ADDRS")),
		NTFYEndpoint:        os.Getenv("RESGRAB_NTFY_ENDPOINT"),
		LogLevel:            strings.ToLower(getEnvOrDefault("RESGRAB_LOG_LEVEL", "info")),
		LogFile:             getEnvOrDefault("RESGRAB_LOG_FILE", "logs/resgrab.log"),
	}

	switch cfg.BrowserMode {
	case BrowserModeExec, BrowserModeRemote:
	default:
		return nil, fmt.Errorf("RESGRAB_BROWSER_MODE must be %q or %q, got %q", BrowserModeExec, BrowserModeRemote, cfg.BrowserMode)
	}
	if cfg.ManifestDir == "off" {
		cfg.ManifestDir = ""
	}
	if cfg.NavigateTimeoutMS < 1000 {
		cfg.NavigateTimeoutMS = 1000
	}
	if cfg.SettleMS < 0 {
		cfg.SettleMS = 0
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// NavigateTimeout bounds the page load.
func (c *Config) NavigateTimeout() time.Duration {
	return time.Duration(c.NavigateTimeoutMS) * time.Millisecond
}

// Settle is how long requests keep being observed after the load event.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
