package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string

	// WebDriverURL is the remote WebDriver endpoint (chromedriver,
	// geckodriver or a Selenium grid) sessions are launched against.
	WebDriverURL string

	// Session pool sizing and sweep cadence.
	BrowserMaxSessions   int
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration

	// Self-healing resolver (OpenAI-compatible endpoint). Healing is
	// disabled when the URL is empty.
	HealingAPIURL string
	HealingAPIKey string
	HealingModel  string

	// Screenshot storage. When ScreenshotBucket is set screenshots go
	// to S3, otherwise to ScreenshotDir on local disk.
	ScreenshotBucket string
	ScreenshotDir    string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string

	// BrowserSetsFile is an optional YAML file declaring named
	// engine/headless combinations schedules can reference.
	BrowserSetsFile string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		HTTPListenAddr:       getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		ServiceName:          getEnv("SERVICE_NAME", "testpilot-api"),
		WebDriverURL:         getEnv("WEBDRIVER_URL", "http://localhost:4444"),
		BrowserMaxSessions:   getEnvInt("BROWSER_MAX_SESSIONS", 5),
		SessionIdleTimeout:   getEnvDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		HealingAPIURL:        getEnv("HEALING_API_URL", ""),
		HealingAPIKey:        getEnv("HEALING_API_KEY", ""),
		HealingModel:         getEnv("HEALING_MODEL", "gpt-4o-mini"),
		ScreenshotBucket:     getEnv("SCREENSHOT_BUCKET", ""),
		ScreenshotDir:        getEnv("SCREENSHOT_DIR", "screenshots"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3AccessKey:          getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:          getEnv("S3_SECRET_KEY", ""),
		BrowserSetsFile:      getEnv("BROWSER_SETS_FILE", ""),
	}

	return cfg, nil
}

// Validate checks that the config is complete enough to run the named
// service.
func (c *Config) Validate(service string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s: DATABASE_URL is required", service)
	}
	if c.BrowserMaxSessions < 1 {
		return fmt.Errorf("%s: BROWSER_MAX_SESSIONS must be at least 1", service)
	}
	if c.ScreenshotBucket != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		return fmt.Errorf("%s: SCREENSHOT_BUCKET requires S3_ACCESS_KEY and S3_SECRET_KEY", service)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
