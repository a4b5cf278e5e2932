package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sla-mcp/internal/jira"
	"sla-mcp/internal/sla"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira     jira.Config
	DataPath string
	LogDir   string
	CacheDir string

	// JQL selects the issues reported on when no query is given explicitly.
	JQL        string
	PolicyFile string
	// Timezone and ContinuousCutover override the policy file when set;
	// a cutover of "none" disables the continuous regime.
	Timezone          string
	ContinuousCutover string
	// Offline keeps every command on the local cache.
	Offline bool

	WebhookURL    string
	WatchSchedule string
	BreachHorizon time.Duration
	Workers       int
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Executable's directory first (MCP hosts start the binary from elsewhere)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	cacheDir := filepath.Join(dataPath, "cache")

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	delaySecs, err := strconv.Atoi(getEnv("JIRA_REQUEST_DELAY_SECONDS", "2"))
	if err != nil || delaySecs < 0 {
		return nil, fmt.Errorf("invalid JIRA_REQUEST_DELAY_SECONDS: %q", os.Getenv("JIRA_REQUEST_DELAY_SECONDS"))
	}

	workers, err := strconv.Atoi(getEnv("SLA_WORKERS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_WORKERS: %w", err)
	}

	horizon, err := time.ParseDuration(getEnv("SLA_BREACH_HORIZON", "2h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_BREACH_HORIZON: %w", err)
	}

	policyFile := getEnv("SLA_POLICY_FILE", filepath.Join(dataPath, "sla-policy.yaml"))

	cfg := &AppConfig{
		Jira: jira.Config{
			BaseURL:      getEnv("JIRA_URL", ""),
			XsrfToken:    getEnv("JIRA_XSRF_TOKEN", ""),
			SessionID:    getEnv("JIRA_SESSION_ID", ""),
			RememberMe:   getEnv("JIRA_REMEMBERME_COOKIE", ""),
			Token:        getEnv("JIRA_TOKEN", ""),
			GCILB:        getEnv("JIRA_GCILB", ""),
			GCLB:         getEnv("JIRA_GCLB", ""),
			RequestDelay: time.Duration(delaySecs) * time.Second,
		},
		DataPath:          dataPath,
		LogDir:            logDir,
		CacheDir:          cacheDir,
		JQL:               getEnv("SLA_JQL", ""),
		PolicyFile:        policyFile,
		Timezone:          getEnv("SLA_TIMEZONE", ""),
		ContinuousCutover: getEnv("SLA_CONTINUOUS_CUTOVER", ""),
		Offline:           getEnvBool("SLA_OFFLINE", false),
		WebhookURL:        getEnv("SLA_WEBHOOK_URL", ""),
		WatchSchedule:     getEnv("SLA_WATCH_SCHEDULE", "*/15 * * * *"),
		BreachHorizon:     horizon,
		Workers:           workers,
	}

	// A zero delay would make the client fall back to its default.
	if cfg.Jira.RequestDelay == 0 {
		cfg.Jira.RequestDelay = time.Millisecond
	}

	return cfg, nil
}

// JiraConfigured reports whether commands may contact Jira.
func (c *AppConfig) JiraConfigured() bool {
	return !c.Offline && c.Jira.BaseURL != ""
}

// Policy loads the SLA policy file and applies the environment overrides.
func (c *AppConfig) Policy() (sla.Policy, error) {
	policy, err := sla.LoadPolicy(c.PolicyFile)
	if err != nil {
		return policy, err
	}
	if c.Timezone != "" {
		policy = policy.WithTimezone(c.Timezone)
	}
	if c.ContinuousCutover != "" {
		loc, err := policy.Location()
		if err != nil {
			return policy, err
		}
		cutover, err := sla.ParseCutover(c.ContinuousCutover, loc)
		if err != nil {
			return policy, err
		}
		policy.ContinuousCutover = cutover
	}
	return policy, nil
}

// Engine builds an SLA engine from the effective policy.
func (c *AppConfig) Engine() (*sla.Engine, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	cal, err := policy.Calendar()
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("timezone", policy.Timezone).
		Time("cutover", policy.ContinuousCutover).
		Strs("tiers", policy.Tiers).
		Msg("SLA policy loaded")
	return sla.NewEngine(policy, cal), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
