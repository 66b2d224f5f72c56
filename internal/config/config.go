// Package config assembles runtime configuration from defaults, the
// settings table in the job database, and environment variables, in that
// order of precedence (env wins). Compliance thresholds always travel as
// an explicit rules.Config value; nothing in the engine reads ambient
// state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/rules"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseDSN    string
	NATSURL        string
	OracleEndpoint string
	OracleModelID  string
	UploadDir      string

	MaxConcurrentJobs  int
	PollInterval       time.Duration
	StaleAfter         time.Duration
	ExtractTimeout     time.Duration
	MaxExtractAttempts int
	RetryBackoffBase   time.Duration

	AutoCleanup  bool
	CleanupAfter time.Duration

	Rules rules.Config
}

// Default returns the built-in defaults: embedded sqlite, three concurrent
// jobs, the federal compliance thresholds the original deployment shipped
// with.
func Default() Config {
	return Config{
		Port:           "8080",
		DatabaseDriver: "sqlite",
		DatabaseDSN:    "timecard_processor.db",
		OracleModelID:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		UploadDir:      "uploads",

		MaxConcurrentJobs:  3,
		PollInterval:       time.Second,
		StaleAfter:         10 * time.Minute,
		ExtractTimeout:     2 * time.Minute,
		MaxExtractAttempts: 3,
		RetryBackoffBase:   time.Second,

		AutoCleanup:  true,
		CleanupAfter: 7 * 24 * time.Hour,

		Rules: rules.Config{
			MinimumWageRate:             725,   // $7.25/hour
			OvertimeThresholdHours:      40,
			SalaryExemptWeeklyThreshold: 68400, // $684.00/week
			MaxRecommendedWeeklyHours:   60,
			HoursPerDay:                 8,
		},
	}
}

// SettingsStore is the slice of the job store the configuration layer
// needs.
type SettingsStore interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	AllSettings() (map[string]string, error)
}

// Setting keys persisted in the database.
const (
	KeyMaxConcurrentJobs     = "max_concurrent_jobs"
	KeyMinimumWage           = "federal_minimum_wage"
	KeyOvertimeThreshold     = "overtime_threshold_hours"
	KeySalaryExemptThreshold = "salary_exempt_threshold_weekly"
	KeyMaxRecommendedHours   = "max_recommended_hours_weekly"
	KeyHoursPerDay           = "hours_per_day"
	KeyModelID               = "bedrock_model_id"
	KeyAutoCleanup           = "auto_cleanup_enabled"
	KeyCleanupAfterDays      = "cleanup_after_days"
)

// SeedSettings writes defaults for any setting not yet present, so the
// control surface always has a complete set to show and edit.
func (c Config) SeedSettings(st SettingsStore) error {
	defaults := map[string]string{
		KeyMaxConcurrentJobs:     strconv.Itoa(c.MaxConcurrentJobs),
		KeyMinimumWage:           c.Rules.MinimumWageRate.String(),
		KeyOvertimeThreshold:     strconv.Itoa(c.Rules.OvertimeThresholdHours),
		KeySalaryExemptThreshold: c.Rules.SalaryExemptWeeklyThreshold.String(),
		KeyMaxRecommendedHours:   strconv.Itoa(c.Rules.MaxRecommendedWeeklyHours),
		KeyHoursPerDay:           strconv.Itoa(c.Rules.HoursPerDay),
		KeyModelID:               c.OracleModelID,
		KeyAutoCleanup:           strconv.FormatBool(c.AutoCleanup),
		KeyCleanupAfterDays:      strconv.Itoa(int(c.CleanupAfter / (24 * time.Hour))),
	}
	for key, value := range defaults {
		_, ok, err := st.GetSetting(key)
		if err != nil {
			return err
		}
		if !ok {
			if err := st.SetSetting(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplySettings overlays persisted settings onto the config. Unknown or
// malformed values are reported, not silently skipped.
func (c *Config) ApplySettings(st SettingsStore) error {
	read := func(key string, apply func(string) error) error {
		value, ok, err := st.GetSetting(key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := apply(value); err != nil {
			return fmt.Errorf("%w: setting %s: %v", rules.ErrConfiguration, key, err)
		}
		return nil
	}

	steps := []error{
		read(KeyMaxConcurrentJobs, func(v string) error { return parseInt(v, &c.MaxConcurrentJobs) }),
		read(KeyMinimumWage, func(v string) error { return parseCents(v, &c.Rules.MinimumWageRate) }),
		read(KeyOvertimeThreshold, func(v string) error { return parseInt(v, &c.Rules.OvertimeThresholdHours) }),
		read(KeySalaryExemptThreshold, func(v string) error { return parseCents(v, &c.Rules.SalaryExemptWeeklyThreshold) }),
		read(KeyMaxRecommendedHours, func(v string) error { return parseInt(v, &c.Rules.MaxRecommendedWeeklyHours) }),
		read(KeyHoursPerDay, func(v string) error { return parseInt(v, &c.Rules.HoursPerDay) }),
		read(KeyModelID, func(v string) error { c.OracleModelID = v; return nil }),
		read(KeyAutoCleanup, func(v string) error { return parseBool(v, &c.AutoCleanup) }),
		read(KeyCleanupAfterDays, func(v string) error {
			var days int
			if err := parseInt(v, &days); err != nil {
				return err
			}
			c.CleanupAfter = time.Duration(days) * 24 * time.Hour
			return nil
		}),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

// ValidateSetting checks a single key and value before it is persisted, so
// the control surface rejects updates that would fail the next reload.
func ValidateSetting(key, value string) error {
	var (
		n int
		b bool
		c wage.Cents
	)
	switch key {
	case KeyMaxConcurrentJobs:
		if err := parseInt(value, &n); err != nil {
			return err
		}
		if n < 1 || n > 10 {
			return fmt.Errorf("must be between 1 and 10, got %d", n)
		}
		return nil
	case KeyOvertimeThreshold, KeyMaxRecommendedHours, KeyHoursPerDay, KeyCleanupAfterDays:
		if err := parseInt(value, &n); err != nil {
			return err
		}
		if n < 1 {
			return fmt.Errorf("must be positive, got %d", n)
		}
		return nil
	case KeyMinimumWage, KeySalaryExemptThreshold:
		return parseCents(value, &c)
	case KeyAutoCleanup:
		return parseBool(value, &b)
	case KeyModelID:
		if value == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	}
	return fmt.Errorf("unknown setting %q", key)
}

// ApplyEnv overlays environment variables. Sensitive and deploy-specific
// values live here rather than in the database.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.DatabaseDriver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.DatabaseDSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATSURL = v
	}
	if v := os.Getenv("ORACLE_ENDPOINT"); v != "" {
		c.OracleEndpoint = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		c.OracleModelID = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("MAX_CONCURRENT_JOBS"); v != "" {
		if err := parseInt(v, &c.MaxConcurrentJobs); err != nil {
			return fmt.Errorf("MAX_CONCURRENT_JOBS: %w", err)
		}
	}
	if v := os.Getenv("EXTRACT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EXTRACT_TIMEOUT: %w", err)
		}
		c.ExtractTimeout = d
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxConcurrentJobs < 1 || c.MaxConcurrentJobs > 10 {
		return fmt.Errorf("%w: max_concurrent_jobs must be between 1 and 10, got %d",
			rules.ErrConfiguration, c.MaxConcurrentJobs)
	}
	if c.MaxExtractAttempts < 1 {
		return fmt.Errorf("%w: max extract attempts must be at least 1", rules.ErrConfiguration)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", rules.ErrConfiguration)
	}
	return c.Rules.Validate()
}

func parseInt(v string, dest *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dest = n
	return nil
}

func parseBool(v string, dest *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dest = b
	return nil
}

func parseCents(v string, dest *wage.Cents) error {
	c, err := wage.ParseCents(v)
	if err != nil {
		return err
	}
	*dest = c
	return nil
}
