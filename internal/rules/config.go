package rules

import (
	"errors"
	"fmt"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// ErrConfiguration marks a missing or malformed compliance configuration.
// The pipeline fails a job fast on this error; there is no retry.
var ErrConfiguration = errors.New("invalid compliance configuration")

// Config carries the caller-supplied compliance thresholds. The engine has
// no hidden defaults: defaults live in the configuration layer, and Evaluate
// rejects a zero-valued Config outright.
type Config struct {
	// MinimumWageRate is the hourly floor a record's effective
	// hourly-equivalent rate is checked against.
	MinimumWageRate wage.Cents `json:"minimum_wage_rate"`

	// OvertimeThresholdHours is the weekly hour count beyond which an
	// overtime pay component is expected.
	OvertimeThresholdHours int `json:"overtime_threshold_hours"`

	// SalaryExemptWeeklyThreshold is the weekly salary below which an
	// exempt classification is flagged.
	SalaryExemptWeeklyThreshold wage.Cents `json:"salary_exempt_weekly_threshold"`

	// MaxRecommendedWeeklyHours triggers an advisory finding when
	// exceeded.
	MaxRecommendedWeeklyHours int `json:"max_recommended_weekly_hours"`

	// HoursPerDay converts a daily rate into its hourly equivalent.
	HoursPerDay int `json:"hours_per_day"`
}

// Validate checks that every threshold is present and positive.
func (c Config) Validate() error {
	if c.MinimumWageRate <= 0 {
		return fmt.Errorf("%w: minimum_wage_rate must be positive, got %s", ErrConfiguration, c.MinimumWageRate)
	}
	if c.OvertimeThresholdHours <= 0 {
		return fmt.Errorf("%w: overtime_threshold_hours must be positive, got %d", ErrConfiguration, c.OvertimeThresholdHours)
	}
	if c.SalaryExemptWeeklyThreshold <= 0 {
		return fmt.Errorf("%w: salary_exempt_weekly_threshold must be positive, got %s", ErrConfiguration, c.SalaryExemptWeeklyThreshold)
	}
	if c.MaxRecommendedWeeklyHours <= 0 {
		return fmt.Errorf("%w: max_recommended_weekly_hours must be positive, got %d", ErrConfiguration, c.MaxRecommendedWeeklyHours)
	}
	if c.HoursPerDay <= 0 {
		return fmt.Errorf("%w: hours_per_day must be positive, got %d", ErrConfiguration, c.HoursPerDay)
	}
	return nil
}
