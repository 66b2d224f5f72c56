// Package rules is the wage-compliance rule engine. Evaluate is a pure
// function over an extraction and a threshold configuration: it never
// touches ambient state, so identical inputs always produce an identical
// report.
package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// avgTolerance allows one cent of rounding slack when comparing a reported
// average against the recomputed one. Sums and counts are exact.
const avgTolerance = wage.Cents(1)

// Evaluate runs every compliance and consistency check against the
// extraction and derives a verdict. Consistency failures force INVALID
// since they indicate an extraction error; compliance findings force
// REQUIRES_REVIEW; otherwise the extraction is VALID.
func Evaluate(ex wage.Extraction, cfg Config) (wage.Report, error) {
	if err := cfg.Validate(); err != nil {
		return wage.Report{}, err
	}

	var issues []wage.Issue
	issues = append(issues, checkIntegrity(ex)...)
	issues = append(issues, checkSum(ex)...)
	issues = append(issues, checkAverage(ex)...)
	issues = append(issues, checkCounts(ex)...)
	issues = append(issues, checkMinimumWage(ex, cfg)...)
	issues = append(issues, checkWeeklyHours(ex, cfg)...)
	issues = append(issues, checkSalaryExempt(ex, cfg)...)

	report := wage.Report{
		Verdict: deriveVerdict(issues),
		Issues:  issues,
		Pay:     calculatePay(ex),
	}
	return report, nil
}

func deriveVerdict(issues []wage.Issue) wage.Verdict {
	hasConsistency := false
	hasOther := false
	for _, is := range issues {
		switch is.Kind {
		case wage.IssueConsistency:
			hasConsistency = true
		default:
			hasOther = true
		}
	}
	switch {
	case hasConsistency:
		return wage.VerdictInvalid
	case hasOther:
		return wage.VerdictRequiresReview
	default:
		return wage.VerdictValid
	}
}

// calculatePay builds the pay breakdown for a daily-rate system: pay equals
// the sum of daily rates and carries no overtime component.
func calculatePay(ex wage.Extraction) wage.PayCalculation {
	total := sumRates(ex.Records)
	payType := "daily_rate"
	if ex.SalaryExempt {
		payType = "salary_exempt"
	}
	return wage.PayCalculation{
		RegularPay:  total,
		OvertimePay: 0,
		TotalPay:    total,
		PayType:     payType,
	}
}

func sumRates(records []wage.Record) wage.Cents {
	var total wage.Cents
	for _, r := range records {
		total += r.DailyRate
	}
	return total
}

// checkIntegrity flags structural defects in the record rows: negative
// rates, missing employee, date, project or department fields, or dates
// that do not parse. These are extraction errors, so they rank as
// consistency issues.
func checkIntegrity(ex wage.Extraction) []wage.Issue {
	var issues []wage.Issue
	for i, r := range ex.Records {
		if r.DailyRate < 0 {
			issues = append(issues, wage.Issue{
				Kind:   wage.IssueConsistency,
				Rule:   "data_integrity",
				Detail: fmt.Sprintf("record %d: negative daily rate %s", i, r.DailyRate),
			})
		}
		if r.Employee == "" || r.Date == "" || r.Project == "" || r.Department == "" {
			issues = append(issues, wage.Issue{
				Kind:   wage.IssueConsistency,
				Rule:   "data_integrity",
				Detail: fmt.Sprintf("record %d: missing required field", i),
			})
			continue
		}
		if _, err := time.Parse("2006-01-02", r.Date); err != nil {
			issues = append(issues, wage.Issue{
				Kind:   wage.IssueConsistency,
				Rule:   "data_integrity",
				Detail: fmt.Sprintf("record %d: unparseable date %q", i, r.Date),
			})
		}
	}
	return issues
}

// checkSum verifies that the reported total wage equals the sum of the
// daily rates.
func checkSum(ex wage.Extraction) []wage.Issue {
	actual := sumRates(ex.Records)
	if actual == ex.TotalWage {
		return nil
	}
	diff := (ex.TotalWage - actual).Abs()
	return []wage.Issue{{
		Kind: wage.IssueConsistency,
		Rule: "sum_calculation",
		Detail: fmt.Sprintf("reported total wage %s does not match sum of daily rates %s (discrepancy %s)",
			ex.TotalWage, actual, diff),
	}}
}

// checkAverage verifies the reported average daily rate against the
// recomputed one, allowing one cent of rounding slack.
func checkAverage(ex wage.Extraction) []wage.Issue {
	if len(ex.Records) == 0 {
		if ex.AverageDailyRate != 0 {
			return []wage.Issue{{
				Kind:   wage.IssueConsistency,
				Rule:   "average_calculation",
				Detail: fmt.Sprintf("no records but reported average daily rate is %s", ex.AverageDailyRate),
			}}
		}
		return nil
	}
	expected := sumRates(ex.Records).DivRound(len(ex.Records))
	if (expected - ex.AverageDailyRate).Abs() <= avgTolerance {
		return nil
	}
	return []wage.Issue{{
		Kind: wage.IssueConsistency,
		Rule: "average_calculation",
		Detail: fmt.Sprintf("reported average daily rate %s does not match calculated %s",
			ex.AverageDailyRate, expected),
	}}
}

// checkCounts verifies the reported employee count against unique employees
// in the rows, and the reported day total against the row count.
func checkCounts(ex wage.Extraction) []wage.Issue {
	var issues []wage.Issue

	unique := map[string]struct{}{}
	for _, r := range ex.Records {
		if r.Employee != "" {
			unique[r.Employee] = struct{}{}
		}
	}
	if len(unique) != ex.EmployeeCount {
		issues = append(issues, wage.Issue{
			Kind: wage.IssueConsistency,
			Rule: "count_consistency",
			Detail: fmt.Sprintf("reported employee count %d does not match %d unique employees",
				ex.EmployeeCount, len(unique)),
		})
	}
	if len(ex.Records) != ex.TotalDays {
		issues = append(issues, wage.Issue{
			Kind: wage.IssueConsistency,
			Rule: "count_consistency",
			Detail: fmt.Sprintf("reported total days %d does not match %d timecard entries",
				ex.TotalDays, len(ex.Records)),
		})
	}
	return issues
}

// checkMinimumWage flags any record whose hourly-equivalent rate falls
// below the configured minimum wage. A record exactly at the minimum is
// compliant.
func checkMinimumWage(ex wage.Extraction, cfg Config) []wage.Issue {
	var issues []wage.Issue
	floor := cfg.MinimumWageRate
	for _, r := range ex.Records {
		if r.DailyRate < 0 {
			continue // already a consistency issue
		}
		hourly := r.DailyRate.DivRound(cfg.HoursPerDay)
		if hourly < floor {
			issues = append(issues, wage.Issue{
				Kind: wage.IssueCompliance,
				Rule: "minimum_wage",
				Detail: fmt.Sprintf("%s on %s: hourly equivalent %s is below minimum wage %s",
					r.Employee, r.Date, hourly, floor),
			})
		}
	}
	return issues
}

// employeeWeek groups records by employee and ISO week for the weekly-hour
// and salary checks. Records with unparseable dates are skipped here; the
// integrity check already reported them.
type employeeWeek struct {
	employee string
	year     int
	week     int
}

func groupByWeek(records []wage.Record) map[employeeWeek][]wage.Record {
	weeks := map[employeeWeek][]wage.Record{}
	for _, r := range records {
		t, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			continue
		}
		y, w := t.ISOWeek()
		key := employeeWeek{employee: r.Employee, year: y, week: w}
		weeks[key] = append(weeks[key], r)
	}
	return weeks
}

func sortedWeeks(weeks map[employeeWeek][]wage.Record) []employeeWeek {
	keys := make([]employeeWeek, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.employee != b.employee {
			return a.employee < b.employee
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.week < b.week
	})
	return keys
}

// checkWeeklyHours raises an overtime finding when an employee's weekly
// hours exceed the overtime threshold with no overtime pay component, and
// an advisory finding beyond the recommended weekly maximum.
func checkWeeklyHours(ex wage.Extraction, cfg Config) []wage.Issue {
	var issues []wage.Issue
	weeks := groupByWeek(ex.Records)
	for _, key := range sortedWeeks(weeks) {
		hours := len(weeks[key]) * cfg.HoursPerDay
		if hours > cfg.OvertimeThresholdHours {
			issues = append(issues, wage.Issue{
				Kind: wage.IssueCompliance,
				Rule: "overtime",
				Detail: fmt.Sprintf("%s worked %d hours in week %d/%d, over the %d-hour overtime threshold with no overtime pay",
					key.employee, hours, key.year, key.week, cfg.OvertimeThresholdHours),
			})
		}
		if hours > cfg.MaxRecommendedWeeklyHours {
			issues = append(issues, wage.Issue{
				Kind: wage.IssueAdvisory,
				Rule: "excessive_hours",
				Detail: fmt.Sprintf("%s worked %d hours in week %d/%d, over the recommended maximum of %d",
					key.employee, hours, key.year, key.week, cfg.MaxRecommendedWeeklyHours),
			})
		}
	}
	return issues
}

// checkSalaryExempt flags exempt-classified timecards whose weekly pay
// falls below the salary-exempt threshold.
func checkSalaryExempt(ex wage.Extraction, cfg Config) []wage.Issue {
	if !ex.SalaryExempt {
		return nil
	}
	var issues []wage.Issue
	weeks := groupByWeek(ex.Records)
	for _, key := range sortedWeeks(weeks) {
		weekly := sumRates(weeks[key])
		if weekly < cfg.SalaryExemptWeeklyThreshold {
			issues = append(issues, wage.Issue{
				Kind: wage.IssueCompliance,
				Rule: "salary_exempt",
				Detail: fmt.Sprintf("%s: weekly salary %s is below the salary-exempt threshold %s",
					key.employee, weekly, cfg.SalaryExemptWeeklyThreshold),
			})
		}
	}
	return issues
}
