package rules

import (
	"sort"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// CanRemediate reports whether the findings in a report are all fixable by
// the bounded automatic rule set. Only aggregate mismatches qualify: they
// are corrected unambiguously by recomputing the aggregates from the record
// rows. Integrity defects in the rows themselves, and every compliance
// finding, always route to a human.
func CanRemediate(report wage.Report) bool {
	fixable := false
	for _, is := range report.Issues {
		if is.Kind != wage.IssueConsistency {
			continue
		}
		if is.Rule == "data_integrity" {
			return false
		}
		fixable = true
	}
	return fixable
}

// Remediate rebuilds the reported aggregates from the record rows and
// returns a new extraction; the input and its records are never mutated.
// The caller re-runs Evaluate on the result, at most once per job.
func Remediate(ex wage.Extraction) wage.Extraction {
	out := ex
	out.Records = make([]wage.Record, len(ex.Records))
	copy(out.Records, ex.Records)

	var total wage.Cents
	uniqueEmployees := map[string]struct{}{}
	uniqueDates := map[string]struct{}{}
	for _, r := range out.Records {
		total += r.DailyRate
		uniqueEmployees[r.Employee] = struct{}{}
		uniqueDates[r.Date] = struct{}{}
	}

	out.TotalWage = total
	out.TotalDays = len(out.Records)
	out.UniqueDays = len(uniqueDates)
	out.EmployeeCount = len(uniqueEmployees)
	if len(out.Records) > 0 {
		out.AverageDailyRate = total.DivRound(len(out.Records))
	} else {
		out.AverageDailyRate = 0
	}

	dates := make([]string, 0, len(uniqueDates))
	for d := range uniqueDates {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > 0 {
		out.PayPeriodStart = dates[0]
		out.PayPeriodEnd = dates[len(dates)-1]
	}
	return out
}
