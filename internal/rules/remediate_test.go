package rules

import (
	"testing"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

func TestCanRemediate(t *testing.T) {
	aggregate := wage.Report{
		Verdict: wage.VerdictInvalid,
		Issues: []wage.Issue{
			{Kind: wage.IssueConsistency, Rule: "sum_calculation"},
			{Kind: wage.IssueConsistency, Rule: "count_consistency"},
		},
	}
	if !CanRemediate(aggregate) {
		t.Error("aggregate mismatches should be remediable")
	}

	integrity := wage.Report{
		Verdict: wage.VerdictInvalid,
		Issues: []wage.Issue{
			{Kind: wage.IssueConsistency, Rule: "sum_calculation"},
			{Kind: wage.IssueConsistency, Rule: "data_integrity"},
		},
	}
	if CanRemediate(integrity) {
		t.Error("a data_integrity finding must block remediation")
	}

	compliance := wage.Report{
		Verdict: wage.VerdictRequiresReview,
		Issues:  []wage.Issue{{Kind: wage.IssueCompliance, Rule: "minimum_wage"}},
	}
	if CanRemediate(compliance) {
		t.Error("compliance findings alone are not remediable")
	}

	clean := wage.Report{Verdict: wage.VerdictValid}
	if CanRemediate(clean) {
		t.Error("a clean report has nothing to remediate")
	}
}

func TestRemediateRecomputesAggregates(t *testing.T) {
	ex := wage.Extraction{
		Records: []wage.Record{
			record("Alice", "2025-03-04", 25000),
			record("Alice", "2025-03-03", 25000),
			record("Bob", "2025-03-03", 25000),
		},
		// Every reported aggregate is wrong.
		EmployeeCount:    9,
		TotalDays:        9,
		UniqueDays:       9,
		TotalWage:        80000,
		AverageDailyRate: 9999,
		PayPeriodStart:   "1999-01-01",
		PayPeriodEnd:     "1999-01-02",
	}

	fixed := Remediate(ex)

	if fixed.TotalWage != 75000 {
		t.Errorf("total wage = %s, want 750.00", fixed.TotalWage)
	}
	if fixed.EmployeeCount != 2 || fixed.TotalDays != 3 || fixed.UniqueDays != 2 {
		t.Errorf("counts = %d/%d/%d, want 2/3/2",
			fixed.EmployeeCount, fixed.TotalDays, fixed.UniqueDays)
	}
	if fixed.AverageDailyRate != 25000 {
		t.Errorf("average = %s, want 250.00", fixed.AverageDailyRate)
	}
	if fixed.PayPeriodStart != "2025-03-03" || fixed.PayPeriodEnd != "2025-03-04" {
		t.Errorf("pay period = %s..%s", fixed.PayPeriodStart, fixed.PayPeriodEnd)
	}

	// The input is untouched.
	if ex.TotalWage != 80000 || ex.EmployeeCount != 9 {
		t.Error("Remediate mutated its input")
	}

	// A remediated extraction passes a second evaluation.
	report, err := Evaluate(fixed, testConfig())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Verdict != wage.VerdictValid {
		t.Fatalf("verdict after remediation = %s, want VALID (%v)", report.Verdict, report.Issues)
	}
}

func TestRemediateEmptyRecords(t *testing.T) {
	fixed := Remediate(wage.Extraction{TotalWage: 500, AverageDailyRate: 500, TotalDays: 1})
	if fixed.TotalWage != 0 || fixed.AverageDailyRate != 0 || fixed.TotalDays != 0 {
		t.Errorf("empty remediation left aggregates: %+v", fixed)
	}
}
