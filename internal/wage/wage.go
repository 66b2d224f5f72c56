// Package wage holds the typed wage data model shared by the extraction
// boundary, the compliance rule engine and the pipeline. Extracted records
// are immutable once produced; remediation builds a new Extraction value
// rather than editing one in place.
package wage

// Record is one compensated unit: an employee paid a daily rate for one
// working day on a project.
type Record struct {
	Employee   string `json:"employee"`
	Date       string `json:"date"` // YYYY-MM-DD
	DailyRate  Cents  `json:"daily_rate"`
	Project    string `json:"project"`
	Department string `json:"department"`
}

// Extraction is the structured output of the extraction oracle: the record
// rows plus the aggregates the oracle reported alongside them. The reported
// aggregates are kept verbatim so the rule engine can cross-check them
// against independently recomputed values.
type Extraction struct {
	Records []Record `json:"records"`

	EmployeeCount    int   `json:"employee_count"`
	TotalDays        int   `json:"total_days"`
	UniqueDays       int   `json:"unique_days"`
	TotalWage        Cents `json:"total_wage"`
	AverageDailyRate Cents `json:"average_daily_rate"`

	PayPeriodStart string `json:"pay_period_start,omitempty"`
	PayPeriodEnd   string `json:"pay_period_end,omitempty"`
	SalaryExempt   bool   `json:"salary_exempt"`
}

// Verdict is the engine's categorical judgment on an extraction.
type Verdict string

const (
	VerdictValid          Verdict = "VALID"
	VerdictInvalid        Verdict = "INVALID"
	VerdictRequiresReview Verdict = "REQUIRES_REVIEW"
)

// IssueKind ranks issues by severity. Consistency issues indicate an
// extraction error and dominate; compliance issues are policy violations;
// advisory issues flag for review without implying a violation.
type IssueKind string

const (
	IssueConsistency IssueKind = "consistency"
	IssueCompliance  IssueKind = "compliance"
	IssueAdvisory    IssueKind = "advisory"
)

// Issue is one finding raised by a rule check.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Rule   string    `json:"rule"`
	Detail string    `json:"detail"`
}

// PayCalculation is the pay breakdown attached to the report. The daily
// rate system folds everything into regular pay; overtime pay stays zero
// unless a future rate model introduces it.
type PayCalculation struct {
	RegularPay  Cents  `json:"regular_pay"`
	OvertimePay Cents  `json:"overtime_pay"`
	TotalPay    Cents  `json:"total_pay"`
	PayType     string `json:"pay_type"`
}

// Report is the full outcome of one validation pass.
type Report struct {
	Verdict Verdict        `json:"verdict"`
	Issues  []Issue        `json:"issues,omitempty"`
	Pay     PayCalculation `json:"pay_calculation"`
}

// HasKind reports whether any issue of the given kind was raised.
func (r Report) HasKind(kind IssueKind) bool {
	for _, is := range r.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}
