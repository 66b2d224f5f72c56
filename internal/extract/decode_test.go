package extract

import (
	"testing"
)

const goodPayload = `{
	"daily_entries": [
		["Alice", "2025-03-03", 250.00, "Alpha", "Engineering"],
		["Alice", "2025-03-04", "250.00", "Alpha", "Engineering"],
		["Bob", "2025-03-03", 199.5, "Beta", "Design"]
	],
	"employee_count": 2,
	"total_days": 3,
	"unique_days": 2,
	"total_wage": 699.50,
	"average_daily_rate": "233.17",
	"pay_period_start": "2025-03-03",
	"pay_period_end": "2025-03-04",
	"is_salary_exempt": false
}`

func TestDecode(t *testing.T) {
	ex, err := Decode([]byte(goodPayload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ex.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(ex.Records))
	}
	if ex.Records[0].DailyRate != 25000 {
		t.Errorf("numeric rate = %d, want 25000", ex.Records[0].DailyRate)
	}
	if ex.Records[1].DailyRate != 25000 {
		t.Errorf("string rate = %d, want 25000", ex.Records[1].DailyRate)
	}
	if ex.Records[2].DailyRate != 19950 {
		t.Errorf("single-decimal rate = %d, want 19950", ex.Records[2].DailyRate)
	}
	if ex.TotalWage != 69950 {
		t.Errorf("total wage = %d, want 69950", ex.TotalWage)
	}
	if ex.AverageDailyRate != 23317 {
		t.Errorf("average = %d, want 23317", ex.AverageDailyRate)
	}
	if ex.EmployeeCount != 2 || ex.TotalDays != 3 || ex.UniqueDays != 2 {
		t.Errorf("counts = %d/%d/%d", ex.EmployeeCount, ex.TotalDays, ex.UniqueDays)
	}
	if ex.PayPeriodStart != "2025-03-03" || ex.PayPeriodEnd != "2025-03-04" {
		t.Errorf("pay period = %s..%s", ex.PayPeriodStart, ex.PayPeriodEnd)
	}
}

func TestDecodeFillsMissingUniqueDays(t *testing.T) {
	payload := `{
		"daily_entries": [
			["Alice", "2025-03-03", 100, "Alpha", "Eng"],
			["Bob", "2025-03-03", 100, "Alpha", "Eng"]
		],
		"employee_count": 2,
		"total_days": 2,
		"total_wage": 200,
		"average_daily_rate": 100
	}`
	ex, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ex.UniqueDays != 1 {
		t.Fatalf("unique days = %d, want 1 (derived from entries)", ex.UniqueDays)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"missing required aggregates", `{"daily_entries": []}`},
		{"short entry row", `{
			"daily_entries": [["Alice", "2025-03-03", 100]],
			"employee_count": 1, "total_days": 1,
			"total_wage": 100, "average_daily_rate": 100
		}`},
		{"bad date format", `{
			"daily_entries": [["Alice", "03/03/2025", 100, "Alpha", "Eng"]],
			"employee_count": 1, "total_days": 1,
			"total_wage": 100, "average_daily_rate": 100
		}`},
		{"three decimal places", `{
			"daily_entries": [["Alice", "2025-03-03", "100.125", "Alpha", "Eng"]],
			"employee_count": 1, "total_days": 1,
			"total_wage": 100, "average_daily_rate": 100
		}`},
		{"not json", `{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.payload))
			if err == nil {
				t.Fatal("Decode accepted a malformed payload")
			}
			if IsTransient(err) {
				t.Fatalf("malformed payload reported as transient: %v", err)
			}
		})
	}
}
