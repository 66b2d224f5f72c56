package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// payload mirrors the oracle's wire shape: array-encoded daily entries with
// a separate aggregate block. Money positions arrive as JSON numbers or
// decimal strings; UseNumber keeps them textual so the conversion to cents
// never passes through a binary float.
type payload struct {
	DailyEntries   [][]json.RawMessage `json:"daily_entries"`
	EmployeeCount  int                 `json:"employee_count"`
	TotalDays      int                 `json:"total_days"`
	UniqueDays     int                 `json:"unique_days"`
	TotalWage      json.RawMessage     `json:"total_wage"`
	AverageRate    json.RawMessage     `json:"average_daily_rate"`
	PayPeriodStart string              `json:"pay_period_start"`
	PayPeriodEnd   string              `json:"pay_period_end"`
	SalaryExempt   bool                `json:"is_salary_exempt"`
}

// Decode validates the raw oracle response against the extraction schema
// and converts it into the typed wage model. Any defect here is a
// permanent extraction failure: retrying the same payload cannot fix it.
func Decode(raw []byte) (*wage.Extraction, error) {
	if err := ValidateJSONAgainstSchema(BuildExtractionJSONSchema(), raw); err != nil {
		return nil, &Error{Msg: "oracle response rejected by schema", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, &Error{Msg: "oracle response is not valid JSON", Err: err}
	}

	ex := &wage.Extraction{
		Records:        make([]wage.Record, 0, len(p.DailyEntries)),
		EmployeeCount:  p.EmployeeCount,
		TotalDays:      p.TotalDays,
		UniqueDays:     p.UniqueDays,
		PayPeriodStart: p.PayPeriodStart,
		PayPeriodEnd:   p.PayPeriodEnd,
		SalaryExempt:   p.SalaryExempt,
	}

	var err error
	if ex.TotalWage, err = rateFromRaw(p.TotalWage); err != nil {
		return nil, &Error{Msg: "invalid total_wage", Err: err}
	}
	if ex.AverageDailyRate, err = rateFromRaw(p.AverageRate); err != nil {
		return nil, &Error{Msg: "invalid average_daily_rate", Err: err}
	}
	if p.UniqueDays == 0 {
		ex.UniqueDays = countUniqueDays(p.DailyEntries)
	}

	for i, entry := range p.DailyEntries {
		rec, err := decodeEntry(entry)
		if err != nil {
			return nil, &Error{Msg: fmt.Sprintf("invalid daily entry %d", i), Err: err}
		}
		ex.Records = append(ex.Records, rec)
	}
	return ex, nil
}

func decodeEntry(entry []json.RawMessage) (wage.Record, error) {
	if len(entry) < 5 {
		return wage.Record{}, fmt.Errorf("expected 5 fields, got %d", len(entry))
	}

	var rec wage.Record
	fields := []struct {
		raw  json.RawMessage
		dest *string
	}{
		{entry[0], &rec.Employee},
		{entry[1], &rec.Date},
		{entry[3], &rec.Project},
		{entry[4], &rec.Department},
	}
	for _, f := range fields {
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return wage.Record{}, err
		}
	}

	rate, err := rateFromRaw(entry[2])
	if err != nil {
		return wage.Record{}, err
	}
	rec.DailyRate = rate
	return rec, nil
}

func rateFromRaw(raw json.RawMessage) (wage.Cents, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		return wage.ParseCents(n.String())
	case string:
		return wage.ParseCents(n)
	}
	return 0, fmt.Errorf("rate must be a number or decimal string")
}

func countUniqueDays(entries [][]json.RawMessage) int {
	seen := map[string]struct{}{}
	for _, entry := range entries {
		if len(entry) < 2 {
			continue
		}
		var date string
		if err := json.Unmarshal(entry[1], &date); err == nil {
			seen[date] = struct{}{}
		}
	}
	return len(seen)
}
