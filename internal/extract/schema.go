package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildExtractionJSONSchema returns the JSON-Schema the oracle's response
// must satisfy before it is converted into typed records. daily_entries
// rows are array-encoded [employee, date, rate, project, department]; the
// rate position accepts a number or a decimal string.
func BuildExtractionJSONSchema() map[string]any {
	rateProp := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "pattern": `^-?\d+(\.\d{1,2})?$`},
		},
	}

	entryProp := map[string]any{
		"type":     "array",
		"minItems": 5,
		"prefixItems": []any{
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			rateProp,
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{"type": "string", "minLength": 1},
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"daily_entries":      map[string]any{"type": "array", "items": entryProp},
			"employee_count":     map[string]any{"type": "integer", "minimum": 0},
			"total_days":         map[string]any{"type": "integer", "minimum": 0},
			"unique_days":        map[string]any{"type": "integer", "minimum": 0},
			"total_wage":         rateProp,
			"average_daily_rate": rateProp,
			"pay_period_start":   map[string]any{"type": "string"},
			"pay_period_end":     map[string]any{"type": "string"},
			"is_salary_exempt":   map[string]any{"type": "boolean"},
		},
		"required": []string{"daily_entries", "employee_count", "total_days", "total_wage", "average_daily_rate"},
	}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
