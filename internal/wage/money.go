package wage

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a fixed-point dollar amount carried as an integer number of
// cents. All wage arithmetic happens in this domain so that summation and
// comparison are exact; binary floats never enter the engine.
type Cents int64

// ParseCents parses a decimal dollar string ("125", "125.5", "-12.34")
// into cents. More than two fractional digits is an error, not a rounding.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	// Only a single leading sign is recognized; a stray sign anywhere else
	// must fail rather than silently negate part of the amount.
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) || (frac != "" && !allDigits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		cents = int64(frac[0]-'0') * 10
	case 2:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	default:
		return 0, fmt.Errorf("invalid amount %q: more than two fractional digits", s)
	}

	total := dollars*100 + cents
	if neg {
		total = -total
	}
	return Cents(total), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the amount as a plain decimal dollar string, e.g. "750.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// DivRound divides the amount by n, rounding half away from zero.
func (c Cents) DivRound(n int) Cents {
	if n == 0 {
		return 0
	}
	v := int64(c)
	d := int64(n)
	half := d / 2
	if (v < 0) != (d < 0) {
		half = -half
	}
	return Cents((v + half) / d)
}

// Abs returns the magnitude of the amount.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}
