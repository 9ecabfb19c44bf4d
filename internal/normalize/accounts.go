package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountID turns "3.55103E+15" or "3,551,034,835,596,928" into a clean
// integer digit string. Spreadsheet exports mangle long account numbers into
// scientific notation, so the value is parsed as an arbitrary-precision
// decimal and truncated to its integer part. On parse failure the digit
// characters are extracted as-is. Never fails; may return "".
func AccountID(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return digitsOnly(s)
	}
	return d.Truncate(0).String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
