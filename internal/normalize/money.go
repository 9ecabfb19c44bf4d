package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var nonMoney = regexp.MustCompile(`[^0-9.\-]`)

// Amount parses a free-text monetary string ("$1,234.56") into a float64.
// Every character except digits, '.' and '-' is stripped first.
// Empty or unparsable input yields 0.0.
func Amount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0.0
	}
	s = nonMoney.ReplaceAllString(s, "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}
