package normalize

import "testing"

func TestAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,234.56", 1234.56},
		{"1234.56", 1234.56},
		{"  $99 ", 99},
		{"-12.50", -12.50},
		{"($45.00)", 45},
		{"", 0.0},
		{"   ", 0.0},
		{"abc", 0.0},
		{"--", 0.0},
		{"USD 10.25", 10.25},
	}
	for _, c := range cases {
		if got := Amount(c.in); got != c.want {
			t.Errorf("Amount(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAccountID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"3,551,034,835,596,928", "3551034835596928"},
		{"1234567890", "1234567890"},
		{"  42  ", "42"},
		{"12.9", "12"},
		{"", ""},
		{"   ", ""},
		{"ACCT-1234", "1234"},
		{"n/a", ""},
	}
	for _, c := range cases {
		if got := AccountID(c.in); got != c.want {
			t.Errorf("AccountID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAccountID_ScientificNotation(t *testing.T) {
	got := AccountID("3.55103E+15")
	if got != "3551030000000000" {
		t.Errorf("AccountID sci-notation: got %q, want %q", got, "3551030000000000")
	}
	for _, r := range got {
		if r < '0' || r > '9' {
			t.Fatalf("AccountID returned non-digit %q in %q", r, got)
		}
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in          string
		first, last string
	}{
		{"Doe, Jane", "Jane", "Doe"},
		{"Doe", "", "Doe"},
		{"Doe,", "", "Doe"},
		{" Doe ,  Jane ", "Jane", "Doe"},
		{"Doe, Jane, Jr", "Jane, Jr", "Doe"},
		{"", "", ""},
	}
	for _, c := range cases {
		first, last := SplitName(c.in)
		if first != c.first || last != c.last {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)",
				c.in, first, last, c.first, c.last)
		}
	}
}
