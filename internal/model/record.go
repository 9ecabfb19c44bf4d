package model

// AccountRecord is one aggregated row per unique patient account: the sum of
// all paid amounts for that account plus carried-forward descriptor values.
type AccountRecord struct {
	AccountID string
	TotalPaid float64

	// Carried maps a carry-forward column name to the first non-empty value
	// seen for this account, in source row order. Columns with no value for
	// the account are absent from the map.
	Carried map[string]string

	FirstName string
	LastName  string
}

// Descriptor returns the carried value for a column, or "" when absent.
func (r *AccountRecord) Descriptor(column string) string {
	return r.Carried[column]
}
