package aggregate

import (
	"fmt"
	"sort"

	"github.com/gyeh/billsync/internal/model"
	"github.com/gyeh/billsync/internal/normalize"
	"github.com/gyeh/billsync/internal/sheet"
)

// ColPatientName is the combined "Last, First" name column.
const ColPatientName = "PATIENT NAME"

// DefaultAmountCandidates are the recognized paid-amount column names, in
// priority order. The first one present in the source wins.
var DefaultAmountCandidates = []string{
	"TOTAL AMOUNT PAID",
	"AMOUNT PAID",
	"PAID",
	"TOTAL PAID",
}

// DefaultCarryForward are the descriptor columns whose first non-empty value
// per account is preserved into the aggregated record.
var DefaultCarryForward = []string{
	"PATIENT NAME",
	"LOCATION NAME",
	"INSURANCE NAME",
}

// Options controls which columns the aggregation reads.
type Options struct {
	AmountCandidates []string
	CarryForward     []string
}

// DefaultOptions returns the column lists the billing export normally uses.
func DefaultOptions() Options {
	return Options{
		AmountCandidates: DefaultAmountCandidates,
		CarryForward:     DefaultCarryForward,
	}
}

// Result is the aggregated table plus the column layout it was built from.
type Result struct {
	AmountColumn string
	// CarryColumns is the subset of configured carry-forward columns present
	// in the source, in configured order. Drives snapshot column ordering.
	CarryColumns []string
	Records      []model.AccountRecord
	RowsRead     int
}

// DetectAmountColumn returns the first candidate present in the column set.
// Matching is exact and case-sensitive. When none match, the error names the
// candidates tried and the columns actually seen.
func DetectAmountColumn(columns []string, candidates []string) (string, error) {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	for _, cand := range candidates {
		if set[cand] {
			return cand, nil
		}
	}
	return "", fmt.Errorf("amount column not found: tried %v, got %v", candidates, columns)
}

// BuildCumulative groups raw billing rows by normalized patient account and
// sums paid amounts. Account IDs are normalized before grouping so that
// scientific-notation and comma-separated renditions of the same account
// collapse into one record. Output is sorted descending by cumulative amount;
// ties keep first-encounter order.
func BuildCumulative(t *sheet.Table, opts Options) (*Result, error) {
	amtCol, err := DetectAmountColumn(t.Columns, opts.AmountCandidates)
	if err != nil {
		return nil, err
	}

	var carryCols []string
	for _, col := range opts.CarryForward {
		if t.HasColumn(col) {
			carryCols = append(carryCols, col)
		}
	}

	type accum struct {
		total   float64
		carried map[string]string
	}
	byAccount := make(map[string]*accum)
	var order []string

	for _, row := range t.Rows {
		acct := normalize.AccountID(row[sheet.ColPatientAccount])
		a, ok := byAccount[acct]
		if !ok {
			a = &accum{carried: make(map[string]string)}
			byAccount[acct] = a
			order = append(order, acct)
		}
		a.total += normalize.Amount(row[amtCol])

		// First non-empty value wins; empty string counts as absent.
		for _, col := range carryCols {
			if _, seen := a.carried[col]; seen {
				continue
			}
			if v := row[col]; v != "" {
				a.carried[col] = v
			}
		}
	}

	records := make([]model.AccountRecord, 0, len(order))
	for _, acct := range order {
		a := byAccount[acct]
		rec := model.AccountRecord{
			AccountID: acct,
			TotalPaid: a.total,
			Carried:   a.carried,
		}
		if name, ok := a.carried[ColPatientName]; ok {
			rec.FirstName, rec.LastName = normalize.SplitName(name)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TotalPaid > records[j].TotalPaid
	})

	return &Result{
		AmountColumn: amtCol,
		CarryColumns: carryCols,
		Records:      records,
		RowsRead:     len(t.Rows),
	}, nil
}
