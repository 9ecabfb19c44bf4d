package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gyeh/billsync/internal/aggregate"
	"github.com/gyeh/billsync/internal/sheet"
)

// WriteCSV persists the aggregated table to path, overwriting any existing
// file. Header: PATIENT ACCOUNT, TOTAL_AMOUNT_PAID_CUMULATIVE, the carried
// descriptor columns in source order, then firstName/lastName.
func WriteCSV(path string, res *aggregate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{sheet.ColPatientAccount, "TOTAL_AMOUNT_PAID_CUMULATIVE"}
	header = append(header, res.CarryColumns...)
	header = append(header, "firstName", "lastName")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	line := make([]string, 0, len(header))
	for _, rec := range res.Records {
		line = line[:0]
		line = append(line, rec.AccountID, strconv.FormatFloat(rec.TotalPaid, 'f', -1, 64))
		for _, col := range res.CarryColumns {
			line = append(line, rec.Carried[col])
		}
		line = append(line, rec.FirstName, rec.LastName)
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write snapshot row for %s: %w", rec.AccountID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return f.Close()
}
