package snapshot

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billsync/internal/model"
)

// WriteParquet writes a columnar copy of the aggregated table, in the same
// descending-amount order as the CSV snapshot.
func WriteParquet(path string, records []model.AccountRecord) error {
	rows := make([]model.SnapshotRow, len(records))
	for i, rec := range records {
		rows[i] = model.SnapshotRow{
			PatientAccount: rec.AccountID,
			TotalPaid:      rec.TotalPaid,
			PatientName:    optStr(rec.Carried["PATIENT NAME"]),
			LocationName:   optStr(rec.Carried["LOCATION NAME"]),
			InsuranceName:  optStr(rec.Carried["INSURANCE NAME"]),
			FirstName:      optStr(rec.FirstName),
			LastName:       optStr(rec.LastName),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet snapshot: %w", err)
	}

	w := parquet.NewGenericWriter[model.SnapshotRow](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write parquet snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
