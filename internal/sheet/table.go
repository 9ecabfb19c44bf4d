package sheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ColPatientAccount is the one column every billing export must carry.
const ColPatientAccount = "PATIENT ACCOUNT"

// Row is one billing line-item keyed by column name. Cells missing from a
// short CSV record are absent from the map; callers treat that as "".
type Row map[string]string

// Table is a raw billing export: ordered column names plus untyped rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table carries the named column (exact match).
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Parse reads a CSV export into a Table. The first record is the header.
// Handles a UTF-8 BOM, lazy quotes, and ragged records, since spreadsheet
// exports are not always well-formed. Fails if the patient-account column
// is missing, naming the columns actually present.
func Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	bom, err := br.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: header}
	if !t.HasColumn(ColPatientAccount) {
		return nil, fmt.Errorf("missing %q column, got: %v", ColPatientAccount, header)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
