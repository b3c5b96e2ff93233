package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"call_analytics/internal/normalize"
)

// ErrBadRecord marks a row that is structurally broken (wrong field count).
// Callers decide whether to skip it or abort the run.
var ErrBadRecord = errors.New("bad record")

var requiredColumns = []string{
	"Agent First Name",
	"Disposition",
	"Duration",
	"Type",
	"Status",
	"Source",
	"Date",
}

// Reader streams CallRecords out of an activity export file. Row order is
// preserved; the header row is consumed and validated on Open.
type Reader struct {
	f   *os.File
	csv *csv.Reader
	col map[string]int
}

// Open opens the export file and validates that every required column is
// present in the header. Optional columns (Source Link, To Number, CRM
// fields) may be absent and read as empty.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			f.Close()
			return nil, fmt.Errorf("input is missing required column %q", name)
		}
	}
	return &Reader{f: f, csv: cr, col: col}, nil
}

// Read returns the next record, io.EOF at end of file, or an error wrapping
// ErrBadRecord for rows with the wrong number of fields.
func (r *Reader) Read() (normalize.CallRecord, error) {
	row, err := r.csv.Read()
	if err == io.EOF {
		return normalize.CallRecord{}, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
			return normalize.CallRecord{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		return normalize.CallRecord{}, err
	}
	return normalize.CallRecord{
		Agent:        r.field(row, "Agent First Name"),
		Disposition:  r.field(row, "Disposition"),
		Duration:     r.field(row, "Duration"),
		CallType:     r.field(row, "Type"),
		Status:       r.field(row, "Status"),
		Source:       r.field(row, "Source"),
		Campaign:     r.field(row, "Source Link"),
		ToNumber:     r.field(row, "To Number"),
		Date:         r.field(row, "Date"),
		CRMLink:      r.field(row, "CRM Link"),
		CRMContactID: r.field(row, "CRM Contact ID"),
	}, nil
}

func (r *Reader) field(row []string, name string) string {
	idx, ok := r.col[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (r *Reader) Close() error { return r.f.Close() }
