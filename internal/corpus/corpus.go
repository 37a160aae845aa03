// Package corpus reads and writes labeled record sets as CSV, for seeding a
// store and exporting it.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

// DefaultDelimiter separates CSV fields.
const DefaultDelimiter = ','

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvDate is a DD-MM-YYYY date cell.
type csvDate struct {
	time.Time
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (d csvDate) MarshalCSV() (string, error) {
	return d.Format(model.DateLayout), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (d *csvDate) UnmarshalCSV(s string) error {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid operation_date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// row is the CSV shape of a model.CategoryRecord. Field order is column order.
type row struct {
	ID            int64   `csv:"id"`
	Description   string  `csv:"description"`
	Category      string  `csv:"category"`
	Amount        string  `csv:"amount"`
	OperationDate csvDate `csv:"operation_date"`
	Type          string  `csv:"type"`
}

// Read parses records from r. A leading UTF-8 byte order mark is ignored.
func Read(r io.Reader, delimiter rune) ([]model.CategoryRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true

	var rows []row
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	records := make([]model.CategoryRecord, len(rows))
	for i, r := range rows {
		if r.Description == "" {
			return nil, fmt.Errorf("%w: row %d has no description", common.ErrInvalidTransaction, i+1)
		}
		kind := model.Kind(r.Type)
		if r.Type != "" {
			if _, err := model.ParseKind(r.Type); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		records[i] = model.CategoryRecord{
			ID:            r.ID,
			Description:   r.Description,
			Category:      r.Category,
			Amount:        r.Amount,
			OperationDate: r.OperationDate.Time,
			Kind:          kind,
		}
	}
	return records, nil
}

// ReadFile parses records from a CSV file.
func ReadFile(path string, delimiter rune) ([]model.CategoryRecord, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close file", "path", path, "error", err)
		}
	}()

	records, err := Read(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Read corpus", "path", path, "records", len(records))
	return records, nil
}

// Write renders records as CSV with a header row.
func Write(w io.Writer, records []model.CategoryRecord, delimiter rune) error {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{
			ID:            rec.ID,
			Description:   rec.Description,
			Category:      rec.Category,
			Amount:        rec.Amount,
			OperationDate: csvDate{rec.OperationDate},
			Type:          string(rec.Kind),
		}
	}

	writer := csv.NewWriter(w)
	writer.Comma = delimiter
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteFile writes records to path, creating parent directories.
func WriteFile(path string, records []model.CategoryRecord, delimiter rune) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, records, delimiter); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
