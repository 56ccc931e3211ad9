// Package holdings reads holdings snapshots from spreadsheet exports into raw
// rows for the rebalancer.
package holdings

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Supported file formats
const (
	FormatXLSX = ".xlsx"
	FormatCSV  = ".csv"
)

// Reader turns spreadsheet exports into raw holdings rows.
// Header cells become the row keys; the rebalancer maps them to canonical columns.
type Reader struct {
	sheets int
	log    zerolog.Logger
}

// NewReader creates a reader concatenating the first sheets of each workbook
func NewReader(sheets int, log zerolog.Logger) *Reader {
	if sheets < 1 {
		sheets = 1
	}
	return &Reader{
		sheets: sheets,
		log:    log.With().Str("component", "holdings_reader").Logger(),
	}
}

// ReadFile reads a holdings file, choosing the format from its extension
func (r *Reader) ReadFile(path string) ([]rebalancing.RawHolding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holdings file: %w", err)
	}
	defer f.Close()

	return r.Read(f, filepath.Base(path))
}

// Read reads holdings from src, choosing the format from filename's extension
func (r *Reader) Read(src io.Reader, filename string) ([]rebalancing.RawHolding, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case FormatXLSX:
		return r.ReadWorkbook(src)
	case FormatCSV:
		return r.ReadCSV(src)
	default:
		return nil, &rebalancing.DataShapeError{Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}
}

// ReadWorkbook reads the first sheets of an xlsx workbook and concatenates their
// rows. Each sheet has its own header row. Empty sheets are skipped.
func (r *Reader) ReadWorkbook(src io.Reader) ([]rebalancing.RawHolding, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, &rebalancing.DataShapeError{Reason: fmt.Sprintf("cannot open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) > r.sheets {
		sheets = sheets[:r.sheets]
	}

	var result []rebalancing.RawHolding
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &rebalancing.DataShapeError{Reason: fmt.Sprintf("cannot read sheet %q: %v", sheet, err)}
		}

		records, err := rowsToHoldings(rows)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}

		r.log.Debug().
			Str("sheet", sheet).
			Int("rows", len(records)).
			Msg("Read holdings sheet")
		result = append(result, records...)
	}

	return result, nil
}

// ReadCSV reads a csv export. The delimiter is ';' when the header line has more
// semicolons than commas, ',' otherwise.
func (r *Reader) ReadCSV(src io.Reader) ([]rebalancing.RawHolding, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &rebalancing.DataShapeError{Reason: fmt.Sprintf("cannot parse csv: %v", err)}
	}

	records, err := rowsToHoldings(rows)
	if err != nil {
		return nil, err
	}

	r.log.Debug().Int("rows", len(records)).Msg("Read holdings csv")
	return records, nil
}

// rowsToHoldings turns a header row plus data rows into raw holdings.
// Leading blank rows are skipped and the first non-blank row is the header.
// Blank data rows are skipped; short rows leave their trailing columns unset.
func rowsToHoldings(rows [][]string) ([]rebalancing.RawHolding, error) {
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, nil
	}

	header := make([]string, len(rows[start]))
	for i, cell := range rows[start] {
		header[i] = strings.TrimSpace(cell)
	}

	var records []rebalancing.RawHolding
	for i := start + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		if len(row) > len(header) && !isBlank(row[len(header):]) {
			return nil, &rebalancing.DataShapeError{
				Row:    i + 1,
				Reason: fmt.Sprintf("row has %d cells but the header has %d", len(row), len(header)),
			}
		}

		record := make(rebalancing.RawHolding, len(header))
		for j, name := range header {
			if name == "" || j >= len(row) {
				continue
			}
			record[name] = strings.TrimSpace(row[j])
		}
		records = append(records, record)
	}

	return records, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
