package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one CSV data record keyed by normalised header name.
type Row struct {
	// Line is the 1-based data row number, excluding the header.
	Line   int
	Values map[string]string
}

// Get returns the trimmed value for a header, or "" when absent.
func (r Row) Get(header string) string {
	return r.Values[normaliseHeader(header)]
}

// ReadRows parses CSV with a header line. Every header in required must be present.
// Blank lines are skipped; maxRows bounds the data rows read when positive.
func ReadRows(src io.Reader, required []string, maxRows int) ([]Row, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := make([]string, len(headerRecord))
	present := make(map[string]bool, len(headerRecord))
	for i, h := range headerRecord {
		headers[i] = normaliseHeader(h)
		present[headers[i]] = true
	}
	for _, req := range required {
		if !present[normaliseHeader(req)] {
			return nil, fmt.Errorf("csv missing column %q", req)
		}
	}

	var rows []Row
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line+1, err)
		}
		line++
		if blank(record) {
			continue
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, fmt.Errorf("csv exceeds %d rows", maxRows)
		}
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				values[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, Row{Line: line, Values: values})
	}
	return rows, nil
}

func normaliseHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
