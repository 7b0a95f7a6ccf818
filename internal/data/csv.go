package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadCSV reads a header row followed by data rows. Short rows are padded and
// rows of only blank cells are dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv has no header row")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	// Excel-exported CSVs often start with a UTF-8 BOM.
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv records: %w", err)
	}
	return newTable("", header, records), nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
