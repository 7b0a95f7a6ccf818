package data

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for inputs whose extension has no reader.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Table is a raw tabular input: trimmed header labels and string cells, every
// record padded to the header width. Record order is time order.
type Table struct {
	Source  string
	Sheet   string
	Header  []string
	Records [][]string
}

func (t *Table) Len() int { return len(t.Records) }

func newTable(source string, header []string, records [][]string) *Table {
	h := make([]string, len(header))
	for i, v := range header {
		h[i] = strings.TrimSpace(v)
	}
	out := make([][]string, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make([]string, len(h))
		copy(row, rec)
		out = append(out, row)
	}
	return &Table{Source: source, Header: h, Records: out}
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LoadOptions tune format-specific readers.
type LoadOptions struct {
	// Sheet selects the worksheet of a workbook; empty means the first sheet.
	Sheet string
}

// Format is the reader selected for a file name.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// LoadTable reads a CSV, Excel or JSON file into a Table.
func LoadTable(path string, opts LoadOptions) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadTable(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	t.Source = path
	return t, nil
}

// ReadTable reads r with the reader for format. Used for uploads, where there
// is no file on disk.
func ReadTable(r io.Reader, format Format, opts LoadOptions) (*Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r, opts.Sheet)
	case FormatJSON:
		return ReadJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
