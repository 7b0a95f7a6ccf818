package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cell-pressure/internal/columns"
	"cell-pressure/internal/data"
	"cell-pressure/internal/model"

	"github.com/xuri/excelize/v2"
)

// Derived columns appended after the source columns. Keep these names stable;
// downstream notebooks key on them.
var derivedHeader = []string{"cycle_id", "direction", "soc", "dpdq"}

// ExportSheet is the worksheet name of XLSX exports.
const ExportSheet = "Sheet1"

// exportTable returns the header and string records of an export: the source
// columns as loaded (or the measurement channels when there is no source
// table), followed by the derived columns. Undefined values are blank.
func exportTable(res *Result) ([]string, [][]string) {
	if res.Dataset != nil {
		return sourceTable(res)
	}
	header := append([]string{"timestamp", "capacity", "current", "pressure", "voltage"}, derivedHeader...)
	records := make([][]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		rec := []string{
			fmtTime(r.Timestamp),
			fmtFloat(r.Capacity),
			fmtFloat(r.Current),
			fmtFloat(r.Pressure),
			fmtFloat(r.Voltage),
		}
		records = append(records, append(rec, derived(r)...))
	}
	return header, records
}

// sourceTable writes every source record in source order. Records the adapter
// skipped keep their cells and get blank derived columns. Workbook timestamps
// read as serial numbers are written back as text.
func sourceTable(res *Result) ([]string, [][]string) {
	ds := res.Dataset
	header := append(append([]string{}, ds.Table.Header...), derivedHeader...)
	tsIdx := ds.Mapping.Index(columns.Timestamp)

	row := make(map[int]int, len(ds.Record))
	for i, ri := range ds.Record {
		row[ri] = i
	}
	blank := make([]string, len(derivedHeader))

	records := make([][]string, 0, len(ds.Table.Records))
	for ri, src := range ds.Table.Records {
		rec := append([]string{}, src...)
		if i, ok := row[ri]; ok && i < len(res.Rows) {
			r := res.Rows[i]
			if tsIdx >= 0 && !r.Timestamp.IsZero() {
				if _, serial := data.ParseNumber(rec[tsIdx]); serial {
					rec[tsIdx] = r.Timestamp.Format(serialLayout)
				}
			}
			rec = append(rec, derived(r)...)
		} else {
			rec = append(rec, blank...)
		}
		records = append(records, rec)
	}
	return header, records
}

const serialLayout = "2006-01-02 15:04:05.999"

func derived(r model.AnnotatedRow) []string {
	return []string{
		strconv.Itoa(r.CycleID),
		string(r.Direction),
		fmtFloat(r.SOC),
		fmtFloat(r.DPDQ),
	}
}

func WriteCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	header, records := exportTable(res)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Cells that parse as numbers are
// stored as numbers so spreadsheets can chart them directly.
func WriteXLSX(w io.Writer, res *Result) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return err
	}
	header, records := exportTable(res)
	if err := sw.SetRow("A1", toCells(header, false)); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(rec, true)); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func toCells(rec []string, numeric bool) []interface{} {
	out := make([]interface{}, len(rec))
	for i, s := range rec {
		if numeric {
			if v, ok := data.ParseNumber(s); ok && !strings.Contains(s, ",") {
				out[i] = v
				continue
			}
		}
		out[i] = s
	}
	return out
}

// WriteFile exports to path, choosing CSV or XLSX by extension. The parent
// directory is created if needed. Source records that did not parse are
// exported with blank cycle_id, direction, soc and dpdq.
func WriteFile(path string, res *Result) error {
	format, err := data.FormatOf(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case data.FormatCSV:
		err = WriteCSV(f, res)
	case data.FormatXLSX:
		err = WriteXLSX(f, res)
	default:
		err = fmt.Errorf("%w: export to %s", data.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	if !model.IsDefined(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
