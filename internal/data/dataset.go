package data

import (
	"math"
	"strconv"
	"strings"
	"time"

	"cell-pressure/internal/columns"
	"cell-pressure/internal/model"

	"github.com/xuri/excelize/v2"
)

// Dataset is a Table with its columns resolved and its required channels parsed.
type Dataset struct {
	Table   *Table
	Mapping columns.Mapping
	Rows    []model.Measurement
	// Record[i] is the Table record Rows[i] was parsed from.
	Record []int
	// Skipped counts records dropped because a required cell did not parse.
	Skipped int
}

// Prepare resolves columns and parses measurements. Only a missing required
// column is an error; records whose capacity, current or pressure cell is not
// numeric are skipped.
func Prepare(t *Table, overrides map[columns.Field]string) (*Dataset, error) {
	m, err := columns.Resolve(t.Header, overrides)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		Table:   t,
		Mapping: m,
		Rows:    make([]model.Measurement, 0, len(t.Records)),
		Record:  make([]int, 0, len(t.Records)),
	}

	capIdx := m.Index(columns.Capacity)
	curIdx := m.Index(columns.Current)
	presIdx := m.Index(columns.Pressure)
	voltIdx := m.Index(columns.Voltage)
	timeIdx := m.Index(columns.Timestamp)

	for ri, rec := range t.Records {
		capacity, ok1 := ParseNumber(rec[capIdx])
		current, ok2 := ParseNumber(rec[curIdx])
		pressure, ok3 := ParseNumber(rec[presIdx])
		if !ok1 || !ok2 || !ok3 {
			ds.Skipped++
			continue
		}
		meas := model.Measurement{
			Capacity: capacity,
			Current:  current,
			Pressure: pressure,
			Voltage:  math.NaN(),
		}
		if voltIdx >= 0 {
			if v, ok := ParseNumber(rec[voltIdx]); ok {
				meas.Voltage = v
			}
		}
		if timeIdx >= 0 {
			if ts, ok := ParseTimestamp(rec[timeIdx]); ok {
				meas.Timestamp = ts
			}
		}
		ds.Rows = append(ds.Rows, meas)
		ds.Record = append(ds.Record, ri)
	}
	return ds, nil
}

// HasTimestamps reports whether every row carries a parsed timestamp.
func (d *Dataset) HasTimestamps() bool {
	if len(d.Rows) == 0 {
		return false
	}
	for _, r := range d.Rows {
		if r.Timestamp.IsZero() {
			return false
		}
	}
	return true
}

// ParseNumber parses a numeric cell, tolerating spaces and thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/06 15:04",
	"2006-01-02",
}

// excelSerialMin filters out small numbers (e.g. elapsed seconds) that would
// otherwise read as dates in early 1900.
const excelSerialMin = 20000

// ParseTimestamp accepts the common cycler/DAQ layouts or an Excel serial date.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v > excelSerialMin {
		if ts, err := excelize.ExcelDateToTime(v, false); err == nil {
			// serials carry float noise below Excel's millisecond resolution
			return ts.Round(time.Millisecond), true
		}
	}
	return time.Time{}, false
}
