package data

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"cell-pressure/internal/columns"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const cyclerCSV = "\ufeffTime,Current(A),Voltage(V),Capacity(Ah),pressure_Time,pressure_cDAQ1Mod4/ai2\n" +
	"2024-03-01 10:00:00,1.0,3.60,0.000,2024-03-01 10:00:00,101.2\n" +
	"2024-03-01 10:00:10,1.0,3.61,0.010,2024-03-01 10:00:10,101.4\n" +
	",,,,,\n" +
	"2024-03-01 10:00:20,1.0,,0.020,2024-03-01 10:00:20,n/a\n" +
	"2024-03-01 10:00:30,\"1,000\",3.63,0.030,2024-03-01 10:00:30,101.9\n"

func TestReadCSVAndPrepare(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(cyclerCSV))
	require.NoError(t, err)
	assert.Equal(t, "Time", tbl.Header[0])
	assert.Equal(t, 4, tbl.Len(), "blank record dropped")

	ds, err := Prepare(tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Skipped)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, []int{0, 1, 3}, ds.Record)

	assert.Equal(t, 0.01, ds.Rows[1].Capacity)
	assert.Equal(t, 101.4, ds.Rows[1].Pressure)
	assert.Equal(t, 3.61, ds.Rows[1].Voltage)
	assert.Equal(t, 1000.0, ds.Rows[2].Current)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 10, 0, time.UTC), ds.Rows[1].Timestamp)
	assert.True(t, ds.HasTimestamps())
	assert.Equal(t, "pressure_cDAQ1Mod4/ai2", ds.Mapping[columns.Pressure].Name)
}

func TestPrepareMissingColumn(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Time,Voltage\n1,2\n"))
	require.NoError(t, err)
	_, err = Prepare(tbl, nil)
	var missing *columns.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"Time", "Voltage"}, missing.Available)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := "Sheet1"
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Capacity(Ah)", "Current(A)", "Pressure"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{0.0, 1.0, 5.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{0.5, 1.0, 6.0}))
	path := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, f.SaveAs(path))

	tbl, err := LoadTable(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", tbl.Sheet)
	assert.Equal(t, path, tbl.Source)
	assert.Equal(t, []string{"Capacity(Ah)", "Current(A)", "Pressure"}, tbl.Header)

	ds, err := Prepare(tbl, nil)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 0.5, ds.Rows[1].Capacity)
	assert.True(t, math.IsNaN(ds.Rows[1].Voltage))
	assert.False(t, ds.HasTimestamps())

	_, err = LoadTable(path, LoadOptions{Sheet: "Nope"})
	assert.Error(t, err)
}

func TestReadXLSXIgnoresDisplayFormats(t *testing.T) {
	f := excelize.NewFile()
	sheet := "Sheet1"
	start := time.Date(2025, 3, 4, 10, 20, 30, 0, time.UTC)
	caps := []float64{0.1231, 0.1234, 0.1237, 0.1241}

	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Current(A)", "Capacity(Ah)", "Pressure"}))
	for i, c := range caps {
		row := []any{start.Add(time.Duration(i) * time.Second), 1.0, c, 100.125 + float64(i)}
		require.NoError(t, f.SetSheetRow(sheet, "A"+strconv.Itoa(i+2), &row))
	}
	twoDecimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	dateTime, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "C2", "D5", twoDecimals))
	require.NoError(t, f.SetCellStyle(sheet, "A2", "A5", dateTime))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	tbl, err := ReadXLSX(&buf, "")
	require.NoError(t, err)
	ds, err := Prepare(tbl, nil)
	require.NoError(t, err)
	require.Len(t, ds.Rows, len(caps))
	for i, c := range caps {
		assert.InDelta(t, c, ds.Rows[i].Capacity, 1e-12, "row %d", i)
		assert.InDelta(t, 100.125+float64(i), ds.Rows[i].Pressure, 1e-12, "row %d", i)
		assert.Equal(t, start.Add(time.Duration(i)*time.Second), ds.Rows[i].Timestamp, "row %d", i)
	}
}

func TestReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	body := `[{"capacity":0,"current":1,"pressure":2},{"capacity":0.1,"current":1,"pressure":2.5,"voltage":3.7}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tbl, err := LoadTable(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"capacity", "current", "pressure", "voltage"}, tbl.Header)
	assert.Equal(t, "", tbl.Records[0][3])
	assert.Equal(t, "3.7", tbl.Records[1][3])
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("RUN.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatOf("run.parquet")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("2024-03-01T10:00:00Z")
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	ts, ok = ParseTimestamp("45352.5")
	require.True(t, ok)
	assert.WithinDuration(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ts, time.Second)

	_, ok = ParseTimestamp("12.5")
	assert.False(t, ok)
}

func TestResultCache(t *testing.T) {
	c := NewResultCache[int](time.Minute)
	defer c.Close()

	id := c.Put(42)
	v, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, c.Len())

	c.mu.Lock()
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	c.mu.Unlock()
	_, ok = c.Get(id)
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())

	var nilCache *ResultCache[int]
	_, ok = nilCache.Get("x")
	assert.False(t, ok)
}
