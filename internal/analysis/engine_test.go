package analysis

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"cell-pressure/internal/data"
	"cell-pressure/internal/model"
	"cell-pressure/internal/soc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// syntheticRun builds cycles of charge (capacity 0→maxCap), rest, discharge
// (capacity 0→maxCap) with pressure tracking state of charge.
func syntheticRun(cycles, perStep int) []model.Measurement {
	var rows []model.Measurement
	maxCap := 2.0
	for c := 0; c < cycles; c++ {
		for i := 0; i < perStep; i++ {
			q := maxCap * float64(i) / float64(perStep-1)
			rows = append(rows, model.Measurement{Capacity: q, Current: 1, Pressure: 100 + 5*q, Voltage: 3.5 + 0.3*q/maxCap})
		}
		rows = append(rows, model.Measurement{Capacity: 0, Current: 0, Pressure: 110, Voltage: 3.8})
		for i := 0; i < perStep; i++ {
			q := maxCap * float64(i) / float64(perStep-1)
			rows = append(rows, model.Measurement{Capacity: q, Current: -1, Pressure: 110 - 5*q, Voltage: 3.8 - 0.3*q/maxCap})
		}
	}
	return rows
}

func newEngine(t *testing.T, mutate func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts, nil)
	require.NoError(t, err)
	return e
}

func TestRunNormalizedSyntheticRun(t *testing.T) {
	rows := syntheticRun(3, 40)
	// Constant derivatives leave a zero IQR, where rounding alone trips the fences.
	e := newEngine(t, func(o *Options) { o.DPDQ.RejectOutliers = false })

	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, res.Rows, len(rows))

	s := res.Summary
	assert.Equal(t, soc.ModeNormalized, s.Mode)
	assert.Equal(t, 3, s.ChargeCycles)
	assert.Equal(t, 3, s.DischargeCycles)
	assert.Equal(t, 0.0, s.ChargeSOC.Min)
	assert.Equal(t, 1.0, s.ChargeSOC.Max)
	assert.Equal(t, 0.0, s.DischargeSOC.Min)
	assert.Equal(t, 1.0, s.DischargeSOC.Max)
	assert.Greater(t, s.DefinedDPDQ, 0)
	assert.Len(t, res.Groups, 6)

	for _, r := range res.Rows {
		if !model.IsDefined(r.DPDQ) {
			continue
		}
		switch r.Direction {
		case model.DirectionCharge:
			assert.InDelta(t, 5.0, r.DPDQ, 1e-6)
		case model.DirectionDischarge:
			assert.InDelta(t, -5.0, r.DPDQ, 1e-6)
		default:
			t.Fatalf("rest row %d has a derivative", r.Index)
		}
	}

	// Each group's first row has no left neighbour.
	for _, g := range res.ByDirection(model.DirectionCharge) {
		assert.Equal(t, 40, g.Rows)
		assert.Equal(t, 39, g.Defined)
		assert.True(t, g.Smoothed)
	}
}

func TestRunSequentialMatchesParallel(t *testing.T) {
	rows := syntheticRun(4, 25)
	par, err := newEngine(t, nil).Run(context.Background(), rows)
	require.NoError(t, err)
	seq, err := newEngine(t, func(o *Options) { o.Parallel = false }).Run(context.Background(), rows)
	require.NoError(t, err)

	for i := range rows {
		a, b := par.Rows[i], seq.Rows[i]
		assert.Equal(t, a.CycleID, b.CycleID)
		assert.Equal(t, model.IsDefined(a.DPDQ), model.IsDefined(b.DPDQ))
		if model.IsDefined(a.DPDQ) {
			assert.Equal(t, a.DPDQ, b.DPDQ)
		}
	}
}

func TestRunCumulative(t *testing.T) {
	rows := []model.Measurement{
		{Capacity: 0, Current: 1, Pressure: 1},
		{Capacity: 1, Current: 1, Pressure: 2},
		{Capacity: 2, Current: 1, Pressure: 4},
		{Capacity: 3, Current: 1, Pressure: 7},
	}
	e := newEngine(t, func(o *Options) {
		o.Mode = soc.ModeCumulative
		o.DPDQ.Smooth = false
	})
	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 3}, res.Column(SOCOf))
	d := res.Column(DPDQOf)
	assert.True(t, math.IsNaN(d[0]))
	assert.Equal(t, []float64{1, 2, 3}, d[1:])
	assert.Equal(t, 3, res.Summary.LargeJumps)
	assert.Equal(t, Range{Min: 0, Max: 3, Count: 4}, res.Summary.SOC)
	assert.True(t, res.Summary.DischargeSOC.Empty())
}

func TestRunDifferentiatesAgainstSOC(t *testing.T) {
	rows := []model.Measurement{
		{Capacity: 0, Current: 1, Pressure: 0},
		{Capacity: 5, Current: 1, Pressure: 1},
		{Capacity: 10, Current: 1, Pressure: 2},
	}
	e := newEngine(t, func(o *Options) {
		o.XAxis = XSOC
		o.DPDQ.Smooth = false
	})
	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, res.Column(SOCOf))
	assert.InDelta(t, 2.0, res.Rows[2].DPDQ, 1e-12)
}

func TestRunEmptyAndSingle(t *testing.T) {
	e := newEngine(t, nil)
	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 0, res.Summary.Resets)

	res, err = e.Run(context.Background(), []model.Measurement{{Capacity: 1, Current: 1, Pressure: 3}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0.0, res.Rows[0].SOC)
	assert.True(t, math.IsNaN(res.Rows[0].DPDQ))
	assert.Empty(t, res.Groups)
	assert.Equal(t, 0, res.Summary.ChargeCycles)
	assert.Equal(t, 0, res.Summary.DischargeCycles)
}

func TestResultChannels(t *testing.T) {
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	rows := []model.Measurement{
		{Timestamp: start, Capacity: 0, Current: 1, Pressure: 101, Voltage: 3.6},
		{Timestamp: start.Add(time.Minute), Capacity: 0.1, Current: 1, Pressure: 99.5, Voltage: math.NaN()},
		{Timestamp: start.Add(2 * time.Minute), Capacity: 0.2, Current: 1, Pressure: 103, Voltage: 3.7},
	}
	res, err := newEngine(t, nil).Run(context.Background(), rows)
	require.NoError(t, err)

	ch := res.Channels()
	assert.Equal(t, start, ch.Start)
	assert.Equal(t, start.Add(2*time.Minute), ch.End)
	assert.Equal(t, Range{Min: 3.6, Max: 3.7, Count: 2}, ch.Voltage)
	assert.Equal(t, Range{Min: 99.5, Max: 103, Count: 3}, ch.Pressure)

	empty := (&Result{}).Channels()
	assert.True(t, empty.Start.IsZero())
	assert.True(t, empty.Voltage.Empty())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t, nil).Run(ctx, syntheticRun(2, 20))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = "bogus"
	_, err := New(opts, nil)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.DPDQ.Window = 2
	_, err = New(opts, nil)
	assert.Error(t, err)

	_, err = ParseXAxis("time")
	assert.Error(t, err)
}

func TestCountJumps(t *testing.T) {
	assert.Equal(t, 2, CountJumps([]float64{0, 0.005, 0.5, math.NaN(), 0.9, 0.2}, 0.01))
}

const sourceCSV = "Time,Current(A),Capacity(Ah),Pressure,Note\n" +
	"2024-03-01 10:00:00,1,0,1,a\n" +
	"2024-03-01 10:00:01,1,1,2,b\n" +
	"2024-03-01 10:00:02,1,2,4,c\n"

func TestExportPreservesSourceColumns(t *testing.T) {
	tbl, err := data.ReadCSV(strings.NewReader(sourceCSV))
	require.NoError(t, err)
	ds, err := data.Prepare(tbl, nil)
	require.NoError(t, err)

	e := newEngine(t, func(o *Options) { o.DPDQ.Smooth = false })
	res, err := e.RunDataset(context.Background(), ds)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"Time", "Current(A)", "Capacity(Ah)", "Pressure", "Note", "cycle_id", "direction", "soc", "dpdq"}, recs[0])
	assert.Equal(t, []string{"2024-03-01 10:00:00", "1", "0", "1", "a", "0", "charge", "0.000000", ""}, recs[1])
	assert.Equal(t, "2.000000", recs[3][8])

	var xbuf bytes.Buffer
	require.NoError(t, WriteXLSX(&xbuf, res))
	f, err := excelize.OpenReader(&xbuf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "dpdq", rows[0][8])
	assert.Equal(t, "c", rows[3][4])
}

func TestExportWithoutSource(t *testing.T) {
	res, err := newEngine(t, nil).Run(context.Background(), []model.Measurement{
		{Capacity: 0, Current: 1, Pressure: 1, Voltage: math.NaN()},
	})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	assert.Equal(t, "timestamp,capacity,current,pressure,voltage,cycle_id,direction,soc,dpdq\n,0.000000,1.000000,1.000000,,0,charge,0.000000,\n", buf.String())
}

func TestExportKeepsSkippedRecords(t *testing.T) {
	body := "Time,Current(A),Capacity(Ah),Pressure\n" +
		"2024-03-01 10:00:00,1,0,1\n" +
		"2024-03-01 10:00:01,1,1,n/a\n" +
		"2024-03-01 10:00:02,1,2,4\n"
	tbl, err := data.ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	ds, err := data.Prepare(tbl, nil)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Skipped)

	e := newEngine(t, func(o *Options) { o.DPDQ.Smooth = false })
	res, err := e.RunDataset(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"2024-03-01 10:00:00", "1", "0", "1", "0", "charge", "0.000000", ""}, recs[1])
	assert.Equal(t, []string{"2024-03-01 10:00:01", "1", "1", "n/a", "", "", "", ""}, recs[2])
	assert.Equal(t, []string{"2024-03-01 10:00:02", "1", "2", "4", "0", "charge", "1.000000", "1.500000"}, recs[3])
}

func TestExportWritesWorkbookTimestampsAsText(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	start := time.Date(2025, 3, 4, 10, 20, 30, 0, time.UTC)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Date", "Current(A)", "Capacity(Ah)", "Pressure"}))
	for i := 0; i < 3; i++ {
		row := []any{start.Add(time.Duration(i) * time.Second), 1.0, float64(i), 1.0 + float64(i)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var xbuf bytes.Buffer
	_, err := f.WriteTo(&xbuf)
	require.NoError(t, err)

	tbl, err := data.ReadXLSX(&xbuf, "")
	require.NoError(t, err)
	ds, err := data.Prepare(tbl, nil)
	require.NoError(t, err)
	res, err := newEngine(t, nil).RunDataset(context.Background(), ds)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "2025-03-04 10:20:30", recs[1][0])
	assert.Equal(t, "2025-03-04 10:20:32", recs[3][0])
	assert.Equal(t, "2", recs[3][2])
}
