package models

import (
	"cell-pressure/internal/columns"
	"cell-pressure/internal/config"
)

// AnalysisRequest holds the form fields sent next to the uploaded file on
// POST /api/v1/analyses. Unset fields keep the server's configured values.
type AnalysisRequest struct {
	Mode           string   `form:"mode" binding:"omitempty,oneof=cumulative normalized"`
	XAxis          string   `form:"x_axis" binding:"omitempty,oneof=capacity soc"`
	Sheet          string   `form:"sheet"`
	ResetThreshold *float64 `form:"reset_threshold" binding:"omitempty,gte=0"`
	Smooth         *bool    `form:"smooth"`
	WindowLength   *int     `form:"window_length" binding:"omitempty,gte=1"`
	PolyOrder      *int     `form:"poly_order" binding:"omitempty,gte=0"`
	RejectOutliers *bool    `form:"reject_outliers"`

	// Explicit header names, bypassing keyword matching.
	CapacityColumn string `form:"capacity_column"`
	CurrentColumn  string `form:"current_column"`
	PressureColumn string `form:"pressure_column"`
	VoltageColumn  string `form:"voltage_column"`
	TimeColumn     string `form:"time_column"`

	IncludeRows bool `form:"include_rows"`
}

func (r AnalysisRequest) Overrides() config.Overrides {
	cols := map[string]string{}
	for f, name := range map[columns.Field]string{
		columns.Capacity:  r.CapacityColumn,
		columns.Current:   r.CurrentColumn,
		columns.Pressure:  r.PressureColumn,
		columns.Voltage:   r.VoltageColumn,
		columns.Timestamp: r.TimeColumn,
	} {
		if name != "" {
			cols[string(f)] = name
		}
	}
	return config.Overrides{
		Mode:           r.Mode,
		XAxis:          r.XAxis,
		Sheet:          r.Sheet,
		ResetThreshold: r.ResetThreshold,
		Smooth:         r.Smooth,
		WindowLength:   r.WindowLength,
		PolyOrder:      r.PolyOrder,
		RejectOutliers: r.RejectOutliers,
		Columns:        cols,
	}
}

// ResultQuery is the query of GET /api/v1/analyses/:id.
type ResultQuery struct {
	IncludeRows bool `form:"include_rows"`
}

// ExportQuery is the query of GET /api/v1/analyses/:id/export.
type ExportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=csv xlsx"`
}
