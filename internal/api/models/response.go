package models

import (
	"time"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/model"
)

// AnalysisResponse is returned when an analysis is created or fetched.
type AnalysisResponse struct {
	ID       string                 `json:"id"`
	Source   string                 `json:"source,omitempty"`
	Summary  analysis.Summary       `json:"summary"`
	Channels analysis.ChannelRanges `json:"channels"`
	Columns  map[string]string      `json:"columns,omitempty"`
	Groups   []analysis.GroupStats  `json:"groups"`
	Rows     []RowView              `json:"rows,omitempty"`
}

// RowView is one annotated row. Undefined values are null.
type RowView struct {
	Index     int        `json:"index"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Capacity  float64    `json:"capacity"`
	Current   float64    `json:"current"`
	Pressure  float64    `json:"pressure"`
	Voltage   *float64   `json:"voltage,omitempty"`
	CycleID   int        `json:"cycle_id"`
	Direction string     `json:"direction"`
	SOC       *float64   `json:"soc"`
	DPDQ      *float64   `json:"dpdq"`
}

func NewAnalysisResponse(id string, res *analysis.Result, includeRows bool) AnalysisResponse {
	out := AnalysisResponse{
		ID:       id,
		Summary:  res.Summary,
		Channels: res.Channels(),
		Groups:   res.Groups,
	}
	if res.Dataset != nil {
		out.Source = res.Dataset.Table.Source
		out.Columns = res.Dataset.Mapping.Names()
	}
	if includeRows {
		out.Rows = make([]RowView, len(res.Rows))
		for i, r := range res.Rows {
			out.Rows[i] = newRowView(r)
		}
	}
	return out
}

func newRowView(r model.AnnotatedRow) RowView {
	v := RowView{
		Index:     r.Index,
		Capacity:  r.Capacity,
		Current:   r.Current,
		Pressure:  r.Pressure,
		Voltage:   optional(r.Voltage),
		CycleID:   r.CycleID,
		Direction: string(r.Direction),
		SOC:       optional(r.SOC),
		DPDQ:      optional(r.DPDQ),
	}
	if !r.Timestamp.IsZero() {
		ts := r.Timestamp
		v.Timestamp = &ts
	}
	return v
}

func optional(x float64) *float64 {
	if !model.IsDefined(x) {
		return nil
	}
	return &x
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes of the envelope.
const (
	CodeMissingColumn   = "MISSING_COLUMN"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeNotImplemented  = "NOT_IMPLEMENTED"
	CodeInvalidPlotType = "INVALID_PLOT_TYPE"
	CodeInternal        = "INTERNAL_ERROR"
)

func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
