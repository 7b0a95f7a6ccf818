package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/api/middleware"
	"cell-pressure/internal/api/models"
	"cell-pressure/internal/columns"
	"cell-pressure/internal/config"
	"cell-pressure/internal/data"
	"cell-pressure/internal/plot"
	"cell-pressure/internal/workbench"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Results holds finished analyses between requests.
type Results = data.ResultCache[*analysis.Result]

// AnalysisHandler handles upload, retrieval, export and plotting of analyses.
type AnalysisHandler struct {
	results   *Results
	base      *config.Config
	maxUpload int64
	log       logrus.FieldLogger
}

// NewAnalysisHandler creates a handler. base is the config every request
// starts from; maxUpload bounds the request body in bytes.
func NewAnalysisHandler(results *Results, base *config.Config, maxUpload int64, log logrus.FieldLogger) *AnalysisHandler {
	if base == nil {
		base = config.Default()
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &AnalysisHandler{results: results, base: base, maxUpload: maxUpload, log: log}
}

// Create handles POST /api/v1/analyses
func (h *AnalysisHandler) Create(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	var req models.AnalysisRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("file: %w", err))
		return
	}
	format, err := data.FormatOf(fh.Filename)
	if err != nil {
		badRequest(c, err)
		return
	}

	cfg := config.Merge(h.base, req.Overrides())
	if err := cfg.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		internalError(c, err)
		return
	}
	defer f.Close()
	t, err := data.ReadTable(f, format, data.LoadOptions{Sheet: cfg.Sheet})
	if err != nil {
		badRequest(c, fmt.Errorf("read %s: %w", fh.Filename, err))
		return
	}
	t.Source = fh.Filename

	log := h.log.WithField("request_id", c.GetString(middleware.RequestIDKey))
	res, err := workbench.AnalyzeTable(c.Request.Context(), t, cfg, log)
	if err != nil {
		var missing *columns.MissingColumnError
		if errors.As(err, &missing) {
			c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    models.CodeMissingColumn,
					Message: missing.Error(),
					Details: map[string]interface{}{
						"field":     missing.Field,
						"available": missing.Available,
					},
				},
			})
			return
		}
		internalError(c, err)
		return
	}

	id := h.results.Put(res)
	c.JSON(http.StatusCreated, models.NewAnalysisResponse(id, res, req.IncludeRows))
}

// Get handles GET /api/v1/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	var q models.ResultQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAnalysisResponse(c.Param("id"), res, q.IncludeRows))
}

// Export handles GET /api/v1/analyses/:id/export?format=csv|xlsx
func (h *AnalysisHandler) Export(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	var q models.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	var (
		buf         bytes.Buffer
		err         error
		contentType string
		ext         string
	)
	switch q.Format {
	case "xlsx":
		err = analysis.WriteXLSX(&buf, res)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		ext = ".xlsx"
	default:
		err = analysis.WriteCSV(&buf, res)
		contentType = "text/csv; charset=utf-8"
		ext = ".csv"
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", baseName(res, c.Param("id"))+"_annotated"+ext))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Plot handles GET /api/v1/analyses/:id/plots/:type
func (h *AnalysisHandler) Plot(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	typ, err := plot.ParseType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    models.CodeInvalidPlotType,
				Message: err.Error(),
				Details: map[string]interface{}{"supported": plot.Types()},
			},
		})
		return
	}

	var buf bytes.Buffer
	if err := plot.Render(&buf, typ, res); err != nil {
		if errors.Is(err, plot.ErrNoVoltage) {
			c.JSON(http.StatusUnprocessableEntity, models.NewError(models.CodeInvalidRequest, err.Error()))
			return
		}
		internalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(plot.FileName(baseName(res, c.Param("id")), typ))))
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (h *AnalysisHandler) lookup(c *gin.Context) (*analysis.Result, bool) {
	id := c.Param("id")
	res, ok := h.results.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.NewError(models.CodeNotFound, fmt.Sprintf("analysis %q not found or expired", id)))
		return nil, false
	}
	return res, true
}

// baseName is the upload's file name without extension, or the id when the
// result has no source.
func baseName(res *analysis.Result, id string) string {
	if res.Dataset == nil || res.Dataset.Table.Source == "" {
		return id
	}
	name := filepath.Base(res.Dataset.Table.Source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
