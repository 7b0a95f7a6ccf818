package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/api/models"
	"cell-pressure/internal/config"
	"cell-pressure/internal/data"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	results := data.NewResultCache[*analysis.Result](time.Minute)
	t.Cleanup(results.Close)
	return NewRouter(Deps{
		Server: &config.Server{
			CORSOrigins: []string{"*"},
			MaxUploadMB: 8,
			ResultTTL:   time.Minute,
		},
		Analysis: config.Default(),
		Results:  results,
	})
}

func cyclerCSV(pressureHeader string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date,Voltage(V),Current(A),Capacity(Ah),%s\n", pressureHeader)
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := 0
	for c := 0; c < 2; c++ {
		for _, sign := range []float64{1, -1} {
			for i := 0; i < 15; i++ {
				q := float64(i) * 0.1
				ts := start.Add(time.Duration(rec) * time.Minute).Format("2006-01-02 15:04:05")
				fmt.Fprintf(&b, "%s,%.3f,%.1f,%.2f,%.3f\n", ts, 3.6+sign*0.01*q, sign, q, 100+sign*3*q)
				rec++
			}
		}
	}
	return b.String()
}

func upload(t *testing.T, r http.Handler, filename, body string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorDetail {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e.Error
}

func TestHealthAndCatalogue(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(r, "/api/v1/plots")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Plots []struct {
			Type string `json:"type"`
		} `json:"plots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Plots, 5)

	w = get(r, "/api/v1/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.CodeNotFound, decodeError(t, w).Code)
}

func TestMergeNotImplemented(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/merge", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, models.CodeNotImplemented, decodeError(t, w).Code)
}

func TestAnalysisLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := upload(t, r, "cell 3.csv", cyclerCSV("Pressure"), map[string]string{"include_rows": "true"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "cell 3.csv", created.Source)
	assert.Equal(t, 60, created.Summary.Rows)
	assert.Equal(t, 2, created.Summary.ChargeCycles)
	assert.Equal(t, "Pressure", created.Columns["pressure"])
	require.Len(t, created.Rows, 60)
	assert.Nil(t, created.Rows[0].DPDQ)
	require.NotNil(t, created.Rows[0].SOC)
	assert.Equal(t, 0.0, *created.Rows[0].SOC)
	assert.NotNil(t, created.Rows[0].Timestamp)
	assert.Equal(t, 60, created.Channels.Pressure.Count)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 59, 0, 0, time.UTC), created.Channels.End)

	w = get(r, "/api/v1/analyses/"+created.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.Summary, fetched.Summary)
	assert.Empty(t, fetched.Rows)

	w = get(r, "/api/v1/analyses/"+created.ID+"/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cell 3_annotated.csv")
	recs, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 61)
	assert.Equal(t, []string{"cycle_id", "direction", "soc", "dpdq"}, recs[0][5:])

	w = get(r, "/api/v1/analyses/"+created.ID+"/export?format=xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

	w = get(r, "/api/v1/analyses/"+created.ID+"/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, typ := range []string{"voltage_pressure_combined", "voltage_pressure_scatter", "pressure_soc", "dpdq_soc", "soc_trace"} {
		w = get(r, "/api/v1/analyses/"+created.ID+"/plots/"+typ)
		require.Equal(t, http.StatusOK, w.Code, typ)
		assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "</svg>")
	}

	w = get(r, "/api/v1/analyses/"+created.ID+"/plots/waterfall")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.CodeInvalidPlotType, decodeError(t, w).Code)

	w = get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cellpressure_analyses_total")
	assert.Contains(t, w.Body.String(), "cellpressure_plots_rendered_total")
}

func TestAnalysisNotFound(t *testing.T) {
	r := newTestRouter(t)
	w := get(r, "/api/v1/analyses/does-not-exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.CodeNotFound, decodeError(t, w).Code)
}

func TestAnalysisMissingColumn(t *testing.T) {
	r := newTestRouter(t)

	w := upload(t, r, "run.csv", cyclerCSV("cDAQ1Mod4/ai2"), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, models.CodeMissingColumn, e.Code)
	assert.Equal(t, "pressure", e.Details["field"])

	w = upload(t, r, "run.csv", cyclerCSV("cDAQ1Mod4/ai2"), map[string]string{"pressure_column": "cdaq1mod4/AI2"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAnalysisRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	w := upload(t, r, "run.csv", cyclerCSV("Pressure"), map[string]string{"mode": "hourly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.CodeInvalidRequest, decodeError(t, w).Code)

	w = upload(t, r, "run.csv", cyclerCSV("Pressure"), map[string]string{"window_length": "8"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "run.parquet", "x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisCumulativeMode(t *testing.T) {
	r := newTestRouter(t)
	w := upload(t, r, "run.csv", cyclerCSV("Pressure"), map[string]string{"mode": "cumulative", "smooth": "false"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "cumulative", string(created.Summary.Mode))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
