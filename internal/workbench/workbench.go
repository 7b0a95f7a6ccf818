// Package workbench is the front-end facing surface of the analysis: pick
// input files, merge them, and produce plots. The CLI and the HTTP server are
// adapters over it.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/config"
	"cell-pressure/internal/data"
	"cell-pressure/internal/plot"

	"github.com/sirupsen/logrus"
)

var (
	ErrMergeNotImplemented = errors.New("merging inputs is not implemented")
	ErrNoInput             = errors.New("no input selected")
	// ErrMergeRequired is returned by Plot when more than one input is selected.
	ErrMergeRequired = errors.New("several inputs selected; merge them first")
)

// InputKind names an input slot: the cycler export and the pressure logger
// workbook.
type InputKind string

const (
	InputCSV   InputKind = "csv"
	InputExcel InputKind = "excel"
)

func ParseInputKind(s string) (InputKind, error) {
	switch k := InputKind(s); k {
	case InputCSV, InputExcel:
		return k, nil
	default:
		return "", fmt.Errorf("unknown input kind: %q", s)
	}
}

// accepts reports whether a file of format f may fill slot k.
func (k InputKind) accepts(f data.Format) bool {
	switch k {
	case InputCSV:
		return f == data.FormatCSV || f == data.FormatJSON
	case InputExcel:
		return f == data.FormatXLSX
	}
	return false
}

type PlotRequest struct {
	Type plot.Type
	// OutputDir overrides the directory of the SVG; empty means next to the input.
	OutputDir string
}

type PlotResult struct {
	Type    plot.Type        `json:"type"`
	Path    string           `json:"path"`
	Summary analysis.Summary `json:"summary"`
	Result  *analysis.Result `json:"-"`
}

// Workbench is implemented by Session. Operations never mutate the receiver.
type Workbench interface {
	SelectInput(kind InputKind, path string) (Workbench, error)
	Merge(ctx context.Context) error
	Plot(ctx context.Context, req PlotRequest) (*PlotResult, error)
}

// Session is an immutable selection of inputs plus the analysis config.
type Session struct {
	inputs map[InputKind]string
	cfg    *config.Config
	log    logrus.FieldLogger
}

var _ Workbench = Session{}

// NewSession starts an empty session. A nil cfg means config.Default().
func NewSession(cfg *config.Config, log logrus.FieldLogger) Session {
	return Session{cfg: cfg, log: log}.withDefaults()
}

func (s Session) withDefaults() Session {
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.log == nil {
		s.log = discard()
	}
	return s
}

// SelectInput returns a session with path in the kind slot. The file must
// exist and its extension must suit the slot.
func (s Session) SelectInput(kind InputKind, path string) (Workbench, error) {
	if _, err := ParseInputKind(string(kind)); err != nil {
		return nil, err
	}
	format, err := data.FormatOf(path)
	if err != nil {
		return nil, err
	}
	if !kind.accepts(format) {
		return nil, fmt.Errorf("%s input cannot be a %s file", kind, format)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	s = s.withDefaults()
	next := Session{cfg: s.cfg, log: s.log, inputs: make(map[InputKind]string, len(s.inputs)+1)}
	for k, v := range s.inputs {
		next.inputs[k] = v
	}
	next.inputs[kind] = path
	s.log.WithFields(logrus.Fields{"kind": kind, "path": path}).Debug("input selected")
	return next, nil
}

// Input returns the path selected for kind.
func (s Session) Input(kind InputKind) (string, bool) {
	p, ok := s.inputs[kind]
	return p, ok
}

// Inputs returns the selected paths ordered by kind.
func (s Session) Inputs() []string {
	kinds := make([]string, 0, len(s.inputs))
	for k := range s.inputs {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = s.inputs[InputKind(k)]
	}
	return out
}

func (s Session) Config() *config.Config { return s.withDefaults().cfg }

func (s Session) Merge(ctx context.Context) error {
	s = s.withDefaults()
	s.log.WithField("inputs", len(s.inputs)).Warn("merge requested but not implemented")
	return ErrMergeNotImplemented
}

// Plot analyzes the single selected input and writes the requested SVG.
func (s Session) Plot(ctx context.Context, req PlotRequest) (*PlotResult, error) {
	inputs := s.Inputs()
	switch {
	case len(inputs) == 0:
		return nil, ErrNoInput
	case len(inputs) > 1:
		return nil, ErrMergeRequired
	}
	input := inputs[0]
	s = s.withDefaults()

	typ, err := plot.ParseType(string(req.Type))
	if err != nil {
		return nil, err
	}
	res, err := Analyze(ctx, input, s.cfg, s.log)
	if err != nil {
		return nil, err
	}

	out := plot.FileName(input, typ)
	if req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return nil, err
		}
		out = filepath.Join(req.OutputDir, filepath.Base(out))
	}
	if err := plot.WriteFile(out, typ, res); err != nil {
		return nil, fmt.Errorf("plot %s: %w", typ, err)
	}
	s.log.WithFields(logrus.Fields{"type": typ, "path": out}).Info("plot written")
	return &PlotResult{Type: typ, Path: out, Summary: res.Summary, Result: res}, nil
}

func discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
