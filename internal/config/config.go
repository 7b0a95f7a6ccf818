package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/columns"
	"cell-pressure/internal/dpdq"
	"cell-pressure/internal/model"
	"cell-pressure/internal/numeric"
	"cell-pressure/internal/soc"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk analysis configuration (YAML).
type Config struct {
	// Columns maps a field name (capacity, current, pressure, voltage,
	// timestamp, step_type) to an exact header, bypassing keyword matching.
	Columns map[string]string `yaml:"columns"`
	// Sheet selects the worksheet of Excel inputs. Empty means the first sheet.
	Sheet    string        `yaml:"sheet"`
	SOC      SOCConfig     `yaml:"soc"`
	DPDQ     DPDQConfig    `yaml:"dpdq"`
	Summary  SummaryConfig `yaml:"summary"`
	Parallel bool          `yaml:"parallel"`
}

type SOCConfig struct {
	Mode string `yaml:"mode" validate:"omitempty,oneof=cumulative normalized"`
	// ResetThreshold of 0 selects the mode default.
	ResetThreshold float64 `yaml:"reset_threshold" validate:"gte=0"`
	RestCurrent    float64 `yaml:"rest_current" validate:"gte=0"`
}

type DPDQConfig struct {
	XAxis          string  `yaml:"x_axis" validate:"omitempty,oneof=capacity soc"`
	Smooth         bool    `yaml:"smooth"`
	WindowLength   int     `yaml:"window_length" validate:"gte=1"`
	PolyOrder      int     `yaml:"poly_order" validate:"gte=0"`
	MinStep        float64 `yaml:"min_step" validate:"gt=0"`
	RejectOutliers bool    `yaml:"reject_outliers"`
	IQRMultiplier  float64 `yaml:"iqr_multiplier" validate:"gt=0"`
}

type SummaryConfig struct {
	JumpThreshold float64 `yaml:"jump_threshold" validate:"gt=0"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		SOC: SOCConfig{
			Mode:        string(soc.ModeNormalized),
			RestCurrent: model.DefaultRestCurrent,
		},
		DPDQ: DPDQConfig{
			XAxis:          string(analysis.XCapacity),
			Smooth:         true,
			WindowLength:   numeric.DefaultWindow,
			PolyOrder:      numeric.DefaultPolyOrder,
			MinStep:        dpdq.DefaultMinStep,
			RejectOutliers: true,
			IQRMultiplier:  numeric.DefaultIQRMultiplier,
		},
		Summary:  SummaryConfig{JumpThreshold: analysis.DefaultJumpThreshold},
		Parallel: true,
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked decodes path over Default() without validating. Keys absent
// from the file keep their default values.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// LoadOrDefault loads path, or returns the validated defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if c.DPDQ.Smooth {
		if err := numeric.ValidateSavGol(c.DPDQ.WindowLength, c.DPDQ.PolyOrder); err != nil {
			return fmt.Errorf("dpdq: %w", err)
		}
	}
	if _, err := c.ColumnOverrides(); err != nil {
		return err
	}
	return nil
}

// ColumnOverrides converts the columns section into resolver overrides.
func (c *Config) ColumnOverrides() (map[columns.Field]string, error) {
	if len(c.Columns) == 0 {
		return nil, nil
	}
	out := make(map[columns.Field]string, len(c.Columns))
	for k, v := range c.Columns {
		f, err := columns.ParseField(k)
		if err != nil {
			return nil, fmt.Errorf("columns: %w", err)
		}
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("columns.%s: empty header", k)
		}
		out[f] = v
	}
	return out, nil
}

// EngineOptions maps the config onto analysis options.
func (c *Config) EngineOptions() (analysis.Options, error) {
	mode, err := soc.ParseMode(c.SOC.Mode)
	if err != nil {
		return analysis.Options{}, err
	}
	x, err := analysis.ParseXAxis(c.DPDQ.XAxis)
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{
		Mode: mode,
		SOC: soc.Params{
			ResetThreshold: c.SOC.ResetThreshold,
			RestCurrent:    c.SOC.RestCurrent,
		},
		DPDQ: dpdq.Options{
			Smooth:         c.DPDQ.Smooth,
			Window:         c.DPDQ.WindowLength,
			PolyOrder:      c.DPDQ.PolyOrder,
			MinStep:        c.DPDQ.MinStep,
			RejectOutliers: c.DPDQ.RejectOutliers,
			IQRMultiplier:  c.DPDQ.IQRMultiplier,
		},
		XAxis:         x,
		JumpThreshold: c.Summary.JumpThreshold,
		Parallel:      c.Parallel,
	}, nil
}

// Overrides carries per-request settings. Nil pointers leave the base value.
type Overrides struct {
	Mode           string
	XAxis          string
	Sheet          string
	ResetThreshold *float64
	Smooth         *bool
	WindowLength   *int
	PolyOrder      *int
	RejectOutliers *bool
	Columns        map[string]string
}

// Merge overlays the set fields of o onto a copy of c.
func Merge(c *Config, o Overrides) *Config {
	out := *c
	out.Columns = make(map[string]string, len(c.Columns)+len(o.Columns))
	for k, v := range c.Columns {
		out.Columns[k] = v
	}
	for k, v := range o.Columns {
		out.Columns[k] = v
	}
	if o.Mode != "" {
		out.SOC.Mode = o.Mode
	}
	if o.XAxis != "" {
		out.DPDQ.XAxis = o.XAxis
	}
	if o.Sheet != "" {
		out.Sheet = o.Sheet
	}
	if o.ResetThreshold != nil {
		out.SOC.ResetThreshold = *o.ResetThreshold
	}
	if o.Smooth != nil {
		out.DPDQ.Smooth = *o.Smooth
	}
	if o.WindowLength != nil {
		out.DPDQ.WindowLength = *o.WindowLength
	}
	if o.PolyOrder != nil {
		out.DPDQ.PolyOrder = *o.PolyOrder
	}
	if o.RejectOutliers != nil {
		out.DPDQ.RejectOutliers = *o.RejectOutliers
	}
	return &out
}
