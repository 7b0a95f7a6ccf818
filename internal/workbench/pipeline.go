package workbench

import (
	"context"
	"fmt"
	"path/filepath"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/config"
	"cell-pressure/internal/data"

	"github.com/sirupsen/logrus"
)

// Analyze loads path and runs the full pipeline on it.
func Analyze(ctx context.Context, path string, cfg *config.Config, log logrus.FieldLogger) (*analysis.Result, error) {
	t, err := data.LoadTable(path, data.LoadOptions{Sheet: cfg.Sheet})
	if err != nil {
		return nil, err
	}
	return AnalyzeTable(ctx, t, cfg, log)
}

// AnalyzeTable resolves columns of an already loaded table and runs the pipeline.
func AnalyzeTable(ctx context.Context, t *data.Table, cfg *config.Config, log logrus.FieldLogger) (*analysis.Result, error) {
	if log == nil {
		log = discard()
	}
	overrides, err := cfg.ColumnOverrides()
	if err != nil {
		return nil, err
	}
	ds, err := data.Prepare(t, overrides)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"source":  filepath.Base(t.Source),
		"rows":    len(ds.Rows),
		"skipped": ds.Skipped,
		"columns": ds.Mapping.Names(),
	}).Info("input loaded")
	if ds.Skipped > 0 {
		log.WithField("skipped", ds.Skipped).Warn("rows without numeric capacity, current or pressure were dropped")
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engine, err := analysis.New(opts, log)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return engine.RunDataset(ctx, ds)
}
