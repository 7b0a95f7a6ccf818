package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/api"
	"cell-pressure/internal/config"
	"cell-pressure/internal/data"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("could not read .env")
	}

	srv, err := config.LoadServer()
	if err != nil {
		return err
	}
	setLogLevel(srv.LogLevel)
	if srv.Production() {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	analysisCfg, err := config.LoadOrDefault(srv.AnalysisConfig)
	if err != nil {
		return err
	}
	if wd, err := os.Getwd(); err == nil {
		log.WithFields(logrus.Fields{
			"working_directory": wd,
			"analysis_config":   srv.AnalysisConfig,
			"result_ttl":        srv.ResultTTL,
		}).Info("configuration loaded")
	}

	results := data.NewResultCache[*analysis.Result](srv.ResultTTL)
	defer results.Close()

	router := api.NewRouter(api.Deps{
		Server:   srv,
		Analysis: analysisCfg,
		Results:  results,
		Log:      log,
	})

	httpSrv := &http.Server{
		Addr:              srv.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting API server on %s", srv.Addr())
		errCh <- httpSrv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
