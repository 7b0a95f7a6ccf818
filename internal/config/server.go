package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server is the HTTP server configuration, read from the environment.
type Server struct {
	Port string `envconfig:"API_PORT" default:"8080"`
	// Env "production" switches gin to release mode.
	Env string `envconfig:"API_ENV" default:"development"`
	// AnalysisConfig is an optional YAML file used as the base for every request.
	AnalysisConfig string        `envconfig:"ANALYSIS_CONFIG"`
	ResultTTL      time.Duration `envconfig:"RESULT_CACHE_TTL" default:"30m"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"*"`
	MaxUploadMB    int64         `envconfig:"MAX_UPLOAD_MB" default:"64"`
	StaticDir      string        `envconfig:"STATIC_DIR" default:"./web/dist"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

func LoadServer() (*Server, error) {
	var s Server
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("server config from env: %w", err)
	}
	if s.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", s.MaxUploadMB)
	}
	if s.ResultTTL <= 0 {
		return nil, fmt.Errorf("RESULT_CACHE_TTL must be positive, got %s", s.ResultTTL)
	}
	return &s, nil
}

func (s *Server) Production() bool { return s.Env == "production" }

func (s *Server) Addr() string { return ":" + s.Port }

func (s *Server) MaxUploadBytes() int64 { return s.MaxUploadMB << 20 }
