// Package api wires the HTTP front-end: routes, middleware and handlers.
package api

import (
	"io"
	"net/http"
	"os"
	"strings"

	"cell-pressure/internal/api/handlers"
	"cell-pressure/internal/api/middleware"
	"cell-pressure/internal/api/models"
	"cell-pressure/internal/config"
	"cell-pressure/internal/workbench"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Server   *config.Server
	Analysis *config.Config
	Results  *handlers.Results
	Log      logrus.FieldLogger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.Log = l
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))
	router.Use(middleware.CORS(d.Server.CORSOrigins))
	router.MaxMultipartMemory = d.Server.MaxUploadBytes()

	analysisHandler := handlers.NewAnalysisHandler(d.Results, d.Analysis, d.Server.MaxUploadBytes(), d.Log)
	mergeHandler := handlers.NewMergeHandler(workbench.NewSession(d.Analysis, d.Log))

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/analyses", analysisHandler.Create)
		api.GET("/analyses/:id", analysisHandler.Get)
		api.GET("/analyses/:id/export", analysisHandler.Export)
		api.GET("/analyses/:id/plots/:type", analysisHandler.Plot)

		api.GET("/plots", handlers.ListPlots)
		api.POST("/merge", mergeHandler.Merge)
	}

	serveStatic(router, d.Server.StaticDir, d.Log)
	return router
}

// serveStatic serves a built front-end from dir when it exists, falling back
// to index.html for client-side routes.
func serveStatic(router *gin.Engine, dir string, log logrus.FieldLogger) {
	if dir == "" {
		router.NoRoute(notFound)
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.WithField("dir", dir).Debug("static directory not found, skipping static file serving")
		router.NoRoute(notFound)
		return
	}
	router.Static("/assets", dir+"/assets")
	router.StaticFile("/favicon.ico", dir+"/favicon.ico")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(dir + "/index.html")
	})
	log.WithField("dir", dir).Info("serving static files")
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.NewError(models.CodeNotFound, "route not found"))
}
