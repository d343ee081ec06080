// Package server exposes the editing, review and catalog operations over
// HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/logger"
	"github.com/zulandar/vibeyard/internal/notify"
	"github.com/zulandar/vibeyard/internal/studio"
	"gorm.io/gorm"
)

// Reporter produces risk reports on demand.
type Reporter interface {
	Report(ctx context.Context, req generate.ReportRequest) (generate.Report, error)
}

// Deps holds what the handlers need.
type Deps struct {
	DB       *gorm.DB
	Studio   *studio.Studio
	Reporter Reporter
	Notifier notify.Notifier
	Log      *logger.Logger
	// Lang is the default output and catalog language.
	Lang string
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps
	Port int
	Out  io.Writer
}

type server struct {
	Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Lang == "" {
		d.Lang = "en"
	}
	s := &server{Deps: d}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(identify())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/catalog", s.handleCatalog)
	api.GET("/shares/:shareID", s.handleShareRender)

	authed := api.Group("", requireUser())
	authed.POST("/sessions", s.handleCreateSession)
	authed.GET("/sessions/:sid/versions", s.handleSessionVersions)
	authed.GET("/sessions/:sid/application", s.handleSessionApplication)
	authed.POST("/sessions/:sid/generate", s.handleGenerate)
	authed.POST("/sessions/:sid/edits", s.handleManualEdit)

	authed.GET("/versions/:id", s.handleVersion)
	authed.GET("/versions/:id/history", s.handleHistory)
	authed.GET("/versions/:id/render", s.handleRender)
	authed.GET("/versions/:id/report", s.handleReport)
	authed.POST("/versions/:id/report", s.handleGenerateReport)
	authed.POST("/versions/:id/shares", s.handleCreateShare)
	authed.GET("/shares", s.handleListShares)
	authed.DELETE("/shares/:shareID", s.handleDeleteShare)

	authed.GET("/inbox", s.handleInbox)
	authed.POST("/inbox/:id/ack", s.handleAcknowledge)

	authed.GET("/applications", s.handleListApplications)
	authed.POST("/applications/:id/submit", s.handleSubmit)
	authed.POST("/applications/:id/cancel", s.handleCancel)
	authed.POST("/applications/:id/publish", s.handlePublish)
	authed.POST("/applications/:id/archive", s.handleArchive)
	authed.DELETE("/applications/:id", s.handleDelete)
	authed.GET("/applications/:id/reviews", s.handleReviews)

	admin := api.Group("", requireUser(), requireAdmin())
	admin.POST("/applications/:id/review", s.handleReview)
	admin.GET("/stats", s.handleStats)
	admin.GET("/admin/models", s.handleListModels)
	admin.POST("/admin/models", s.handleCreateModel)
	admin.PUT("/admin/models/:id", s.handleUpdateModel)
	admin.POST("/admin/models/:id/activate", s.handleActivateModel)
	admin.DELETE("/admin/models/:id", s.handleDeleteModel)
	admin.GET("/admin/settings", s.handleGetSettings)
	admin.PUT("/admin/settings", s.handlePutSettings)
	admin.GET("/admin/prompts/:name", s.handleGetPrompt)
	admin.PUT("/admin/prompts/:name", s.handlePutPrompt)

	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Studio == nil {
		return fmt.Errorf("server: studio is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8462
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts.Deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *server) handleHealth(c *gin.Context) {
	sqlDB, err := s.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
