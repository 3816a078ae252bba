// Package server exposes report generation and administration over HTTP.
package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang/groupcache/lru"

	"ipo-report-go/internal/config"
	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/processor"
	"ipo-report-go/internal/store"
	"ipo-report-go/internal/types"
)

// recentRuns bounds how many finished runs stay downloadable.
const recentRuns = 32

// Runner generates reports. *processor.Processor satisfies it.
type Runner interface {
	Run(ctx context.Context, req processor.Request) (*processor.Result, error)
}

type Server struct {
	cfg    config.Config
	runner Runner
	store  *store.Store
	// index is used when an upload does not carry its own item index.
	index  []types.ItemIndexEntry
	reader *dataset.Reader
	log    *logger.Logger

	mu   sync.Mutex
	runs *lru.Cache
}

// New builds the server; st may be nil, which disables the admin routes.
func New(cfg config.Config, runner Runner, st *store.Store, index []types.ItemIndexEntry, log *logger.Logger) *Server {
	return &Server{
		cfg:    cfg,
		runner: runner,
		store:  st,
		index:  index,
		reader: dataset.NewReader(log),
		log:    log.WithComponent("server"),
		runs:   lru.New(recentRuns),
	}
}

func (s *Server) remember(res *processor.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs.Add(res.RunID, res)
}

func (s *Server) recall(id string) (*processor.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.runs.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*processor.Result), true
}

// Router wires middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	// unit names may contain "/", which links carry as %2F
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.MaxMultipartMemory = s.cfg.Server.MaxUploadMB << 20
	r.Use(gin.Recovery(), s.requestLog(), cors.New(s.corsConfig()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/columns", s.inspectUpload)
	api.POST("/reports", s.generate)
	api.GET("/reports/:run", s.getRun)
	api.GET("/reports/:run/zip", s.downloadZip)
	api.GET("/reports/:run/units/:unit/html", s.unitHTML)
	api.GET("/reports/:run/units/:unit/pdf", s.unitPDF)

	if s.store != nil {
		admin := api.Group("/admin", s.requireAdmin())
		admin.GET("/stats", s.stats)
		admin.GET("/organizations", s.listOrganizations)
		admin.POST("/organizations", s.createOrganization)
		admin.GET("/organizations/:id", s.getOrganization)
		admin.PUT("/organizations/:id", s.updateOrganization)
		admin.DELETE("/organizations/:id", s.deleteOrganization)
		admin.GET("/organizations/:id/branding", s.getBranding)
		admin.PUT("/organizations/:id/branding", s.putBranding)
		admin.GET("/reports", s.listReports)
		admin.GET("/logs/pdf", s.pdfLogs)
		admin.GET("/logs/email", s.emailLogs)
		admin.POST("/cleanup", s.cleanup)
		admin.GET("/export", s.export)
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", logger.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range s.cfg.Server.AllowedOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = s.cfg.Server.AllowedOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// requestLog tags each request with an id and logs its outcome.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := logger.RequestID(c.Request)
		c.Request.Header.Set(logger.RequestIDHeader, id)
		c.Header(logger.RequestIDHeader, id)
		start := time.Now()
		c.Next()
		entry := s.log.WithRequest(c.Request).
			WithField("status", c.Writer.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request failed")
			return
		}
		entry.Info("request handled")
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.Server.AdminToken
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}

func fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
