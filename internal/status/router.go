// Package status serves a read-only view of the bot over HTTP: the tracked
// channels, Prometheus metrics and, when enabled, pprof.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/logger"
	"github.com/Gwildor/Pyromancer/internal/state"
)

// Source publishes store snapshots. It must be safe to call from any
// goroutine.
type Source interface {
	Snapshot() *state.Snapshot
}

type Router struct {
	router *gin.Engine
	server *http.Server
	source Source
	log    logger.Logger
}

func NewRouter(cfg *config.Config, log logger.Logger, source Source) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		router: gin.New(),
		source: source,
		log:    log,
	}
	r.router.Use(gin.Recovery(), r.logRequests)

	r.router.GET("/status", r.status)
	r.router.GET("/channels/:name", r.channel)
	r.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Pprof && cfg.AdminPass != "" {
		pprofGroup := r.router.Group("/", gin.BasicAuth(gin.Accounts{
			"admin": cfg.AdminPass,
		}))
		pprof.Register(pprofGroup)
	}

	r.server = newServer(cfg.HTTPAddr, r.router)
	return r
}

// Handler exposes the routes, mostly for tests.
func (r *Router) Handler() http.Handler {
	return r.router
}

// Start serves in the background until Shutdown.
func (r *Router) Start() {
	go func() {
		r.log.Info("Status server listening", "addr", r.server.Addr)
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("Status server stopped", err)
		}
	}()
}

func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

func (r *Router) status(c *gin.Context) {
	c.JSON(http.StatusOK, r.source.Snapshot())
}

func (r *Router) channel(c *gin.Context) {
	ch, ok := r.source.Snapshot().Channel(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such channel"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (r *Router) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	r.log.Debug("HTTP request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}
