// Package api serves the tool surface and read-only views of both stores
// over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kinship/backend/internal/metrics"
	"kinship/backend/internal/tools"
)

// Options configures the router
type Options struct {
	Executor       *tools.Executor
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(observe(opts.Metrics))
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	h := &handler{exec: opts.Executor, log: log}

	api := router.Group("/api")
	api.Use(requestTimeout(opts.RequestTimeout))
	{
		// Tool surface
		api.GET("/tools", h.listTools)
		api.POST("/tools/:name", h.runTool)
		api.POST("/tool_calls", h.runToolCalls)

		// Contacts
		api.GET("/contacts", h.getContacts)
		api.GET("/contacts/:id", h.getContact)
		api.GET("/contacts/:id/reconcile", h.reconcileContact)

		// Graph
		api.GET("/graph/nodes/:id", h.getNode)
		api.GET("/graph/nodes/:id/neighbors", h.getNeighbors)
		api.DELETE("/graph/nodes/:id", h.deleteNode)
		api.GET("/graph/stats", h.graphStats)
	}

	return router
}
