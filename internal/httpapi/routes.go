// Package httpapi is the read-only dashboard surface: health, live sync
// progress (over the progress.Hub websocket), and point queries against
// computed metrics and address clusters. It never drives the pipeline —
// that is the CLI's job (spec §6) — it only reads what the orchestrator
// has already written.
//
// Grounded on the teacher's internal/api/routes.go: same CORS-from-env
// middleware, same public/protected route-group split with bearer auth
// and a per-IP rate limiter on the protected group, same APIHandler shape
// — generalized from forensics/scan endpoints to metric/cluster lookups.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/utxo-lifecycle-engine/internal/orchestrator"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// Store is the UTXO Store subset the dashboard reads from.
type Store interface {
	MetricRowsForDate(ctx context.Context, date time.Time) ([]models.MetricRow, error)
	ClusterOf(ctx context.Context, address string) (string, error)
}

// StatusProvider is the orchestrator dependency.
type StatusProvider interface {
	Status() orchestrator.Status
}

// Subscriber is the progress.Hub dependency (kept narrow so this package
// doesn't need the websocket/gorilla import directly).
type Subscriber interface {
	Subscribe(c *gin.Context)
}

type Handler struct {
	store  Store
	status StatusProvider
	hub    Subscriber
}

// SetupRouter builds the full route tree: public health/progress/stream,
// protected metric and cluster queries behind bearer auth and a 30
// req/min per-IP limiter.
func SetupRouter(store Store, status StatusProvider, hub Subscriber) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	h := &Handler{store: store, status: status, hub: hub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", h.handleHealth)
		pub.GET("/progress", h.handleProgress)
		pub.GET("/stream", hub.Subscribe)
	}

	protected := r.Group("/api/v1")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(30, 5).Middleware())
	{
		protected.GET("/metrics/:date", h.handleMetricsForDate)
		protected.GET("/cluster/:address", h.handleClusterOf)
	}

	return r
}

// corsMiddleware reads ALLOWED_ORIGINS (comma-separated) the same way the
// teacher's router does; empty or "*" allows any origin.
func corsMiddleware() gin.HandlerFunc {
	allowed := os.Getenv("ALLOWED_ORIGINS")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed == "" || allowed == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, a := range strings.Split(allowed, ",") {
				if strings.TrimSpace(a) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "utxo-lifecycle-engine",
	})
}

func (h *Handler) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Status())
}

func (h *Handler) handleMetricsForDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	rows, err := h.store.MetricRowsForDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": c.Param("date"), "metrics": rows})
}

func (h *Handler) handleClusterOf(c *gin.Context) {
	addr := c.Param("address")
	clusterID, err := h.store.ClusterOf(c.Request.Context(), addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if clusterID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "address not in any known cluster"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "cluster_id": clusterID})
}
