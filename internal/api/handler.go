package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/sentinel-sea/internal/analytics"
	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/ingestion"
	"github.com/mr1hm/sentinel-sea/internal/intake"
	"github.com/mr1hm/sentinel-sea/internal/notify"
	"github.com/mr1hm/sentinel-sea/internal/reference"
	"github.com/mr1hm/sentinel-sea/internal/report"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/review"
	"github.com/mr1hm/sentinel-sea/internal/stream"
)

const Version = "1.0.0"

// Ingestion is the live/paused control over detection ingestion.
type Ingestion interface {
	Live() bool
	Toggle() bool
	Statuses() []ingestion.Status
}

// Deps are the services the handler serves. Store is the analyst-facing
// store and is read-only in mock mode.
type Deps struct {
	Config      *config.Config
	Store       repository.Store
	Broadcaster *stream.Broadcaster
	Feed        *stream.Feed
	Ingestion   Ingestion
	Reviewer    *review.Reviewer
	Intake      *intake.Intake
	Catalogue   *reference.Catalogue
	Reports     *report.Generator
}

type Handler struct {
	Deps
	now func() time.Time
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		Deps: d,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/status", h.status)
	api.POST("/status/live", h.toggleLive)

	api.GET("/detections", h.listDetections)
	api.POST("/detections", h.createDetection)
	api.GET("/detections/geojson", h.detectionsGeoJSON)
	api.GET("/detections/feed", h.feed)
	api.GET("/detections/stream", h.stream)
	api.GET("/detections/:id", h.getDetection)
	api.GET("/detections/:id/actions", h.history)
	api.POST("/detections/:id/confirm", h.confirm)
	api.POST("/detections/:id/dismiss", h.dismiss)
	api.POST("/detections/bulk/confirm", h.bulkConfirm)
	api.POST("/detections/bulk/dismiss", h.bulkDismiss)
	api.POST("/detections/bulk/tag", h.bulkTag)

	api.GET("/analytics", h.analytics)
	api.GET("/heatmap", h.heatmap)

	api.GET("/mpa", h.listMPAs)
	api.GET("/vessels", h.listVessels)
	api.GET("/vessels/:vesselId", h.getVessel)
	api.GET("/vessels/:vesselId/history", h.vesselHistory)

	api.GET("/reports", h.listReports)
	api.POST("/reports", h.createReport)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Sentinel-Sea Maritime Surveillance",
		"status":  "operational",
		"version": Version,
		"mode":    h.Config.Mode(),
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) status(c *gin.Context) {
	now := h.now()
	last := h.Feed.LastUpdate()

	resp := gin.H{
		"mode":        h.Config.Mode(),
		"read_only":   repository.IsReadOnly(h.Store),
		"live":        h.Ingestion.Live(),
		"sources":     h.Ingestion.Statuses(),
		"feed_size":   h.Feed.Len(),
		"subscribers": h.Broadcaster.SubscriberCount(),
	}
	if !last.IsZero() {
		resp["last_refresh"] = last.UTC()
		resp["last_refresh_relative"] = analytics.RelativeAge(last, now)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) toggleLive(c *gin.Context) {
	live := h.Ingestion.Toggle()
	c.JSON(http.StatusOK, gin.H{
		"live":         live,
		"notification": notify.Stream(live),
	})
}

// requestContext bounds store calls made on behalf of one request.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 30*time.Second)
}
