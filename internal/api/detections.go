package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/sentinel-sea/internal/analytics"
	"github.com/mr1hm/sentinel-sea/internal/filter"
	"github.com/mr1hm/sentinel-sea/internal/intake"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/notify"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	// scanLimit bounds how many stored rows one filtered query considers.
	scanLimit = 5000
)

// detectionView adds the derived threat level to a detection.
type detectionView struct {
	models.Detection
	ThreatLevel threat.ThreatLevel `json:"threat_level"`
}

func view(d models.Detection) detectionView {
	return detectionView{Detection: d, ThreatLevel: threat.Level(d.ThreatScore)}
}

func views(ds []models.Detection) []detectionView {
	out := make([]detectionView, 0, len(ds))
	for _, d := range ds {
		out = append(out, view(d))
	}
	return out
}

// query loads the detections matching the request's filter parameters.
func (h *Handler) query(c *gin.Context) ([]models.Detection, filter.Criteria, error) {
	criteria, err := filter.FromQuery(c.Request.URL.Query())
	if err != nil {
		return nil, criteria, err
	}

	opts := repository.Filter{Since: criteria.From, Until: criteria.To, Limit: scanLimit}
	if criteria.ThreatMin > 0 {
		opts.MinThreat = &criteria.ThreatMin
	}
	if s, ok := models.ParseReviewStatus(criteria.Review); ok {
		opts.Review = &s
	}
	if a, ok := models.ParseAISStatus(criteria.AIS); ok {
		opts.AIS = &a
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	ds, err := h.Store.ListDetections(ctx, opts)
	if err != nil {
		return nil, criteria, fmt.Errorf("error listing detections: %w", err)
	}
	return criteria.Apply(ds), criteria, nil
}

func (h *Handler) listDetections(c *gin.Context) {
	sorting, err := filter.ParseSorting(c.Query("sort"), c.Query("order"))
	if err != nil {
		fail(c, err)
		return
	}

	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxLimit {
			limit = lim
		}
	}

	ds, criteria, err := h.query(c)
	if err != nil {
		fail(c, err)
		return
	}

	filter.Sort(ds, sorting)
	total := len(ds)
	if len(ds) > limit {
		ds = ds[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"detections":     views(ds),
		"count":          len(ds),
		"total":          total,
		"active_filters": criteria.ActiveCount(),
		"sort":           sorting,
	})
}

func (h *Handler) detectionsGeoJSON(c *gin.Context) {
	ds, _, err := h.query(c)
	if err != nil {
		fail(c, err)
		return
	}

	fc := toGeoJSON(ds)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) feed(c *gin.Context) {
	ds := h.Feed.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"detections": views(ds),
		"count":      len(ds),
		"live":       h.Ingestion.Live(),
	})
}

func (h *Handler) getDetection(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Store.GetDetection(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view(*d))
}

func (h *Handler) createDetection(c *gin.Context) {
	var in intake.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Intake.Submit(ctx, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"detection":    view(*d),
		"notification": notify.Added(d),
	})
}

func (h *Handler) analytics(c *gin.Context) {
	ds, criteria, err := h.query(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":          analytics.Compute(ds, h.now()),
		"active_filters": criteria.ActiveCount(),
	})
}

func (h *Handler) heatmap(c *gin.Context) {
	ds, _, err := h.query(c)
	if err != nil {
		fail(c, err)
		return
	}
	points := analytics.Heatmap(ds)
	c.JSON(http.StatusOK, gin.H{"points": points, "count": len(points)})
}
