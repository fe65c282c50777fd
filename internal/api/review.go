package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/notify"
	"github.com/mr1hm/sentinel-sea/internal/review"
)

type reviewRequest struct {
	AnalystID string `json:"analyst_id"`
	Notes     string `json:"notes"`
}

type bulkRequest struct {
	IDs       []string `json:"ids"`
	AnalystID string   `json:"analyst_id"`
	Notes     string   `json:"notes"`
	Tag       string   `json:"tag"`
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) analyst(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return h.Config.Analyst.ID
}

func (h *Handler) confirm(c *gin.Context) {
	h.decide(c, h.Reviewer.Confirm, notify.Confirmed)
}

func (h *Handler) dismiss(c *gin.Context) {
	h.decide(c, h.Reviewer.Dismiss, notify.Dismissed)
}

type decideFunc func(ctx context.Context, id, analyst, notes string) (*models.Detection, error)

func (h *Handler) decide(c *gin.Context, apply decideFunc, note func(*models.Detection) notify.Notification) {
	var req reviewRequest
	if err := bindOptional(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := apply(ctx, c.Param("id"), h.analyst(req.AnalystID), req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"detection":    view(*d),
		"notification": note(d),
	})
}

func (h *Handler) bulkConfirm(c *gin.Context) {
	h.bulk(c, "confirmed", func(ctx context.Context, req bulkRequest) (review.BulkResult, error) {
		return h.Reviewer.BulkConfirm(ctx, req.IDs, h.analyst(req.AnalystID), req.Notes)
	})
}

func (h *Handler) bulkDismiss(c *gin.Context) {
	h.bulk(c, "dismissed", func(ctx context.Context, req bulkRequest) (review.BulkResult, error) {
		return h.Reviewer.BulkDismiss(ctx, req.IDs, h.analyst(req.AnalystID), req.Notes)
	})
}

func (h *Handler) bulkTag(c *gin.Context) {
	h.bulk(c, "tagged", func(ctx context.Context, req bulkRequest) (review.BulkResult, error) {
		return h.Reviewer.BulkTag(ctx, req.IDs, req.Tag, h.analyst(req.AnalystID))
	})
}

func (h *Handler) bulk(c *gin.Context, verb string, apply func(context.Context, bulkRequest) (review.BulkResult, error)) {
	var req bulkRequest
	if err := bindOptional(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := apply(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"updated":      res.Updated,
		"skipped":      res.Skipped,
		"notification": notify.Bulk(verb, len(res.Updated), len(res.Skipped)),
	})
}

func (h *Handler) history(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	trail, err := h.Reviewer.History(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trail)
}
