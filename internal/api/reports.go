package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/report"
)

type reportRequest struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	From  string `json:"from"` // YYYY-MM-DD, defaults to today
	To    string `json:"to"`
}

func parseDay(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(report.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
	}
	return t, nil
}

func (h *Handler) createReport(c *gin.Context) {
	var body reportRequest
	if err := bindOptional(c, &body); err != nil {
		fail(c, err)
		return
	}

	today := h.now()
	from, err := parseDay(body.From, today)
	if err != nil {
		fail(c, err)
		return
	}
	to, err := parseDay(body.To, today)
	if err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Reports.Generate(ctx, report.Request{
		Type:        models.ReportType(body.Type),
		Title:       body.Title,
		From:        from,
		To:          to,
		GeneratedBy: h.Config.Analyst.ID,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	c.Header("X-Report-Total", strconv.Itoa(res.Summary.Total))
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

func (h *Handler) listReports(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reports, err := h.Reports.List(ctx, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}
