package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/sentinel-sea/internal/filter"
	"github.com/mr1hm/sentinel-sea/internal/intake"
	"github.com/mr1hm/sentinel-sea/internal/notify"
	"github.com/mr1hm/sentinel-sea/internal/report"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/review"
)

func statusFor(err error) int {
	var verr *intake.ValidationError
	var ferr *filter.ValidationError
	switch {
	case errors.As(err, &verr), errors.As(err, &ferr),
		errors.Is(err, review.ErrInvalidTag),
		errors.Is(err, review.ErrNoSelection),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, report.ErrInvalidType),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrAlreadyReviewed), errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, repository.ErrReadOnly):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// fail writes err as {"error": msg}. Server errors are logged and their
// detail withheld.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "internal error"
	}

	body := gin.H{"error": msg}
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	if c.Request.Method != http.MethodGet {
		body["notification"] = notify.Failed(errors.New(msg))
	}
	c.AbortWithStatusJSON(status, body)
}
