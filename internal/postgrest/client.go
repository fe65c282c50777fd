// Package postgrest talks to the hosted surveillance backend through its
// PostgREST interface.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/repository"
)

const (
	tableDetections = "vessel_detections"
	tableActions    = "analyst_actions"
	tableTags       = "detection_tags"
	tableRegistry   = "vessel_registry"
	tableMPAs       = "marine_protected_areas"
	tablePositions  = "vessel_position_history"
	tableReports    = "generated_reports"
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

var _ repository.Store = (*Client)(nil)

// New returns a client for the backend at baseURL. A nil httpClient gets a
// client with the given timeout.
func New(baseURL, key string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: httpClient,
	}
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding %s payload: %w", table, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		slog.Debug("backend error", "method", method, "table", table, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", table, err)
	}
	return nil
}

func mapError(err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, apiErr.Message)
	}
	return err
}

func inList(ids []string) string {
	return "in.(" + strings.Join(ids, ",") + ")"
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (c *Client) AddDetection(ctx context.Context, d *models.Detection) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	if d.Review.Status == "" {
		d.Review.Status = models.ReviewPending
	}

	var rows []detectionRow
	if err := c.do(ctx, http.MethodPost, tableDetections, nil, toDetectionRow(d), &rows); err != nil {
		return mapError(err)
	}
	if len(rows) > 0 {
		*d = rows[0].toModel()
	}
	return nil
}

func (c *Client) GetDetection(ctx context.Context, id string) (*models.Detection, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var rows []detectionRow
	if err := c.do(ctx, http.MethodGet, tableDetections, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	d := rows[0].toModel()
	return &d, nil
}

func (c *Client) DetectionExists(ctx context.Context, id string) (bool, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, tableDetections, q, nil, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (c *Client) ListDetections(ctx context.Context, opts repository.Filter) ([]models.Detection, error) {
	q := url.Values{}
	if opts.Since != nil {
		q.Add("timestamp", "gte."+stamp(*opts.Since))
	}
	if opts.Until != nil {
		q.Add("timestamp", "lt."+stamp(*opts.Until))
	}
	if opts.UpdatedSince != nil {
		q.Set("updated_at", "gt."+stamp(*opts.UpdatedSince))
	}
	if opts.Review != nil {
		q.Set("review_status", "eq."+string(*opts.Review))
	}
	if opts.AIS != nil {
		q.Set("ais_status", "eq."+string(*opts.AIS))
	}
	if opts.MinThreat != nil {
		q.Set("threat_score", "gte."+strconv.Itoa(*opts.MinThreat))
	}
	if len(opts.IDs) > 0 {
		q.Set("id", inList(opts.IDs))
	}
	if opts.OrderByUpdated {
		q.Set("order", "updated_at.asc,id.asc")
	} else {
		q.Set("order", "timestamp.desc,id.asc")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var rows []detectionRow
	if err := c.do(ctx, http.MethodGet, tableDetections, q, nil, &rows); err != nil {
		return nil, err
	}

	results := make([]models.Detection, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toModel())
	}
	return results, nil
}

func (c *Client) UpdateReview(ctx context.Context, ids []string, u repository.ReviewUpdate) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := url.Values{}
	q.Set("id", inList(ids))
	q.Set("review_status", "eq."+string(models.ReviewPending))
	q.Set("select", "id")

	at := u.ReviewedAt.UTC()
	patch := map[string]any{
		"review_status": u.Status,
		"reviewed_at":   at,
		"reviewed_by":   u.ReviewedBy,
		"notes":         u.Notes,
		"updated_at":    at,
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPatch, tableDetections, q, patch, &rows); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (c *Client) DeleteDetection(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "id")

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodDelete, tableDetections, q, nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *Client) AddActions(ctx context.Context, actions []models.AnalystAction) error {
	if len(actions) == 0 {
		return nil
	}
	for i := range actions {
		if actions[i].ID == "" {
			actions[i].ID = uuid.NewString()
		}
		if actions[i].CreatedAt.IsZero() {
			actions[i].CreatedAt = time.Now().UTC()
		}
	}
	return c.do(ctx, http.MethodPost, tableActions, nil, actions, nil)
}

func (c *Client) ListActions(ctx context.Context, detectionID string) ([]models.AnalystAction, error) {
	q := url.Values{}
	q.Set("vessel_detection_id", "eq."+detectionID)
	q.Set("order", "created_at.asc")

	var out []models.AnalystAction
	if err := c.do(ctx, http.MethodGet, tableActions, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddTags(ctx context.Context, tags []models.DetectionTag) error {
	if len(tags) == 0 {
		return nil
	}
	for i := range tags {
		if tags[i].ID == "" {
			tags[i].ID = uuid.NewString()
		}
		if tags[i].CreatedAt.IsZero() {
			tags[i].CreatedAt = time.Now().UTC()
		}
	}
	return c.do(ctx, http.MethodPost, tableTags, nil, tags, nil)
}

func (c *Client) ListTags(ctx context.Context, detectionID string) ([]models.DetectionTag, error) {
	q := url.Values{}
	q.Set("vessel_detection_id", "eq."+detectionID)
	q.Set("order", "created_at.asc")

	var out []models.DetectionTag
	if err := c.do(ctx, http.MethodGet, tableTags, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddVessel(ctx context.Context, v *models.Vessel) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return mapError(c.do(ctx, http.MethodPost, tableRegistry, nil, v, nil))
}

func (c *Client) ListVessels(ctx context.Context) ([]models.Vessel, error) {
	q := url.Values{}
	q.Set("order", "created_at.desc")

	out := []models.Vessel{}
	if err := c.do(ctx, http.MethodGet, tableRegistry, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddMPA(ctx context.Context, m *models.MarineProtectedArea) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return mapError(c.do(ctx, http.MethodPost, tableMPAs, nil, m, nil))
}

func (c *Client) ListMPAs(ctx context.Context) ([]models.MarineProtectedArea, error) {
	q := url.Values{}
	q.Set("order", "name.asc")

	out := []models.MarineProtectedArea{}
	if err := c.do(ctx, http.MethodGet, tableMPAs, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddPosition(ctx context.Context, p *models.PositionFix) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return c.do(ctx, http.MethodPost, tablePositions, nil, p, nil)
}

func (c *Client) ListPositions(ctx context.Context, vesselID string, since time.Time) ([]models.PositionFix, error) {
	q := url.Values{}
	q.Set("vessel_id", "eq."+vesselID)
	q.Set("timestamp", "gte."+stamp(since))
	q.Set("order", "timestamp.asc")

	var out []models.PositionFix
	if err := c.do(ctx, http.MethodGet, tablePositions, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return c.do(ctx, http.MethodPost, tableReports, nil, r, nil)
}

func (c *Client) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	q := url.Values{}
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	out := []models.Report{}
	if err := c.do(ctx, http.MethodGet, tableReports, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
