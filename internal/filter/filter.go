// Package filter narrows and orders detection lists the way the analyst
// queue presents them.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

const (
	All = "all"

	AISOn  = "on"
	AISOff = "off"

	MPAInside  = "yes"
	MPAOutside = "no"
)

type Criteria struct {
	Search    string     `json:"search,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	ThreatMin int        `json:"threat_min"`
	ThreatMax int        `json:"threat_max"`
	AIS       string     `json:"ais"`
	Review    string     `json:"review"`
	MPA       string     `json:"mpa"`
	Size      string     `json:"size"`
}

func Default() Criteria {
	return Criteria{
		ThreatMin: 0,
		ThreatMax: 100,
		AIS:       All,
		Review:    All,
		MPA:       All,
		Size:      All,
	}
}

// ActiveCount is the number of filter groups narrowing the result; the date
// range counts once.
func (c Criteria) ActiveCount() int {
	n := 0
	if c.From != nil || c.To != nil {
		n++
	}
	if c.ThreatMin > 0 || c.ThreatMax < 100 {
		n++
	}
	if c.Search != "" {
		n++
	}
	for _, v := range []string{c.AIS, c.Review, c.MPA, c.Size} {
		if v != "" && v != All {
			n++
		}
	}
	return n
}

func (c Criteria) Matches(d *models.Detection) bool {
	if c.Search != "" && !strings.Contains(strings.ToLower(d.VesselID), strings.ToLower(c.Search)) {
		return false
	}
	if c.From != nil && d.Timestamp.Before(*c.From) {
		return false
	}
	if c.To != nil && !d.Timestamp.Before(*c.To) {
		return false
	}
	if d.ThreatScore < c.ThreatMin || d.ThreatScore > c.ThreatMax {
		return false
	}

	switch c.AIS {
	case AISOn:
		if d.AISStatus != models.AISOn {
			return false
		}
	case AISOff:
		if d.AISStatus != models.AISOff {
			return false
		}
	}

	switch c.Review {
	case "", All:
	case string(models.ReviewPending):
		if d.Reviewed() {
			return false
		}
	default:
		if string(d.Review.Status) != c.Review {
			return false
		}
	}

	switch c.MPA {
	case MPAInside:
		if !d.InsideMPA {
			return false
		}
	case MPAOutside:
		if d.InsideMPA {
			return false
		}
	}

	if c.Size != "" && c.Size != All {
		class := d.SizeClass
		if class == "" || class == models.SizeUnknown {
			class = models.ParseSizeClass(d.VesselSize)
		}
		if string(class) != c.Size {
			return false
		}
	}

	return true
}

func (c Criteria) Apply(ds []models.Detection) []models.Detection {
	out := make([]models.Detection, 0, len(ds))
	for i := range ds {
		if c.Matches(&ds[i]) {
			out = append(out, ds[i])
		}
	}
	return out
}

// ValidationError reports a malformed filter parameter.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// FromQuery reads criteria from request parameters. Dates are YYYY-MM-DD;
// "to" covers the whole day and is stored as the following midnight.
func FromQuery(q url.Values) (Criteria, error) {
	c := Default()
	c.Search = strings.TrimSpace(q.Get("search"))

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return c, &ValidationError{Field: "from", Value: s}
		}
		c.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return c, &ValidationError{Field: "to", Value: s}
		}
		end := NextDay(t)
		c.To = &end
	}

	var err error
	if c.ThreatMin, err = parseScore(q, "threat_min", 0); err != nil {
		return c, err
	}
	if c.ThreatMax, err = parseScore(q, "threat_max", 100); err != nil {
		return c, err
	}
	if c.ThreatMin > c.ThreatMax {
		return c, &ValidationError{Field: "threat_min", Value: strconv.Itoa(c.ThreatMin)}
	}

	if c.AIS, err = parseChoice(q, "ais", AISOn, AISOff); err != nil {
		return c, err
	}
	if c.Review, err = parseChoice(q, "review", string(models.ReviewPending), string(models.ReviewConfirmed), string(models.ReviewDismissed)); err != nil {
		return c, err
	}
	if c.MPA, err = parseChoice(q, "mpa", MPAInside, MPAOutside); err != nil {
		return c, err
	}
	if c.Size, err = parseChoice(q, "size", string(models.SizeSmall), string(models.SizeMedium), string(models.SizeLarge)); err != nil {
		return c, err
	}

	return c, nil
}

// NextDay is the exclusive upper bound of the day starting at t.
func NextDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}

func parseScore(q url.Values, key string, fallback int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 100 {
		return fallback, &ValidationError{Field: key, Value: s}
	}
	return v, nil
}

func parseChoice(q url.Values, key string, allowed ...string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(q.Get(key)))
	if s == "" || s == All {
		return All, nil
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return All, &ValidationError{Field: key, Value: s}
}
