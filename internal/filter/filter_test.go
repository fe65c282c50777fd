package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

var base = time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

func sample() []models.Detection {
	return []models.Detection{
		{VesselID: "VSL-20260130-A001", Timestamp: base.Add(-3 * time.Hour), ThreatScore: 85, AISStatus: models.AISOff, InsideMPA: true, VesselSize: "Large (45-60m)", SizeClass: models.SizeLarge, Review: models.Review{Status: models.ReviewPending}},
		{VesselID: "VSL-20260130-A002", Timestamp: base.Add(-2 * time.Hour), ThreatScore: 15, AISStatus: models.AISOn, VesselSize: "25m", SizeClass: models.SizeSmall, Review: models.Review{Status: models.ReviewConfirmed}},
		{VesselID: "VSL-20260130-A003", Timestamp: base.Add(-1 * time.Hour), ThreatScore: 55, AISStatus: models.AISOff, VesselSize: "38m", Review: models.Review{Status: models.ReviewDismissed}},
		{VesselID: "VSL-20260129-M004", Timestamp: base.Add(-26 * time.Hour), ThreatScore: 40, AISStatus: models.AISOn, InsideMPA: true, VesselSize: "Medium (30-40m)", SizeClass: models.SizeMedium, Review: models.Review{Status: models.ReviewPending}},
	}
}

func ids(ds []models.Detection) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.VesselID
	}
	return out
}

func TestDefault_MatchesEverything(t *testing.T) {
	c := Default()
	assert.Len(t, c.Apply(sample()), 4)
	assert.Equal(t, 0, c.ActiveCount())
}

func TestCriteria_Narrowing(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Criteria)
		want   []string
	}{
		{"search is case-insensitive", func(c *Criteria) { c.Search = "a00" }, []string{"VSL-20260130-A001", "VSL-20260130-A002", "VSL-20260130-A003"}},
		{"manual entries", func(c *Criteria) { c.Search = "-m" }, []string{"VSL-20260129-M004"}},
		{"threat range", func(c *Criteria) { c.ThreatMin, c.ThreatMax = 40, 60 }, []string{"VSL-20260130-A003", "VSL-20260129-M004"}},
		{"ais off", func(c *Criteria) { c.AIS = AISOff }, []string{"VSL-20260130-A001", "VSL-20260130-A003"}},
		{"ais on", func(c *Criteria) { c.AIS = AISOn }, []string{"VSL-20260130-A002", "VSL-20260129-M004"}},
		{"pending", func(c *Criteria) { c.Review = "pending" }, []string{"VSL-20260130-A001", "VSL-20260129-M004"}},
		{"confirmed", func(c *Criteria) { c.Review = "confirmed" }, []string{"VSL-20260130-A002"}},
		{"dismissed", func(c *Criteria) { c.Review = "dismissed" }, []string{"VSL-20260130-A003"}},
		{"inside mpa", func(c *Criteria) { c.MPA = MPAInside }, []string{"VSL-20260130-A001", "VSL-20260129-M004"}},
		{"outside mpa", func(c *Criteria) { c.MPA = MPAOutside }, []string{"VSL-20260130-A002", "VSL-20260130-A003"}},
		{"size from label", func(c *Criteria) { c.Size = "medium" }, []string{"VSL-20260130-A003", "VSL-20260129-M004"}},
		{"date range", func(c *Criteria) {
			from := base.Add(-150 * time.Minute)
			c.From = &from
		}, []string{"VSL-20260130-A002", "VSL-20260130-A003"}},
		{"combined", func(c *Criteria) { c.AIS = AISOff; c.MPA = MPAInside }, []string{"VSL-20260130-A001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			assert.Equal(t, tt.want, ids(c.Apply(sample())))
		})
	}
}

func TestFromQuery_ToCoversWholeDay(t *testing.T) {
	q := url.Values{}
	q.Set("to", "2026-01-30")
	c, err := FromQuery(q)
	require.NoError(t, err)

	ds := []models.Detection{
		{VesselID: "last-second", Timestamp: time.Date(2026, 1, 30, 23, 59, 59, 999_000_000, time.UTC)},
		{VesselID: "midnight", Timestamp: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	assert.Equal(t, []string{"last-second"}, ids(c.Apply(ds)))
}

func TestCriteria_ActiveCount(t *testing.T) {
	c := Default()
	from := base
	to := base
	c.From, c.To = &from, &to
	c.ThreatMax = 90
	c.Search = "VSL"
	c.AIS = AISOff
	c.Review = "pending"

	assert.Equal(t, 5, c.ActiveCount())
}

func TestFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("search", " A001 ")
	q.Set("from", "2026-01-30")
	q.Set("to", "2026-01-30")
	q.Set("threat_min", "10")
	q.Set("ais", "OFF")
	q.Set("mpa", "yes")

	c, err := FromQuery(q)
	require.NoError(t, err)

	assert.Equal(t, "A001", c.Search)
	require.NotNil(t, c.From)
	require.NotNil(t, c.To)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *c.To)
	assert.Equal(t, 10, c.ThreatMin)
	assert.Equal(t, 100, c.ThreatMax)
	assert.Equal(t, AISOff, c.AIS)
	assert.Equal(t, MPAInside, c.MPA)
	assert.Equal(t, All, c.Review)
}

func TestFromQuery_Invalid(t *testing.T) {
	tests := map[string]string{
		"from":       "30/01/2026",
		"threat_min": "-1",
		"threat_max": "101",
		"ais":        "sometimes",
		"review":     "archived",
		"size":       "huge",
	}

	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := FromQuery(url.Values{key: []string{val}})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, key, verr.Field)
		})
	}

	_, err := FromQuery(url.Values{"threat_min": {"80"}, "threat_max": {"20"}})
	assert.Error(t, err, "min above max must be rejected")
}

func TestVesselCriteria(t *testing.T) {
	vessels := []models.Vessel{
		{VesselID: "IND-001", Name: "Sagar Mitra", TrustLevel: models.TrustTrusted},
		{VesselID: "UNK-042", Name: "Unknown Trawler", TrustLevel: models.TrustSuspicious},
		{VesselID: "SLK-007", Name: "Ocean Pearl", TrustLevel: models.TrustBlacklisted},
	}

	got := VesselCriteria{Search: "trawler"}.Apply(vessels)
	require.Len(t, got, 1)
	assert.Equal(t, "UNK-042", got[0].VesselID)

	got = VesselCriteria{Search: "slk"}.Apply(vessels)
	require.Len(t, got, 1)
	assert.Equal(t, "Ocean Pearl", got[0].Name)

	got = VesselCriteria{Trust: "blacklisted"}.Apply(vessels)
	require.Len(t, got, 1)

	assert.Len(t, VesselCriteria{Trust: All}.Apply(vessels), 3)
}
