// Package geo resolves positions against marine protected area polygons.
package geo

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

type area struct {
	mpa     models.MarineProtectedArea
	polygon orb.Polygon
	bound   orb.Bound
}

// Index answers point-in-MPA queries. It is safe for concurrent use and
// Replace swaps the whole catalogue at once.
type Index struct {
	mu    sync.RWMutex
	areas []area
}

func NewIndex(mpas []models.MarineProtectedArea) *Index {
	idx := &Index{}
	idx.Replace(mpas)
	return idx
}

// Replace rebuilds the index from mpas. Areas without a usable polygon are
// dropped.
func (i *Index) Replace(mpas []models.MarineProtectedArea) {
	areas := make([]area, 0, len(mpas))
	for _, m := range mpas {
		poly := Polygon(m.Coordinates)
		if len(poly) == 0 {
			continue
		}
		areas = append(areas, area{mpa: m, polygon: poly, bound: poly.Bound()})
	}

	i.mu.Lock()
	i.areas = areas
	i.mu.Unlock()
}

// Polygon converts [lat, lon] pairs into a closed orb polygon (lon, lat).
// Fewer than three distinct vertices yields nil.
func Polygon(coords [][2]float64) orb.Polygon {
	if len(coords) < 3 {
		return nil
	}
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, orb.Point{c[1], c[0]})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil
	}
	return orb.Polygon{ring}
}

// Locate returns the first protected area containing the position.
func (i *Index) Locate(lat, lon float64) (*models.MarineProtectedArea, bool) {
	if i == nil {
		return nil, false
	}
	pt := orb.Point{lon, lat}

	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, a := range i.areas {
		if !a.bound.Contains(pt) {
			continue
		}
		if planar.PolygonContains(a.polygon, pt) {
			m := a.mpa
			return &m, true
		}
	}
	return nil, false
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.areas)
}

func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// DistanceKm is the great-circle distance between two positions.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return orbgeo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2}) / 1000
}

// DefaultMPAs are the protected areas used when no catalogue is available.
func DefaultMPAs() []models.MarineProtectedArea {
	return []models.MarineProtectedArea{
		{
			ID:   "mpa-gulf-of-mannar",
			Name: "Gulf of Mannar Marine National Park",
			Coordinates: [][2]float64{
				{9.05, 78.8},
				{9.05, 79.3},
				{8.7, 79.3},
				{8.7, 78.8},
				{9.05, 78.8},
			},
			Established: 1986,
			Area:        "560 km²",
		},
		{
			ID:   "mpa-palk-bay",
			Name: "Palk Bay Protected Zone",
			Coordinates: [][2]float64{
				{9.3, 79.0},
				{9.6, 79.4},
				{9.2, 79.6},
				{9.0, 79.2},
				{9.3, 79.0},
			},
			Established: 2001,
			Area:        "320 km²",
		},
	}
}
