package filter

import (
	"fmt"
	"slices"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

type SortKey string

const (
	SortTime   SortKey = "time"
	SortThreat SortKey = "threat"
)

type Order string

const (
	Desc Order = "desc"
	Asc  Order = "asc"
)

type Sorting struct {
	By    SortKey `json:"by"`
	Order Order   `json:"order"`
}

func DefaultSorting() Sorting {
	return Sorting{By: SortTime, Order: Desc}
}

// Toggle mirrors the queue header buttons: choosing the active key flips the
// order, choosing another key switches to it descending.
func (s Sorting) Toggle(key SortKey) Sorting {
	if s.By == key {
		if s.Order == Desc {
			return Sorting{By: key, Order: Asc}
		}
		return Sorting{By: key, Order: Desc}
	}
	return Sorting{By: key, Order: Desc}
}

func ParseSorting(by, order string) (Sorting, error) {
	s := DefaultSorting()
	switch SortKey(by) {
	case "":
	case SortTime, SortThreat:
		s.By = SortKey(by)
	default:
		return s, &ValidationError{Field: "sort", Value: by}
	}
	switch Order(order) {
	case "":
	case Asc, Desc:
		s.Order = Order(order)
	default:
		return s, &ValidationError{Field: "order", Value: order}
	}
	return s, nil
}

func (s Sorting) String() string {
	return fmt.Sprintf("%s %s", s.By, s.Order)
}

// Sort orders ds in place. Equal keys keep their relative order.
func Sort(ds []models.Detection, s Sorting) {
	slices.SortStableFunc(ds, func(a, b models.Detection) int {
		var c int
		if s.By == SortThreat {
			c = a.ThreatScore - b.ThreatScore
		} else {
			c = a.Timestamp.Compare(b.Timestamp)
		}
		if s.Order == Desc {
			return -c
		}
		return c
	})
}
