package simulation

// Zone is a rectangular patch of sea the generator samples positions from.
type Zone struct {
	Name   string
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
	MPA    bool
}

// MaritimeZones covers the coastal waters of the Bay of Bengal and the
// Indian Ocean watched by the dashboard.
var MaritimeZones = []Zone{
	{Name: "Gulf of Mannar", LatMin: 8.5, LatMax: 9.5, LonMin: 78.0, LonMax: 79.5, MPA: true},
	{Name: "Palk Bay", LatMin: 9.0, LatMax: 10.0, LonMin: 79.0, LonMax: 80.0, MPA: true},
	{Name: "Andaman Sea", LatMin: 11.0, LatMax: 13.0, LonMin: 92.5, LonMax: 94.0},
	{Name: "Bay of Bengal - East Coast", LatMin: 12.0, LatMax: 15.0, LonMin: 80.0, LonMax: 82.5},
}

// oceanZones are open-water boxes between India and Sri Lanka used by the
// SAR pipeline.
var oceanZones = []Zone{
	{Name: "Northern Gulf of Mannar", LatMin: 8.8, LatMax: 9.3, LonMin: 78.1, LonMax: 79.5},
	{Name: "Central Gulf of Mannar", LatMin: 8.5, LatMax: 9.0, LonMin: 78.0, LonMax: 79.3},
	{Name: "Southern approaches", LatMin: 8.2, LatMax: 8.7, LonMin: 77.8, LonMax: 79.0},
}

var vesselSizes = []string{"Small (15-25m)", "25m", "Medium (30-40m)", "38m", "Large (45-60m)", "52m"}
