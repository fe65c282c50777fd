package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		fn(t, db)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
}

func detection(id string, ts time.Time, threat int, ais models.AISStatus) *models.Detection {
	return &models.Detection{
		ID:          id,
		VesselID:    "VSL-20260130-A" + id,
		Timestamp:   ts,
		Latitude:    9.1,
		Longitude:   79.2,
		AISStatus:   ais,
		SizeClass:   models.SizeMedium,
		ThreatScore: threat,
		Source:      models.SourceSimulated,
	}
}

func TestStore_AddAndGetDetection(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ts := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
		d := detection("001", ts, 85, models.AISOff)
		d.InsideMPA = true
		d.MPAName = "Gulf of Mannar Marine National Park"
		d.SAR = &models.SARFeatures{Area: 220, Intensity: 180, Elongation: 3.1, Backscatter: -12.5, Confidence: 0.82}

		if err := s.AddDetection(ctx, d); err != nil {
			t.Fatalf("AddDetection failed: %v", err)
		}

		got, err := s.GetDetection(ctx, "001")
		if err != nil {
			t.Fatalf("GetDetection failed: %v", err)
		}
		if got.VesselID != "VSL-20260130-A001" {
			t.Errorf("expected vessel id VSL-20260130-A001, got %s", got.VesselID)
		}
		if !got.Timestamp.Equal(ts) {
			t.Errorf("expected timestamp %v, got %v", ts, got.Timestamp)
		}
		if !got.InsideMPA || got.MPAName != d.MPAName {
			t.Errorf("mpa fields not persisted: %+v", got)
		}
		if got.SAR == nil || got.SAR.Area != 220 {
			t.Errorf("expected sar features, got %+v", got.SAR)
		}
		if got.Review.Status != models.ReviewPending {
			t.Errorf("expected pending review, got %s", got.Review.Status)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("expected updated_at to be set")
		}
	})
}

func TestStore_GetDetection_NotFound(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_, err := s.GetDetection(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_DuplicateAdd(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d := detection("dup", time.Now(), 10, models.AISOn)

		if err := s.AddDetection(ctx, d); err != nil {
			t.Fatalf("first AddDetection failed: %v", err)
		}
		if err := s.AddDetection(ctx, d); !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestStore_DetectionExists(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		exists, err := s.DetectionExists(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("DetectionExists failed: %v", err)
		}
		if exists {
			t.Error("expected false for nonexistent ID")
		}

		s.AddDetection(ctx, detection("here", time.Now(), 10, models.AISOn))

		exists, err = s.DetectionExists(ctx, "here")
		if err != nil {
			t.Fatalf("DetectionExists failed: %v", err)
		}
		if !exists {
			t.Error("expected true for existing ID")
		}
	})
}

func TestStore_ListDetections_WithFilters(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

		for _, d := range []*models.Detection{
			detection("a", now.Add(-3*time.Hour), 85, models.AISOff),
			detection("b", now.Add(-2*time.Hour), 15, models.AISOn),
			detection("c", now.Add(-1*time.Hour), 55, models.AISOff),
		} {
			s.AddDetection(ctx, d)
		}

		results, err := s.ListDetections(ctx, Filter{})
		if err != nil {
			t.Fatalf("ListDetections failed: %v", err)
		}
		if len(results) != 3 || results[0].ID != "c" || results[2].ID != "a" {
			t.Errorf("expected newest first [c b a], got %v", detectionIDs(results))
		}

		off := models.AISOff
		results, _ = s.ListDetections(ctx, Filter{AIS: &off})
		if len(results) != 2 {
			t.Errorf("expected 2 dark vessels, got %d", len(results))
		}

		minThreat := 50
		results, _ = s.ListDetections(ctx, Filter{MinThreat: &minThreat})
		if len(results) != 2 {
			t.Errorf("expected 2 detections with threat >= 50, got %d", len(results))
		}

		since := now.Add(-150 * time.Minute)
		results, _ = s.ListDetections(ctx, Filter{Since: &since})
		if len(results) != 2 {
			t.Errorf("expected 2 detections since %v, got %d", since, len(results))
		}

		results, _ = s.ListDetections(ctx, Filter{Limit: 1, Offset: 1})
		if len(results) != 1 || results[0].ID != "b" {
			t.Errorf("expected page [b], got %v", detectionIDs(results))
		}

		results, _ = s.ListDetections(ctx, Filter{IDs: []string{"a", "c", "zzz"}})
		if len(results) != 2 {
			t.Errorf("expected 2 detections by id, got %d", len(results))
		}
	})
}

func TestStore_UpdateReview(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		for _, id := range []string{"r1", "r2", "r3"} {
			s.AddDetection(ctx, detection(id, now, 60, models.AISOff))
		}

		u := ReviewUpdate{
			Status:     models.ReviewConfirmed,
			ReviewedAt: now,
			ReviewedBy: "analyst-001",
			Notes:      "fishing without AIS",
		}
		count, err := s.UpdateReview(ctx, []string{"r1", "r2"}, u)
		if err != nil {
			t.Fatalf("UpdateReview failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 rows affected, got %d", count)
		}

		got, _ := s.GetDetection(ctx, "r1")
		if got.Review.Status != models.ReviewConfirmed || got.Review.ReviewedBy != "analyst-001" {
			t.Errorf("review not applied: %+v", got.Review)
		}
		if got.Review.ReviewedAt == nil {
			t.Error("expected reviewed_at to be set")
		}

		// reviewed rows are left alone
		u.Status = models.ReviewDismissed
		count, err = s.UpdateReview(ctx, []string{"r1", "r3", "missing"}, u)
		if err != nil {
			t.Fatalf("UpdateReview failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 row affected, got %d", count)
		}
		got, _ = s.GetDetection(ctx, "r1")
		if got.Review.Status != models.ReviewConfirmed {
			t.Errorf("expected r1 to stay confirmed, got %s", got.Review.Status)
		}

		count, err = s.UpdateReview(ctx, nil, u)
		if err != nil || count != 0 {
			t.Errorf("expected 0 rows for empty ids, got %d, %v", count, err)
		}
	})
}

func TestStore_DeleteDetection(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		s.AddDetection(ctx, detection("gone", time.Now(), 10, models.AISOn))

		if err := s.DeleteDetection(ctx, "gone"); err != nil {
			t.Fatalf("DeleteDetection failed: %v", err)
		}
		if err := s.DeleteDetection(ctx, "gone"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestStore_ActionsAndTags(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		err := s.AddActions(ctx, []models.AnalystAction{
			{DetectionID: "d1", ActionType: models.ActionConfirmAnomaly, AnalystID: "analyst-001", Notes: "confirmed"},
			{DetectionID: "d2", ActionType: models.ActionDismissFalsePositive, AnalystID: "analyst-001"},
		})
		if err != nil {
			t.Fatalf("AddActions failed: %v", err)
		}
		actions, err := s.ListActions(ctx, "d1")
		if err != nil {
			t.Fatalf("ListActions failed: %v", err)
		}
		if len(actions) != 1 || actions[0].ActionType != models.ActionConfirmAnomaly || actions[0].ID == "" {
			t.Errorf("unexpected actions: %+v", actions)
		}

		err = s.AddTags(ctx, []models.DetectionTag{
			{DetectionID: "d1", Tag: "fishing", AddedBy: "analyst-001"},
			{DetectionID: "d1", Tag: "priority", AddedBy: "analyst-001"},
		})
		if err != nil {
			t.Fatalf("AddTags failed: %v", err)
		}
		tags, err := s.ListTags(ctx, "d1")
		if err != nil {
			t.Fatalf("ListTags failed: %v", err)
		}
		if len(tags) != 2 {
			t.Errorf("expected 2 tags, got %d", len(tags))
		}
	})
}

func TestStore_RegistryAndMPAs(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seen := time.Date(2026, 1, 29, 8, 0, 0, 0, time.UTC)

		err := s.AddVessel(ctx, &models.Vessel{
			VesselID:   "IND-001",
			Name:       "Sagar Mitra",
			MMSI:       "419000001",
			Flag:       "IN",
			LengthM:    32.5,
			TrustLevel: models.TrustTrusted,
			LastSeen:   &seen,
		})
		if err != nil {
			t.Fatalf("AddVessel failed: %v", err)
		}
		vessels, err := s.ListVessels(ctx)
		if err != nil {
			t.Fatalf("ListVessels failed: %v", err)
		}
		if len(vessels) != 1 || vessels[0].Name != "Sagar Mitra" || vessels[0].LastSeen == nil {
			t.Errorf("unexpected vessels: %+v", vessels)
		}

		mpa := &models.MarineProtectedArea{
			Name:        "Gulf of Mannar Marine National Park",
			Coordinates: [][2]float64{{8.8, 78.8}, {9.3, 78.8}, {9.3, 79.3}, {8.8, 79.3}},
			Established: 1986,
		}
		if err := s.AddMPA(ctx, mpa); err != nil {
			t.Fatalf("AddMPA failed: %v", err)
		}
		mpas, err := s.ListMPAs(ctx)
		if err != nil {
			t.Fatalf("ListMPAs failed: %v", err)
		}
		if len(mpas) != 1 || len(mpas[0].Coordinates) != 4 || mpas[0].Coordinates[2] != [2]float64{9.3, 79.3} {
			t.Errorf("unexpected mpas: %+v", mpas)
		}
	})
}

func TestStore_Positions(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

		for _, age := range []time.Duration{48 * time.Hour, 3 * time.Hour, time.Hour} {
			s.AddPosition(ctx, &models.PositionFix{VesselID: "IND-001", Latitude: 9, Longitude: 79, Timestamp: now.Add(-age)})
		}
		s.AddPosition(ctx, &models.PositionFix{VesselID: "OTHER", Timestamp: now})

		fixes, err := s.ListPositions(ctx, "IND-001", now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("ListPositions failed: %v", err)
		}
		if len(fixes) != 2 {
			t.Fatalf("expected 2 fixes in the last 24h, got %d", len(fixes))
		}
		if !fixes[0].Timestamp.Before(fixes[1].Timestamp) {
			t.Error("expected fixes oldest first")
		}
	})
}

func TestStore_Reports(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		for i, title := range []string{"older", "newer"} {
			err := s.AddReport(ctx, &models.Report{
				Type:            models.ReportCustom,
				Title:           title,
				DateFrom:        from,
				DateTo:          from.AddDate(0, 0, 7),
				TotalDetections: 12,
				AvgThreatScore:  48.25,
				GeneratedBy:     "analyst-001",
				CreatedAt:       from.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				t.Fatalf("AddReport failed: %v", err)
			}
		}

		reports, err := s.ListReports(ctx, 1)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(reports) != 1 || reports[0].Title != "newer" {
			t.Errorf("expected only the newest report, got %+v", reports)
		}
		if reports[0].AvgThreatScore != 48.25 {
			t.Errorf("expected avg 48.25, got %v", reports[0].AvgThreatScore)
		}
	})
}

func TestReadOnly(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	mem.AddDetection(ctx, detection("seed", time.Now(), 40, models.AISOn))

	ro := ReadOnly(mem)
	if !IsReadOnly(ro) {
		t.Error("expected IsReadOnly to report true")
	}
	if IsReadOnly(mem) {
		t.Error("memory store should accept writes")
	}

	if _, err := ro.GetDetection(ctx, "seed"); err != nil {
		t.Errorf("reads should pass through, got %v", err)
	}
	if err := ro.AddDetection(ctx, detection("x", time.Now(), 1, models.AISOn)); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if _, err := ro.UpdateReview(ctx, []string{"seed"}, ReviewUpdate{Status: models.ReviewConfirmed}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if err := ro.AddTags(ctx, nil); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func detectionIDs(ds []models.Detection) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}

func TestListDetections_OrderByUpdated(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

		// newest detection changed first
		a := detection("001", base.Add(2*time.Hour), 50, models.AISOn)
		a.UpdatedAt = base.Add(time.Minute)
		b := detection("002", base, 50, models.AISOn)
		b.UpdatedAt = base.Add(2 * time.Minute)
		for _, d := range []*models.Detection{a, b} {
			if err := s.AddDetection(ctx, d); err != nil {
				t.Fatalf("AddDetection failed: %v", err)
			}
		}

		ds, err := s.ListDetections(ctx, Filter{OrderByUpdated: true})
		if err != nil {
			t.Fatalf("ListDetections failed: %v", err)
		}
		if len(ds) != 2 || ds[0].ID != "001" || ds[1].ID != "002" {
			t.Errorf("expected oldest change first, got %v", ds)
		}

		ds, _ = s.ListDetections(ctx, Filter{})
		if len(ds) != 2 || ds[0].ID != "001" {
			t.Errorf("expected newest detection first by default, got %v", ds)
		}
	})
}

func TestListDetections_UntilExclusive(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		midnight := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

		s.AddDetection(ctx, detection("001", midnight.Add(-500*time.Millisecond), 50, models.AISOn))
		s.AddDetection(ctx, detection("002", midnight, 50, models.AISOn))

		ds, err := s.ListDetections(ctx, Filter{Until: &midnight})
		if err != nil {
			t.Fatalf("ListDetections failed: %v", err)
		}
		if len(ds) != 1 || ds[0].ID != "001" {
			t.Errorf("expected only the detection before midnight, got %v", ds)
		}
	})
}
