package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// A second connection to ":memory:" would open a different database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS vessel_detections (
			id TEXT PRIMARY KEY,
			vessel_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			ais_status TEXT NOT NULL,
			vessel_size TEXT,
			size_class TEXT NOT NULL,
			estimated_length INTEGER,
			threat_score INTEGER NOT NULL,
			has_sar INTEGER NOT NULL DEFAULT 0,
			sar_area REAL,
			sar_intensity REAL,
			sar_elongation REAL,
			sar_backscatter REAL,
			sar_confidence REAL,
			inside_mpa INTEGER NOT NULL DEFAULT 0,
			mpa_name TEXT,
			maritime_zone TEXT,
			source TEXT NOT NULL,
			review_status TEXT NOT NULL DEFAULT 'pending',
			reviewed_at DATETIME,
			reviewed_by TEXT,
			review_notes TEXT,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS analyst_actions (
			id TEXT PRIMARY KEY,
			vessel_detection_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			analyst_id TEXT NOT NULL,
			notes TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS detection_tags (
			id TEXT PRIMARY KEY,
			vessel_detection_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			added_by TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS vessel_registry (
			id TEXT PRIMARY KEY,
			vessel_id TEXT NOT NULL UNIQUE,
			vessel_name TEXT NOT NULL,
			mmsi TEXT,
			imo TEXT,
			flag TEXT,
			vessel_type TEXT,
			length_m REAL,
			trust_level TEXT NOT NULL,
			last_seen DATETIME,
			notes TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS marine_protected_areas (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			coordinates TEXT NOT NULL,
			established INTEGER,
			area TEXT
		);

		CREATE TABLE IF NOT EXISTS vessel_position_history (
			id TEXT PRIMARY KEY,
			vessel_id TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			speed_knots REAL,
			heading REAL,
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS generated_reports (
			id TEXT PRIMARY KEY,
			report_type TEXT NOT NULL,
			report_title TEXT NOT NULL,
			date_from DATETIME NOT NULL,
			date_to DATETIME NOT NULL,
			summary TEXT,
			total_detections INTEGER NOT NULL,
			high_threat_count INTEGER NOT NULL,
			mpa_intrusions INTEGER NOT NULL,
			dark_vessels INTEGER NOT NULL,
			avg_threat_score REAL NOT NULL,
			generated_by TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON vessel_detections(timestamp);
		CREATE INDEX IF NOT EXISTS idx_detections_updated_at ON vessel_detections(updated_at);
		CREATE INDEX IF NOT EXISTS idx_actions_detection_id ON analyst_actions(vessel_detection_id);
		CREATE INDEX IF NOT EXISTS idx_tags_detection_id ON detection_tags(vessel_detection_id);
		CREATE INDEX IF NOT EXISTS idx_positions_vessel_id ON vessel_position_history(vessel_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

const detectionColumns = `id, vessel_id, timestamp, latitude, longitude, ais_status, vessel_size,
	size_class, estimated_length, threat_score, has_sar, sar_area, sar_intensity, sar_elongation,
	sar_backscatter, sar_confidence, inside_mpa, mpa_name, maritime_zone, source, review_status,
	reviewed_at, reviewed_by, review_notes, updated_at`

func (s *SQLiteDB) AddDetection(ctx context.Context, d *models.Detection) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	if d.Review.Status == "" {
		d.Review.Status = models.ReviewPending
	}

	var sar models.SARFeatures
	if d.SAR != nil {
		sar = *d.SAR
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO vessel_detections (`+detectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.VesselID, d.Timestamp.UTC(), d.Latitude, d.Longitude, string(d.AISStatus), d.VesselSize,
		string(d.SizeClass), d.EstimatedLength, d.ThreatScore, d.SAR != nil, sar.Area, sar.Intensity, sar.Elongation,
		sar.Backscatter, sar.Confidence, d.InsideMPA, d.MPAName, d.MaritimeZone, string(d.Source), string(d.Review.Status),
		nullTime(d.Review.ReviewedAt), d.Review.ReviewedBy, d.Review.Notes, d.UpdatedAt.UTC(),
	)
	if err != nil {
		if isConstraint(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting detection: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetDetection(ctx context.Context, id string) (*models.Detection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+detectionColumns+` FROM vessel_detections WHERE id = ?`, id)
	d, err := scanDetection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading detection %s: %w", id, err)
	}
	return d, nil
}

func (s *SQLiteDB) DetectionExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM vessel_detections WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListDetections(ctx context.Context, opts Filter) ([]models.Detection, error) {
	query := `SELECT ` + detectionColumns + ` FROM vessel_detections WHERE 1=1`
	var args []any

	if opts.Since != nil {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since.UTC())
	}
	if opts.Until != nil {
		query += " AND timestamp < ?"
		args = append(args, opts.Until.UTC())
	}
	if opts.UpdatedSince != nil {
		query += " AND updated_at > ?"
		args = append(args, opts.UpdatedSince.UTC())
	}
	if opts.Review != nil {
		query += " AND review_status = ?"
		args = append(args, string(*opts.Review))
	}
	if opts.AIS != nil {
		query += " AND ais_status = ?"
		args = append(args, string(*opts.AIS))
	}
	if opts.MinThreat != nil {
		query += " AND threat_score >= ?"
		args = append(args, *opts.MinThreat)
	}
	if len(opts.IDs) > 0 {
		query += " AND id IN (" + placeholders(len(opts.IDs)) + ")"
		for _, id := range opts.IDs {
			args = append(args, id)
		}
	}

	if opts.OrderByUpdated {
		query += " ORDER BY updated_at ASC, id ASC"
	} else {
		query += " ORDER BY timestamp DESC, id ASC"
	}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing detections: %w", err)
	}
	defer rows.Close()

	results := []models.Detection{}
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning detection: %w", err)
		}
		results = append(results, *d)
	}
	return results, rows.Err()
}

func (s *SQLiteDB) UpdateReview(ctx context.Context, ids []string, u ReviewUpdate) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := []any{string(u.Status), u.ReviewedAt.UTC(), u.ReviewedBy, u.Notes, u.ReviewedAt.UTC()}
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE vessel_detections
		SET review_status = ?, reviewed_at = ?, reviewed_by = ?, review_notes = ?, updated_at = ?
		WHERE review_status = 'pending' AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("error updating review: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) DeleteDetection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vessel_detections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) AddActions(ctx context.Context, actions []models.AnalystAction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range actions {
		a := &actions[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO analyst_actions
			(id, vessel_detection_id, action_type, analyst_id, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.DetectionID, string(a.ActionType), a.AnalystID, a.Notes, a.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("error inserting analyst action: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDB) ListActions(ctx context.Context, detectionID string) ([]models.AnalystAction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vessel_detection_id, action_type, analyst_id, notes, created_at
		FROM analyst_actions WHERE vessel_detection_id = ? ORDER BY created_at ASC`, detectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AnalystAction
	for rows.Next() {
		var a models.AnalystAction
		var actionType string
		var notes sql.NullString
		if err := rows.Scan(&a.ID, &a.DetectionID, &actionType, &a.AnalystID, &notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ActionType = models.ActionType(actionType)
		a.Notes = notes.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) AddTags(ctx context.Context, tags []models.DetectionTag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range tags {
		t := &tags[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO detection_tags
			(id, vessel_detection_id, tag, added_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.DetectionID, t.Tag, t.AddedBy, t.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("error inserting tag: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDB) ListTags(ctx context.Context, detectionID string) ([]models.DetectionTag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vessel_detection_id, tag, added_by, created_at
		FROM detection_tags WHERE vessel_detection_id = ? ORDER BY created_at ASC`, detectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DetectionTag
	for rows.Next() {
		var t models.DetectionTag
		if err := rows.Scan(&t.ID, &t.DetectionID, &t.Tag, &t.AddedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) AddVessel(ctx context.Context, v *models.Vessel) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO vessel_registry
		(id, vessel_id, vessel_name, mmsi, imo, flag, vessel_type, length_m, trust_level, last_seen, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.VesselID, v.Name, v.MMSI, v.IMO, v.Flag, v.Type, v.LengthM, string(v.TrustLevel),
		nullTime(v.LastSeen), v.Notes, v.CreatedAt.UTC())
	if err != nil {
		if isConstraint(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting vessel: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListVessels(ctx context.Context) ([]models.Vessel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vessel_id, vessel_name, mmsi, imo, flag, vessel_type,
		length_m, trust_level, last_seen, notes, created_at FROM vessel_registry ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Vessel{}
	for rows.Next() {
		var v models.Vessel
		var mmsi, imo, flag, vtype, notes sql.NullString
		var length sql.NullFloat64
		var trust string
		var lastSeen sql.NullTime
		if err := rows.Scan(&v.ID, &v.VesselID, &v.Name, &mmsi, &imo, &flag, &vtype,
			&length, &trust, &lastSeen, &notes, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.MMSI, v.IMO, v.Flag, v.Type, v.Notes = mmsi.String, imo.String, flag.String, vtype.String, notes.String
		v.LengthM = length.Float64
		v.TrustLevel = models.TrustLevel(trust)
		if lastSeen.Valid {
			t := lastSeen.Time
			v.LastSeen = &t
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) AddMPA(ctx context.Context, m *models.MarineProtectedArea) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	coords, err := json.Marshal(m.Coordinates)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO marine_protected_areas (id, name, coordinates, established, area)
		VALUES (?, ?, ?, ?, ?)`, m.ID, m.Name, string(coords), m.Established, m.Area)
	if err != nil {
		if isConstraint(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting mpa: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListMPAs(ctx context.Context) ([]models.MarineProtectedArea, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, coordinates, established, area
		FROM marine_protected_areas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.MarineProtectedArea{}
	for rows.Next() {
		var m models.MarineProtectedArea
		var coords string
		var established sql.NullInt64
		var area sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &coords, &established, &area); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(coords), &m.Coordinates); err != nil {
			return nil, fmt.Errorf("mpa %s: bad coordinates: %w", m.ID, err)
		}
		m.Established = int(established.Int64)
		m.Area = area.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) AddPosition(ctx context.Context, p *models.PositionFix) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO vessel_position_history
		(id, vessel_id, latitude, longitude, speed_knots, heading, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.VesselID, p.Latitude, p.Longitude, p.SpeedKnots, p.Heading, p.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("error inserting position: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListPositions(ctx context.Context, vesselID string, since time.Time) ([]models.PositionFix, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vessel_id, latitude, longitude, speed_knots, heading, timestamp
		FROM vessel_position_history WHERE vessel_id = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		vesselID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PositionFix
	for rows.Next() {
		var p models.PositionFix
		var speed, heading sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.VesselID, &p.Latitude, &p.Longitude, &speed, &heading, &p.Timestamp); err != nil {
			return nil, err
		}
		p.SpeedKnots, p.Heading = speed.Float64, heading.Float64
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) AddReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO generated_reports
		(id, report_type, report_title, date_from, date_to, summary, total_detections, high_threat_count,
		 mpa_intrusions, dark_vessels, avg_threat_score, generated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Type), r.Title, r.DateFrom.UTC(), r.DateTo.UTC(), r.Summary, r.TotalDetections,
		r.HighThreatCount, r.MPAIntrusions, r.DarkVessels, r.AvgThreatScore, r.GeneratedBy, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("error inserting report: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	query := `SELECT id, report_type, report_title, date_from, date_to, summary, total_detections,
		high_threat_count, mpa_intrusions, dark_vessels, avg_threat_score, generated_by, created_at
		FROM generated_reports ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Report{}
	for rows.Next() {
		var r models.Report
		var reportType string
		var summary sql.NullString
		if err := rows.Scan(&r.ID, &reportType, &r.Title, &r.DateFrom, &r.DateTo, &summary, &r.TotalDetections,
			&r.HighThreatCount, &r.MPAIntrusions, &r.DarkVessels, &r.AvgThreatScore, &r.GeneratedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Type = models.ReportType(reportType)
		r.Summary = summary.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDetection(row scanner) (*models.Detection, error) {
	var d models.Detection
	var ais, sizeClass, source, status string
	var size, mpaName, zone, reviewedBy, notes sql.NullString
	var length sql.NullInt64
	var hasSAR, inside bool
	var area, intensity, elongation, backscatter, confidence sql.NullFloat64
	var reviewedAt sql.NullTime

	err := row.Scan(&d.ID, &d.VesselID, &d.Timestamp, &d.Latitude, &d.Longitude, &ais, &size,
		&sizeClass, &length, &d.ThreatScore, &hasSAR, &area, &intensity, &elongation,
		&backscatter, &confidence, &inside, &mpaName, &zone, &source, &status,
		&reviewedAt, &reviewedBy, &notes, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.AISStatus = models.AISStatus(ais)
	d.VesselSize = size.String
	d.SizeClass = models.SizeClass(sizeClass)
	d.EstimatedLength = int(length.Int64)
	d.InsideMPA = inside
	d.MPAName = mpaName.String
	d.MaritimeZone = zone.String
	d.Source = models.DetectionSource(source)
	if hasSAR {
		d.SAR = &models.SARFeatures{
			Area:        area.Float64,
			Intensity:   intensity.Float64,
			Elongation:  elongation.Float64,
			Backscatter: backscatter.Float64,
			Confidence:  confidence.Float64,
		}
	}
	d.Review = models.Review{
		Status:     models.ReviewStatus(status),
		ReviewedBy: reviewedBy.String,
		Notes:      notes.String,
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		d.Review.ReviewedAt = &t
	}
	return &d, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
