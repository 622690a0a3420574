package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"collarwatch/internal/model"
)

const readingColumns = `id, dog_id, collar_id, heart_rate_bpm, hrv_rmssd, body_temperature, stress_cortisol,
	body_posture, tail_position, ear_position, vocalization_type, time_of_day,
	human_proximity_meters, other_dogs_nearby, gps_latitude, gps_longitude, gps_accuracy,
	aggression_level, aggression_label, aggression_probability, intervention_required,
	recorded_at, processed_at`

func (s *Store) InsertReading(ctx context.Context, r *model.SensorReading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (`+readingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23)`,
		r.ID, r.DogID, r.CollarID, r.HeartRateBPM, r.HRVRmssd, r.BodyTemperature, r.StressCortisol,
		nullStr(string(r.BodyPosture)), nullStr(string(r.TailPosition)), nullStr(string(r.EarPosition)),
		nullStr(string(r.Vocalization)), nullStr(string(r.TimeOfDay)),
		r.HumanProximityMeters, r.OtherDogsNearby, r.GPSLatitude, r.GPSLongitude, r.GPSAccuracy,
		aggressionCode(r.AggressionLevel), nullStr(r.AggressionLabel), r.AggressionProbability,
		r.InterventionRequired, r.RecordedAt, r.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// ReadingsByDog returns scored readings for one dog, newest first. Start and
// end bound recorded_at when non-nil.
func (s *Store) ReadingsByDog(ctx context.Context, dogID string, start, end *time.Time, limit int) ([]*model.SensorReading, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE dog_id = $1`
	args := []any{dogID}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND recorded_at <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []*model.SensorReading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// LatestReading is the database fallback when the cache has no entry.
func (s *Store) LatestReading(ctx context.Context, dogID string) (*model.SensorReading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+readingColumns+` FROM sensor_readings WHERE dog_id = $1 ORDER BY recorded_at DESC LIMIT 1`,
		dogID)
	if err != nil {
		return nil, fmt.Errorf("query latest reading: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, model.ErrNotFound
	}
	return scanReading(rows)
}

func scanReading(row rowScanner) (*model.SensorReading, error) {
	var r model.SensorReading
	var posture, tail, ear, vocal, timeOfDay, label sql.NullString
	var hrv, cortisol, proximity, lat, lon, acc, prob sql.NullFloat64
	var otherDogs sql.NullInt64
	var level sql.NullInt64
	var processedAt sql.NullTime
	err := row.Scan(&r.ID, &r.DogID, &r.CollarID, &r.HeartRateBPM, &hrv, &r.BodyTemperature, &cortisol,
		&posture, &tail, &ear, &vocal, &timeOfDay,
		&proximity, &otherDogs, &lat, &lon, &acc,
		&level, &label, &prob, &r.InterventionRequired,
		&r.RecordedAt, &processedAt)
	if err != nil {
		return nil, fmt.Errorf("scan reading: %w", err)
	}
	if hrv.Valid {
		r.HRVRmssd = &hrv.Float64
	}
	if cortisol.Valid {
		r.StressCortisol = &cortisol.Float64
	}
	r.BodyPosture = model.BodyPosture(posture.String)
	r.TailPosition = model.TailPosition(tail.String)
	r.EarPosition = model.EarPosition(ear.String)
	r.Vocalization = model.Vocalization(vocal.String)
	r.TimeOfDay = model.TimeOfDay(timeOfDay.String)
	if proximity.Valid {
		r.HumanProximityMeters = &proximity.Float64
	}
	if otherDogs.Valid {
		n := int(otherDogs.Int64)
		r.OtherDogsNearby = &n
	}
	if lat.Valid {
		r.GPSLatitude = &lat.Float64
	}
	if lon.Valid {
		r.GPSLongitude = &lon.Float64
	}
	if acc.Valid {
		r.GPSAccuracy = &acc.Float64
	}
	if level.Valid {
		l := model.AggressionLevel(level.Int64)
		r.AggressionLevel = &l
	}
	r.AggressionLabel = label.String
	if prob.Valid {
		r.AggressionProbability = &prob.Float64
	}
	if processedAt.Valid {
		r.ProcessedAt = &processedAt.Time
	}
	return &r, nil
}

func aggressionCode(l *model.AggressionLevel) any {
	if l == nil {
		return nil
	}
	return int(*l)
}

// ---- interventions ----

const interventionColumns = `id, dog_id, collar_id, intervention_type, ultrasonic_frequency, duration_seconds,
	aggression_level, confidence, reading_id, trigger_data, is_acknowledged, notes,
	triggered_at, acknowledged_at`

func (s *Store) InsertIntervention(ctx context.Context, iv *model.Intervention) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interventions (`+interventionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		iv.ID, iv.DogID, iv.CollarID, string(iv.Type), iv.UltrasonicFrequency, iv.DurationSeconds,
		int(iv.AggressionLevel), iv.Confidence, nullStr(iv.ReadingID), nullStr(iv.TriggerData),
		iv.IsAcknowledged, nullStr(iv.Notes), iv.TriggeredAt, iv.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("insert intervention: %w", err)
	}
	return nil
}

// Interventions lists triggered interventions, newest first. dogID filters
// when non-empty.
func (s *Store) Interventions(ctx context.Context, dogID string, skip, limit int) ([]*model.Intervention, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `SELECT ` + interventionColumns + ` FROM interventions`
	args := []any{}
	if dogID != "" {
		args = append(args, dogID)
		query += " WHERE dog_id = $1"
	}
	args = append(args, skip)
	query += fmt.Sprintf(" ORDER BY triggered_at DESC OFFSET $%d", len(args))
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var interventions []*model.Intervention
	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		interventions = append(interventions, iv)
	}
	return interventions, rows.Err()
}

func (s *Store) InterventionByID(ctx context.Context, id string) (*model.Intervention, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+interventionColumns+` FROM interventions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query intervention: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, model.ErrNotFound
	}
	return scanIntervention(rows)
}

// AcknowledgeIntervention marks an intervention acknowledged. The transition
// is one-way; acknowledging twice keeps the original timestamp.
func (s *Store) AcknowledgeIntervention(ctx context.Context, id string) (*model.Intervention, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interventions SET is_acknowledged = TRUE, acknowledged_at = $2
		WHERE id = $1 AND NOT is_acknowledged`,
		id, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("acknowledge intervention: %w", err)
	}
	return s.InterventionByID(ctx, id)
}

func scanIntervention(row rowScanner) (*model.Intervention, error) {
	var iv model.Intervention
	var tier string
	var level int
	var readingID, triggerData, notes sql.NullString
	var ackedAt sql.NullTime
	err := row.Scan(&iv.ID, &iv.DogID, &iv.CollarID, &tier, &iv.UltrasonicFrequency, &iv.DurationSeconds,
		&level, &iv.Confidence, &readingID, &triggerData, &iv.IsAcknowledged, &notes,
		&iv.TriggeredAt, &ackedAt)
	if err != nil {
		return nil, fmt.Errorf("scan intervention: %w", err)
	}
	iv.Type = model.InterventionTier(tier)
	iv.AggressionLevel = model.AggressionLevel(level)
	iv.ReadingID = readingID.String
	iv.TriggerData = triggerData.String
	iv.Notes = notes.String
	if ackedAt.Valid {
		iv.AcknowledgedAt = &ackedAt.Time
	}
	return &iv, nil
}
