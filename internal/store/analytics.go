package store

import (
	"context"
	"database/sql"
	"fmt"

	"collarwatch/internal/model"
)

// TrendPoint is one day of scored readings at one aggression level.
type TrendPoint struct {
	Date            string  `json:"date"`
	AggressionLevel int     `json:"aggression_level"`
	Label           string  `json:"label"`
	ReadingCount    int     `json:"reading_count"`
	AvgProbability  float64 `json:"avg_probability"`
}

// HealthPoint is one day of averaged vital signs.
type HealthPoint struct {
	Date            string   `json:"date"`
	AvgHeartRate    float64  `json:"avg_heart_rate"`
	AvgTemperature  float64  `json:"avg_temperature"`
	AvgHRV          *float64 `json:"avg_hrv,omitempty"`
	AvgCortisol     *float64 `json:"avg_cortisol,omitempty"`
	ReadingCount    int      `json:"reading_count"`
	InterventionDay bool     `json:"intervention_day"`
}

// HealthAlert flags a dog whose recent vitals drifted out of the healthy
// band.
type HealthAlert struct {
	DogID   string  `json:"dog_id"`
	DogName string  `json:"dog_name"`
	Metric  string  `json:"metric"`
	Value   float64 `json:"value"`
}

// DashboardStats is the fleet-level summary for the overview screen.
type DashboardStats struct {
	TotalDogs            int                   `json:"total_dogs"`
	OnlineCollars        int                   `json:"online_collars"`
	TotalCollars         int                   `json:"total_collars"`
	InterventionsToday   int                   `json:"interventions_today"`
	AvgAggression24h     float64               `json:"avg_aggression_24h"`
	RecentInterventions  []*model.Intervention `json:"recent_interventions"`
	HealthAlerts         []HealthAlert         `json:"health_alerts"`
	UnacknowledgedAlerts int                   `json:"unacknowledged_alerts"`
}

// AggressionTrends aggregates scored readings per day and aggression level
// over the trailing window.
func (s *Store) AggressionTrends(ctx context.Context, dogID string, days int) ([]TrendPoint, error) {
	if days <= 0 || days > 365 {
		days = 7
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', recorded_at), 'YYYY-MM-DD') AS day,
			aggression_level, COUNT(*), COALESCE(AVG(aggression_probability), 0)
		FROM sensor_readings
		WHERE dog_id = $1 AND aggression_level IS NOT NULL
			AND recorded_at >= NOW() - make_interval(days => $2)
		GROUP BY day, aggression_level
		ORDER BY day, aggression_level`, dogID, days)
	if err != nil {
		return nil, fmt.Errorf("query aggression trends: %w", err)
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.AggressionLevel, &p.ReadingCount, &p.AvgProbability); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		p.Label = model.AggressionLevel(p.AggressionLevel).Label()
		points = append(points, p)
	}
	return points, rows.Err()
}

// HealthMetrics averages vitals per day over the trailing window.
func (s *Store) HealthMetrics(ctx context.Context, dogID string, days int) ([]HealthPoint, error) {
	if days <= 0 || days > 365 {
		days = 7
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', r.recorded_at), 'YYYY-MM-DD') AS day,
			AVG(r.heart_rate_bpm), AVG(r.body_temperature), AVG(r.hrv_rmssd), AVG(r.stress_cortisol),
			COUNT(*),
			EXISTS (SELECT 1 FROM interventions i
				WHERE i.dog_id = r.dog_id AND date_trunc('day', i.triggered_at) = date_trunc('day', r.recorded_at))
		FROM sensor_readings r
		WHERE r.dog_id = $1 AND r.recorded_at >= NOW() - make_interval(days => $2)
		GROUP BY day, r.dog_id
		ORDER BY day`, dogID, days)
	if err != nil {
		return nil, fmt.Errorf("query health metrics: %w", err)
	}
	defer rows.Close()

	points := []HealthPoint{}
	for rows.Next() {
		var p HealthPoint
		var hrv, cortisol sql.NullFloat64
		if err := rows.Scan(&p.Date, &p.AvgHeartRate, &p.AvgTemperature, &hrv, &cortisol,
			&p.ReadingCount, &p.InterventionDay); err != nil {
			return nil, fmt.Errorf("scan health point: %w", err)
		}
		if hrv.Valid {
			p.AvgHRV = &hrv.Float64
		}
		if cortisol.Valid {
			p.AvgCortisol = &cortisol.Float64
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Dashboard computes the fleet summary in a handful of aggregate queries.
func (s *Store) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		RecentInterventions: []*model.Intervention{},
		HealthAlerts:        []HealthAlert{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM dogs WHERE is_active),
			(SELECT COUNT(*) FROM collars WHERE is_active AND is_online),
			(SELECT COUNT(*) FROM collars WHERE is_active),
			(SELECT COUNT(*) FROM interventions WHERE triggered_at >= date_trunc('day', NOW())),
			(SELECT COALESCE(AVG(aggression_level), 0) FROM sensor_readings
				WHERE aggression_level IS NOT NULL AND recorded_at >= NOW() - interval '24 hours'),
			(SELECT COUNT(*) FROM interventions WHERE NOT is_acknowledged)`).
		Scan(&stats.TotalDogs, &stats.OnlineCollars, &stats.TotalCollars,
			&stats.InterventionsToday, &stats.AvgAggression24h, &stats.UnacknowledgedAlerts)
	if err != nil {
		return nil, fmt.Errorf("query dashboard counters: %w", err)
	}

	recent, err := s.Interventions(ctx, "", 0, 5)
	if err != nil {
		return nil, err
	}
	stats.RecentInterventions = recent

	alerts, err := s.healthAlerts(ctx)
	if err != nil {
		return nil, err
	}
	stats.HealthAlerts = alerts

	return stats, nil
}

// healthAlerts surfaces dogs whose last 24h of vitals averaged outside the
// healthy band: more than 1.5 degrees off the resting 38.8C, or a mean heart
// rate above 160 bpm.
func (s *Store) healthAlerts(ctx context.Context) ([]HealthAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name,
			AVG(r.body_temperature) AS avg_temp, AVG(r.heart_rate_bpm) AS avg_hr
		FROM sensor_readings r
		JOIN dogs d ON d.id = r.dog_id AND d.is_active
		WHERE r.recorded_at >= NOW() - interval '24 hours'
		GROUP BY d.id, d.name
		HAVING ABS(AVG(r.body_temperature) - 38.8) > 1.5 OR AVG(r.heart_rate_bpm) > 160`)
	if err != nil {
		return nil, fmt.Errorf("query health alerts: %w", err)
	}
	defer rows.Close()

	alerts := []HealthAlert{}
	for rows.Next() {
		var dogID, dogName string
		var avgTemp, avgHR float64
		if err := rows.Scan(&dogID, &dogName, &avgTemp, &avgHR); err != nil {
			return nil, fmt.Errorf("scan health alert: %w", err)
		}
		if avgTemp > 40.3 || avgTemp < 37.3 {
			alerts = append(alerts, HealthAlert{DogID: dogID, DogName: dogName, Metric: "body_temperature", Value: avgTemp})
		}
		if avgHR > 160 {
			alerts = append(alerts, HealthAlert{DogID: dogID, DogName: dogName, Metric: "heart_rate_bpm", Value: avgHR})
		}
	}
	return alerts, rows.Err()
}
