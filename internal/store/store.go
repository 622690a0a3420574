// Package store is the PostgreSQL persistence layer for dogs, collars,
// users, sensor readings and interventions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"collarwatch/internal/model"
)

// Store wraps the database handle. All methods map sql.ErrNoRows to
// model.ErrNotFound so callers never see driver-level sentinels.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and configures the connection pool.
func Open(dbURL string) (*Store, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// DB exposes the raw handle for migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, hashed_password, full_name, is_active, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Username, u.HashedPassword, nullStr(u.FullName), u.IsActive, u.IsAdmin, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, hashed_password, full_name, is_active, is_admin, created_at, updated_at
		FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, hashed_password, full_name, is_active, is_admin, created_at, updated_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var fullName sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.HashedPassword, &fullName,
		&u.IsActive, &u.IsAdmin, &u.CreatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.FullName = fullName.String
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	return &u, nil
}

// ---- dogs ----

const dogColumns = `id, name, breed, age_years, sex, sterilization_status, weight_kg, color,
	medical_history, vaccination_records, photo_url, microchip_id, owner_id, is_active, created_at, updated_at`

func (s *Store) CreateDog(ctx context.Context, d *model.Dog) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dogs (`+dogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		d.ID, d.Name, nullStr(d.Breed), d.AgeYears, nullStr(string(d.Sex)), nullStr(string(d.Sterilization)),
		d.WeightKg, nullStr(d.Color), nullStr(d.MedicalHistory), nullStr(d.VaccinationRecords),
		nullStr(d.PhotoURL), nullStr(d.MicrochipID), nullStr(d.OwnerID), d.IsActive, d.CreatedAt, nil)
	if err != nil {
		return fmt.Errorf("insert dog: %w", err)
	}
	return nil
}

func (s *Store) Dogs(ctx context.Context, skip, limit int) ([]*model.Dog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dogColumns+` FROM dogs WHERE is_active ORDER BY created_at DESC OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("query dogs: %w", err)
	}
	defer rows.Close()

	var dogs []*model.Dog
	for rows.Next() {
		d, err := scanDog(rows)
		if err != nil {
			return nil, err
		}
		dogs = append(dogs, d)
	}
	return dogs, rows.Err()
}

func (s *Store) DogByID(ctx context.Context, id string) (*model.Dog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+dogColumns+` FROM dogs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query dog: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, model.ErrNotFound
	}
	return scanDog(rows)
}

// UpdateDog replaces the mutable profile fields of an existing dog.
func (s *Store) UpdateDog(ctx context.Context, id string, d *model.Dog) (*model.Dog, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE dogs SET name = $2, breed = $3, age_years = $4, sex = $5, sterilization_status = $6,
			weight_kg = $7, color = $8, medical_history = $9, vaccination_records = $10,
			photo_url = $11, microchip_id = $12, updated_at = $13
		WHERE id = $1`,
		id, d.Name, nullStr(d.Breed), d.AgeYears, nullStr(string(d.Sex)), nullStr(string(d.Sterilization)),
		d.WeightKg, nullStr(d.Color), nullStr(d.MedicalHistory), nullStr(d.VaccinationRecords),
		nullStr(d.PhotoURL), nullStr(d.MicrochipID), now)
	if err != nil {
		return nil, fmt.Errorf("update dog: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return s.DogByID(ctx, id)
}

// DeactivateDog soft-deletes a dog. Its history stays queryable.
func (s *Store) DeactivateDog(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dogs SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate dog: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DogAttributes resolves the static attributes the feature transform needs.
func (s *Store) DogAttributes(ctx context.Context, dogID string) (model.DogAttributes, error) {
	var attrs model.DogAttributes
	var sex, sterilization sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT age_years, sex, sterilization_status FROM dogs WHERE id = $1 AND is_active`, dogID).
		Scan(&attrs.AgeYears, &sex, &sterilization)
	if err == sql.ErrNoRows {
		return attrs, model.ErrNotFound
	}
	if err != nil {
		return attrs, fmt.Errorf("query dog attributes: %w", err)
	}
	attrs.Sex = model.Sex(sex.String)
	attrs.Sterilization = model.Sterilization(sterilization.String)
	return attrs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDog(row rowScanner) (*model.Dog, error) {
	var d model.Dog
	var breed, sex, sterilization, color, medical, vaccinations, photo, microchip, owner sql.NullString
	var weight sql.NullFloat64
	var updatedAt sql.NullTime
	err := row.Scan(&d.ID, &d.Name, &breed, &d.AgeYears, &sex, &sterilization, &weight, &color,
		&medical, &vaccinations, &photo, &microchip, &owner, &d.IsActive, &d.CreatedAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan dog: %w", err)
	}
	d.Breed = breed.String
	d.Sex = model.Sex(sex.String)
	d.Sterilization = model.Sterilization(sterilization.String)
	if weight.Valid {
		d.WeightKg = &weight.Float64
	}
	d.Color = color.String
	d.MedicalHistory = medical.String
	d.VaccinationRecords = vaccinations.String
	d.PhotoURL = photo.String
	d.MicrochipID = microchip.String
	d.OwnerID = owner.String
	if updatedAt.Valid {
		d.UpdatedAt = &updatedAt.Time
	}
	return &d, nil
}

// ---- collars ----

const collarColumns = `id, device_id, dog_id, battery_level, is_online, last_seen, firmware_version,
	gps_latitude, gps_longitude, gps_accuracy, is_active, created_at, updated_at`

func (s *Store) CreateCollar(ctx context.Context, c *model.Collar) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.BatteryLevel == 0 {
		c.BatteryLevel = 100.0
	}
	c.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collars (id, device_id, dog_id, battery_level, is_online, firmware_version, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.DeviceID, nullStr(c.DogID), c.BatteryLevel, c.IsOnline, nullStr(c.FirmwareVersion), c.IsActive, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert collar: %w", err)
	}
	return nil
}

func (s *Store) Collars(ctx context.Context, skip, limit int) ([]*model.Collar, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+collarColumns+` FROM collars WHERE is_active ORDER BY created_at DESC OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("query collars: %w", err)
	}
	defer rows.Close()

	var collars []*model.Collar
	for rows.Next() {
		c, err := scanCollar(rows)
		if err != nil {
			return nil, err
		}
		collars = append(collars, c)
	}
	return collars, rows.Err()
}

func (s *Store) CollarByID(ctx context.Context, id string) (*model.Collar, error) {
	return s.collarWhere(ctx, "id = $1", id)
}

// CollarByDeviceID resolves a collar from the hardware identifier devices
// put on the wire.
func (s *Store) CollarByDeviceID(ctx context.Context, deviceID string) (*model.Collar, error) {
	return s.collarWhere(ctx, "device_id = $1", deviceID)
}

func (s *Store) collarWhere(ctx context.Context, cond string, arg any) (*model.Collar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+collarColumns+` FROM collars WHERE `+cond, arg)
	if err != nil {
		return nil, fmt.Errorf("query collar: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, model.ErrNotFound
	}
	return scanCollar(rows)
}

// TouchCollar records device liveness from an incoming reading: last-seen,
// online flag and, when present, battery and GPS fix.
func (s *Store) TouchCollar(ctx context.Context, collarID string, battery, lat, lon, accuracy *float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE collars SET is_online = TRUE, last_seen = $2,
			battery_level = COALESCE($3, battery_level),
			gps_latitude = COALESCE($4, gps_latitude),
			gps_longitude = COALESCE($5, gps_longitude),
			gps_accuracy = COALESCE($6, gps_accuracy),
			updated_at = $2
		WHERE id = $1`,
		collarID, time.Now().UTC(), battery, lat, lon, accuracy)
	if err != nil {
		return fmt.Errorf("touch collar: %w", err)
	}
	return nil
}

func scanCollar(row rowScanner) (*model.Collar, error) {
	var c model.Collar
	var dogID, firmware sql.NullString
	var lastSeen, updatedAt sql.NullTime
	var lat, lon, acc sql.NullFloat64
	err := row.Scan(&c.ID, &c.DeviceID, &dogID, &c.BatteryLevel, &c.IsOnline, &lastSeen, &firmware,
		&lat, &lon, &acc, &c.IsActive, &c.CreatedAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan collar: %w", err)
	}
	c.DogID = dogID.String
	c.FirmwareVersion = firmware.String
	if lastSeen.Valid {
		c.LastSeen = &lastSeen.Time
	}
	if lat.Valid {
		c.GPSLatitude = &lat.Float64
	}
	if lon.Valid {
		c.GPSLongitude = &lon.Float64
	}
	if acc.Valid {
		c.GPSAccuracy = &acc.Float64
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	return &c, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
