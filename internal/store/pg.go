package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetrank/fleetrank/internal/models"
)

// PGStore persists device snapshots in Postgres. Metrics are stored as a
// JSONB map keyed by metric key.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func validateInput(in DeviceInput) error {
	if in.ID == "" {
		return fmt.Errorf("device id required")
	}
	if in.Name == "" {
		return fmt.Errorf("device name required")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (models.DeviceRecord, error) {
	var (
		rec     models.DeviceRecord
		metrics []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Type,
		&rec.Online,
		&rec.LastSeenAt,
		&metrics,
	); err != nil {
		return models.DeviceRecord{}, err
	}
	rec.Metrics = map[string]float64{}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
			return models.DeviceRecord{}, fmt.Errorf("decode metrics: %w", err)
		}
	}
	return rec, nil
}

func (s *PGStore) UpsertDevice(ctx context.Context, in DeviceInput) (models.DeviceRecord, error) {
	if err := validateInput(in); err != nil {
		return models.DeviceRecord{}, err
	}
	metrics, err := json.Marshal(copyMetrics(in.Metrics))
	if err != nil {
		return models.DeviceRecord{}, fmt.Errorf("encode metrics: %w", err)
	}
	const query = `
		INSERT INTO devices (id, name, type, online, last_seen_at, metrics, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (id) DO UPDATE
		SET name=EXCLUDED.name,
		    type=EXCLUDED.type,
		    online=EXCLUDED.online,
		    last_seen_at=EXCLUDED.last_seen_at,
		    metrics=EXCLUDED.metrics,
		    updated_at=NOW()
		RETURNING id, name, type, online, last_seen_at, metrics
	`
	rec, err := scanDevice(s.db.QueryRowContext(ctx, query, in.ID, in.Name, in.Type, in.Online, in.LastSeenAt, metrics))
	if err != nil {
		return models.DeviceRecord{}, fmt.Errorf("upsert device: %w", err)
	}
	return rec, nil
}

func (s *PGStore) GetDevice(ctx context.Context, id string) (models.DeviceRecord, error) {
	const query = `
		SELECT id, name, type, online, last_seen_at, metrics
		FROM devices WHERE id=$1
	`
	rec, err := scanDevice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeviceRecord{}, ErrNotFound
		}
		return models.DeviceRecord{}, fmt.Errorf("get device: %w", err)
	}
	return rec, nil
}

func (s *PGStore) ListDevices(ctx context.Context, f ListDevicesFilter) ([]models.DeviceRecord, error) {
	query := `
		SELECT id, name, type, online, last_seen_at, metrics
		FROM devices
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, f.Type)
		argPos++
	}
	query += " ORDER BY name, id"
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, normalizeLimit(f.Limit))
	argPos++
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.DeviceRecord
	for rows.Next() {
		rec, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

func (s *PGStore) DeleteDevice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
