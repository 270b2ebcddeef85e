package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"thermostab/internal/models"

	"github.com/google/uuid"
)

type MeasurementSQLite struct {
	db *sql.DB
}

func NewMeasurementSQLite(db *sql.DB) *MeasurementSQLite { return &MeasurementSQLite{db: db} }

var _ MeasurementRepo = (*MeasurementSQLite)(nil)

const (
	insertMeasurementSQL = `
		INSERT INTO measurements (id, point_index, target, temperature, power, fluctuation, measured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	selectMeasurementSQL = `SELECT id, point_index, target, temperature, power, fluctuation, measured_at FROM measurements`
)

// Save inserts a measurement, generating its ID and timestamp when missing.
func (r *MeasurementSQLite) Save(ctx context.Context, m models.Measurement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertMeasurementSQL,
		m.ID,
		m.PointIndex,
		m.Target,
		m.Temperature,
		m.Power,
		m.Fluctuation,
		m.MeasuredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert measurement for point %d: %w", m.PointIndex, err)
	}
	return nil
}

// List returns measurements in [from, to], optionally for one point, oldest first.
func (r *MeasurementSQLite) List(ctx context.Context, from, to time.Time, point int) ([]models.Measurement, error) {
	conds, args := timeRange("measured_at", from, to)
	if point >= 0 {
		conds = append(conds, "point_index = ?")
		args = append(args, point)
	}

	q := selectMeasurementSQL + where(conds) + " ORDER BY measured_at ASC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select measurements: %w", err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.PointIndex, &m.Target, &m.Temperature, &m.Power, &m.Fluctuation, &m.MeasuredAt); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.MeasuredAt = m.MeasuredAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return out, nil
}
