package repository

import (
	"context"
	"database/sql"
	"time"

	"thermostab/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
	Count() (int, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ControlEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControlEvent, error)
}

// MeasurementRepo stores one row per finished temperature point. A negative
// point index in List matches every point.
type MeasurementRepo interface {
	Save(ctx context.Context, m models.Measurement) error
	List(ctx context.Context, from, to time.Time, point int) ([]models.Measurement, error)
}

type Repository struct {
	EventRepo       EventRepo
	MeasurementRepo MeasurementRepo
	Auth            Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo:       NewEventSQLite(db),
		MeasurementRepo: NewMeasurementSQLite(db),
		Auth:            NewOperatorRepository(db),
	}
}
