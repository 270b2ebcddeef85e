package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"thermostab/internal/models"
	"thermostab/internal/repository"
)

var (
	ErrInvalidTimeRange   = errors.New("invalid time range: From must be <= To")
	ErrInvalidPointFilter = errors.New("point index must not be negative")
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, normalizeEventType(f.Type))
}

type MeasurementService struct {
	repo repository.MeasurementRepo
}

func NewMeasurementService(repo repository.MeasurementRepo) *MeasurementService {
	return &MeasurementService{repo: repo}
}

func (s *MeasurementService) ListMeasurements(ctx context.Context, f MeasurementFilter) ([]models.Measurement, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	point := -1
	if f.Point != nil {
		if *f.Point < 0 {
			return nil, ErrInvalidPointFilter
		}
		point = *f.Point
	}
	return s.repo.List(ctx, from, to, point)
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from, to = normalizeToUTC(from), normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return from, to, nil
}
