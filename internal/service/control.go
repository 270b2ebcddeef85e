package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"thermostab/internal/config"
	"thermostab/internal/control"
	"thermostab/internal/logger"
	"thermostab/internal/models"
	"thermostab/internal/repository"
)

// ControlService forwards operator commands to the state machine and leaves
// a COMMAND entry in the event log for each accepted one.
type ControlService struct {
	machine    Controller
	eventRepo  repository.EventRepo
	pointsFile string
	log        *logger.Logger
	saveFn     func(string, []models.TemperaturePoint) error
}

func NewControlService(machine Controller, eventRepo repository.EventRepo, pointsFile string, log *logger.Logger) *ControlService {
	return &ControlService{
		machine:    machine,
		eventRepo:  eventRepo,
		pointsFile: pointsFile,
		log:        log,
		saveFn:     config.SavePoints,
	}
}

func (s *ControlService) StartAutoRun(ctx context.Context) error {
	if err := s.machine.StartAutoRun(); err != nil {
		return err
	}
	s.record(ctx, "start_auto_run", nil)
	return nil
}

func (s *ControlService) Suspend(ctx context.Context) error {
	s.machine.Suspend()
	s.record(ctx, "suspend", nil)
	return nil
}

func (s *ControlService) ForceStop(ctx context.Context) error {
	s.machine.ForceStop()
	s.record(ctx, "force_stop", nil)
	return nil
}

func (s *ControlService) Reset(ctx context.Context) error {
	if err := s.machine.Reset(); err != nil {
		return err
	}
	s.record(ctx, "reset", nil)
	return nil
}

// SetPoints validates and installs a new point list, then saves it to the
// points file. A failed save is logged; the list stays installed.
func (s *ControlService) SetPoints(ctx context.Context, points []models.TemperaturePoint) error {
	for i, p := range points {
		if err := validatePoint(p); err != nil {
			return fmt.Errorf("%w: point %d: %v", control.ErrInvalidPoints, i, err)
		}
	}
	if err := s.machine.SetPoints(points); err != nil {
		return err
	}
	if s.pointsFile != "" {
		if err := s.saveFn(s.pointsFile, s.machine.Points()); err != nil && s.log != nil {
			s.log.Warnw("points_save_failed", "file", s.pointsFile, "err", err)
		}
	}
	s.record(ctx, "set_points", map[string]any{"count": len(points)})
	return nil
}

func (s *ControlService) SetThresholds(ctx context.Context, th models.ThresholdParameters) error {
	if err := s.machine.SetThresholds(th); err != nil {
		return err
	}
	s.record(ctx, "set_thresholds", th)
	return nil
}

// record logs an accepted command together with the operator that issued
// it. The command has already taken effect, so a failed insert is only logged.
func (s *ControlService) record(ctx context.Context, name string, args any) {
	meta := map[string]any{"operator_id": OperatorFrom(ctx)}
	if args != nil {
		meta["args"] = args
	}
	err := s.eventRepo.Append(ctx, models.ControlEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventCommand,
		Description: "Operator command " + name,
		Metadata:    meta,
	})
	if err != nil && s.log != nil {
		s.log.Warnw("command_record_failed", "command", name, "operator_id", OperatorFrom(ctx), "err", err)
	}
}

func validatePoint(p models.TemperaturePoint) error {
	if math.IsNaN(p.Target) || math.IsInf(p.Target, 0) {
		return errors.New("target is not a number")
	}
	for i, v := range p.Params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("parameter %d is not a number", i)
		}
	}
	return nil
}
