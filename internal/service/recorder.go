package service

import (
	"context"
	"fmt"

	"thermostab/internal/logger"
	"thermostab/internal/models"
	"thermostab/internal/notify"
	"thermostab/internal/protocol"
	"thermostab/internal/repository"
)

// RecordedTypes are the notification types the recorder persists. Tick
// readings only feed metrics and the live stream.
var RecordedTypes = []notify.Type{
	notify.StateChanged,
	notify.RelayStatusUpdated,
	notify.TemptParamsUpdated,
	notify.Fault,
	notify.PointFinished,
	notify.JobFailed,
}

var eventTypes = map[notify.Type]string{
	notify.StateChanged:       models.EventStateChanged,
	notify.RelayStatusUpdated: models.EventRelayUpdate,
	notify.TemptParamsUpdated: models.EventParamsUpdate,
	notify.Fault:              models.EventFault,
	notify.PointFinished:      models.EventPointFinished,
	notify.JobFailed:          models.EventJobFailed,
}

type RecorderService struct {
	events       repository.EventRepo
	measurements repository.MeasurementRepo
	log          *logger.Logger
}

func NewRecorderService(events repository.EventRepo, measurements repository.MeasurementRepo, log *logger.Logger) *RecorderService {
	return &RecorderService{events: events, measurements: measurements, log: log}
}

// Run records every notification from sub until ctx is cancelled or sub closes.
func (r *RecorderService) Run(ctx context.Context, sub *notify.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			if err := r.Record(ctx, e); err != nil && r.log != nil {
				r.log.Errorw("recorder_persist_failed", "type", string(e.Type), "err", err)
			}
		}
	}
}

// Record persists one notification. Finished points also become a
// measurement row.
func (r *RecorderService) Record(ctx context.Context, e notify.Event) error {
	typ, ok := eventTypes[e.Type]
	if !ok {
		return nil
	}
	if err := r.events.Append(ctx, models.ControlEvent{
		OccurredAt:  e.At,
		Type:        typ,
		Description: describe(e),
		Metadata:    e.Data,
	}); err != nil {
		return err
	}

	pr, ok := e.Data.(notify.PointResult)
	if !ok {
		return nil
	}
	return r.measurements.Save(ctx, models.Measurement{
		PointIndex:  pr.Index,
		Target:      pr.Target,
		Temperature: pr.Temperature,
		Power:       pr.Power,
		Fluctuation: pr.Fluctuation,
		MeasuredAt:  e.At,
	})
}

func describe(e notify.Event) string {
	switch d := e.Data.(type) {
	case notify.StateChange:
		return d.From + " -> " + d.To
	case notify.RelayStatus:
		return outcome("Relay update", d.Source, d.Error, d.Message)
	case notify.TemptParams:
		return outcome("Parameter update", d.Source, d.Error, d.Message)
	case notify.FaultReport:
		return d.Message
	case notify.PointResult:
		return fmt.Sprintf("Point %d (target %.3f) measured at %.4f", d.Index, d.Target, d.Temperature)
	case notify.JobFailure:
		return fmt.Sprintf("Job %s on %s failed: %s", d.Name, d.Lane, d.Error)
	default:
		return string(e.Type)
	}
}

func outcome(what, source string, kind protocol.Kind, msg string) string {
	if kind == protocol.KindNone {
		return fmt.Sprintf("%s by %s succeeded", what, source)
	}
	return fmt.Sprintf("%s by %s failed (%s): %s", what, source, kind, msg)
}
