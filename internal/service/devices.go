package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"thermostab/internal/device"
	"thermostab/internal/models"
	"thermostab/internal/notify"
	"thermostab/internal/protocol"
	"thermostab/internal/protocol/relay"
	"thermostab/internal/protocol/tempt"
	"thermostab/internal/worker"
)

var (
	ErrUnknownDevice  = errors.New("unknown device")
	ErrInvalidPort    = errors.New("invalid port settings")
	ErrInvalidChannel = errors.New("invalid relay channel")
	ErrInvalidParams  = errors.New("invalid control parameters")
)

// DevicesService runs operator-initiated exchanges on the worker lanes, so a
// slow serial link never blocks the HTTP handler.
type DevicesService struct {
	relays *device.RelayManager
	tempt  *device.TemptManager
	jobs   Submitter
	pub    notify.Publisher
	ports  func() ([]string, error)
}

func NewDevicesService(relays *device.RelayManager, tm *device.TemptManager, jobs Submitter, pub notify.Publisher, ports func() ([]string, error)) *DevicesService {
	if pub == nil {
		pub = notify.Discard
	}
	return &DevicesService{relays: relays, tempt: tm, jobs: jobs, pub: pub, ports: ports}
}

// SetPort reconfigures a device link. The link stays unavailable if the
// port cannot be opened; that failure is returned too.
func (s *DevicesService) SetPort(_ context.Context, dev, name string, baud int) error {
	if name == "" || baud < 0 {
		return fmt.Errorf("%w: port %q baud %d", ErrInvalidPort, name, baud)
	}
	switch dev {
	case device.RelayDevice:
		return s.relays.SetPort(name, baud)
	case device.TemptDevice:
		return s.tempt.SetPort(name, baud)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDevice, dev)
	}
}

func (s *DevicesService) Ports(_ context.Context) ([]string, error) {
	if s.ports == nil {
		return nil, nil
	}
	return s.ports()
}

func (s *DevicesService) SubmitRelay(ctx context.Context, channel int, on bool) (string, error) {
	ch := relay.Channel(channel)
	if !ch.Valid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	op := OperatorFrom(ctx)
	return s.jobs.Submit(device.RelayDevice, "set_relay", func(jobCtx context.Context) error {
		actual, err := s.relays.SetChannel(ch, on, true)
		s.publishRelay(jobCtx, op, actual, err)
		return err
	})
}

func (s *DevicesService) SubmitRelayRefresh(ctx context.Context) (string, error) {
	op := OperatorFrom(ctx)
	return s.jobs.Submit(device.RelayDevice, "refresh_relays", func(jobCtx context.Context) error {
		actual, err := s.relays.Refresh(true)
		s.publishRelay(jobCtx, op, actual, err)
		return err
	})
}

func (s *DevicesService) SubmitParams(ctx context.Context, params []float64) (string, error) {
	if len(params) != tempt.Writable {
		return "", fmt.Errorf("%w: want %d values, got %d", ErrInvalidParams, tempt.Writable, len(params))
	}
	for i, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: value %d is not a number", ErrInvalidParams, i)
		}
	}
	want := append([]float64(nil), params...)
	op := OperatorFrom(ctx)
	return s.jobs.Submit(device.TemptDevice, "apply_params", func(jobCtx context.Context) error {
		actual, err := s.tempt.ApplyParameters(want, true)
		s.publishParams(jobCtx, op, actual, err)
		return err
	})
}

func (s *DevicesService) SubmitReadBack(ctx context.Context) (string, error) {
	op := OperatorFrom(ctx)
	return s.jobs.Submit(device.TemptDevice, "read_back", func(jobCtx context.Context) error {
		actual, err := s.tempt.ReadBack(true)
		s.publishParams(jobCtx, op, actual, err)
		return err
	})
}

// SubmitSelfCheck reads every T-C register in order.
func (s *DevicesService) SubmitSelfCheck(ctx context.Context) (string, error) {
	op := OperatorFrom(ctx)
	return s.jobs.Submit(device.TemptDevice, "self_check", func(jobCtx context.Context) error {
		vals, err := s.tempt.SelfCheck(true)
		var actual device.Params
		copy(actual[:], vals[:tempt.Writable])
		s.publishParams(jobCtx, op, actual, err)
		return err
	})
}

func (s *DevicesService) Errors(_ context.Context) []models.ErrorReport {
	return []models.ErrorReport{
		report(device.RelayDevice, s.relays.Errors(), s.relays.Port),
		report(device.TemptDevice, s.tempt.Errors(), s.tempt.Port),
	}
}

// ResetErrors clears the counters of one device, or of both when dev is "".
func (s *DevicesService) ResetErrors(_ context.Context, dev string) error {
	switch dev {
	case "":
		s.relays.ResetErrors()
		s.tempt.ResetErrors()
	case device.RelayDevice:
		s.relays.ResetErrors()
	case device.TemptDevice:
		s.tempt.ResetErrors()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDevice, dev)
	}
	return nil
}

func (s *DevicesService) publishRelay(ctx context.Context, operator int, actual relay.Status, err error) {
	ev := notify.RelayStatus{Error: protocol.KindOf(err), Actual: actual, Source: worker.JobID(ctx), OperatorID: operator}
	if err != nil {
		ev.Message = err.Error()
	}
	s.pub.Publish(notify.Event{Type: notify.RelayStatusUpdated, Data: ev})
}

func (s *DevicesService) publishParams(ctx context.Context, operator int, actual device.Params, err error) {
	ev := notify.TemptParams{Error: protocol.KindOf(err), Actual: actual, Source: worker.JobID(ctx), OperatorID: operator}
	if err != nil {
		ev.Message = err.Error()
	}
	s.pub.Publish(notify.Event{Type: notify.TemptParamsUpdated, Data: ev})
}

func report(dev string, counts map[protocol.Kind]uint64, port func() (string, int, bool)) models.ErrorReport {
	name, baud, available := port()
	r := models.ErrorReport{
		Device:    dev,
		Port:      name,
		Baud:      baud,
		Available: available,
		Counts:    make(map[string]uint64, len(counts)),
	}
	for k, n := range counts {
		r.Counts[k.String()] = n
	}
	return r
}
