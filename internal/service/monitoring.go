package service

import (
	"context"

	"thermostab/internal/device"
	"thermostab/internal/models"
	"thermostab/internal/protocol/relay"
)

type relayStatus interface {
	Status() (actual, desired relay.Status)
}

type paramStatus interface {
	Parameters() (actual, desired device.Params)
}

type MonitoringService struct {
	machine Controller
	relays  relayStatus
	tempt   paramStatus
}

func NewMonitoringService(machine Controller, relays relayStatus, tempt paramStatus) *MonitoringService {
	return &MonitoringService{machine: machine, relays: relays, tempt: tempt}
}

// GetState merges the controller snapshot with the desired and actual
// vectors of both boards.
func (s *MonitoringService) GetState(_ context.Context) (models.ControllerState, error) {
	st := s.machine.Status()
	if s.relays != nil {
		actual, desired := s.relays.Status()
		st.Relays = models.RelayState{Actual: actual, Desired: desired}
	}
	if s.tempt != nil {
		actual, desired := s.tempt.Parameters()
		st.Params = models.ParamState{Actual: actual, Desired: desired}
	}
	st.UpdatedAt = normalizeToUTC(st.UpdatedAt)
	return st, nil
}
