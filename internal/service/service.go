package service

import (
	"context"
	"time"

	"thermostab/internal/control"
	"thermostab/internal/device"
	"thermostab/internal/logger"
	"thermostab/internal/models"
	"thermostab/internal/notify"
	"thermostab/internal/repository"
	"thermostab/internal/worker"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control exposes the run commands and the run configuration.
type Control interface {
	StartAutoRun(ctx context.Context) error
	Suspend(ctx context.Context) error
	ForceStop(ctx context.Context) error
	Reset(ctx context.Context) error
	SetPoints(ctx context.Context, points []models.TemperaturePoint) error
	SetThresholds(ctx context.Context, th models.ThresholdParameters) error
}

// Devices exposes port configuration, queued manual exchanges and error counters.
// Submit* calls return a job id; the outcome arrives as a notification.
type Devices interface {
	SetPort(ctx context.Context, device, name string, baud int) error
	Ports(ctx context.Context) ([]string, error)
	SubmitRelay(ctx context.Context, channel int, on bool) (string, error)
	SubmitRelayRefresh(ctx context.Context) (string, error)
	SubmitParams(ctx context.Context, params []float64) (string, error)
	SubmitReadBack(ctx context.Context) (string, error)
	SubmitSelfCheck(ctx context.Context) (string, error)
	Errors(ctx context.Context) []models.ErrorReport
	ResetErrors(ctx context.Context, device string) error
}

// Monitoring exposes the read-only controller snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.ControllerState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error)
}

type Measurements interface {
	ListMeasurements(ctx context.Context, f MeasurementFilter) ([]models.Measurement, error)
}

// Recorder persists bus notifications until ctx is cancelled.
type Recorder interface {
	Run(ctx context.Context, sub *notify.Subscription)
}

// Controller is the state machine as seen by the service layer.
type Controller interface {
	StartAutoRun() error
	Suspend()
	ForceStop()
	Reset() error
	SetPoints(points []models.TemperaturePoint) error
	Points() []models.TemperaturePoint
	SetThresholds(th models.ThresholdParameters) error
	Status() models.ControllerState
}

var _ Controller = (*control.Machine)(nil)

// Submitter queues jobs on a named worker lane.
type Submitter interface {
	Submit(lane, name string, fn func(ctx context.Context) error) (string, error)
}

var _ Submitter = (*worker.Pool)(nil)

// Deps are the runtime components behind the services.
type Deps struct {
	Machine    Controller
	Relays     *device.RelayManager
	Tempt      *device.TemptManager
	Jobs       Submitter
	Bus        notify.Publisher
	Ports      func() ([]string, error)
	PointsFile string
	Auth       AuthConfig
	Log        *logger.Logger
}

// AuthConfig configures token issuing and registration.
type AuthConfig struct {
	SigningKey  string
	TokenTTL    time.Duration
	AllowSignUp bool
}

type Service struct {
	Control
	Devices
	Monitoring
	EventLog
	Measurements
	Recorder
	Authorization
}

// NewService wires the repository layer and the runtime components into
// concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Service{
		Control:       NewControlService(deps.Machine, repos.EventRepo, deps.PointsFile, deps.Log),
		Devices:       NewDevicesService(deps.Relays, deps.Tempt, deps.Jobs, deps.Bus, deps.Ports),
		Monitoring:    NewMonitoringService(deps.Machine, deps.Relays, deps.Tempt),
		EventLog:      NewEventLogService(repos.EventRepo),
		Measurements:  NewMeasurementService(repos.MeasurementRepo),
		Recorder:      NewRecorderService(repos.EventRepo, repos.MeasurementRepo, deps.Log),
		Authorization: NewAuthService(repos.Auth, deps.Auth),
	}
}
