package handlers

import (
	"context"
	"net/http"
	"time"

	"thermostab/internal/models"
	"thermostab/internal/notify"
	"thermostab/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	err        error
	calls      []string
	operators  []int
	lastPoints []models.TemperaturePoint
	lastThresh models.ThresholdParameters
}

func (m *mockControl) StartAutoRun(ctx context.Context) error {
	m.calls = append(m.calls, "start")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.err
}
func (m *mockControl) Suspend(ctx context.Context) error {
	m.calls = append(m.calls, "suspend")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.err
}
func (m *mockControl) ForceStop(ctx context.Context) error {
	m.calls = append(m.calls, "stop")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.err
}
func (m *mockControl) Reset(ctx context.Context) error {
	m.calls = append(m.calls, "reset")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.err
}
func (m *mockControl) SetPoints(ctx context.Context, points []models.TemperaturePoint) error {
	m.calls = append(m.calls, "points")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	m.lastPoints = points
	return m.err
}
func (m *mockControl) SetThresholds(ctx context.Context, th models.ThresholdParameters) error {
	m.calls = append(m.calls, "thresholds")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	m.lastThresh = th
	return m.err
}

type mockDevices struct {
	jobID   string
	err     error
	ports   []string
	reports []models.ErrorReport

	lastDevice  string
	lastPort    string
	lastBaud    int
	lastChannel int
	lastOn      bool
	lastParams  []float64
	submitted   []string
	operators   []int
}

func (m *mockDevices) SetPort(ctx context.Context, device, name string, baud int) error {
	m.lastDevice, m.lastPort, m.lastBaud = device, name, baud
	return m.err
}
func (m *mockDevices) Ports(ctx context.Context) ([]string, error) { return m.ports, m.err }
func (m *mockDevices) SubmitRelay(ctx context.Context, channel int, on bool) (string, error) {
	m.lastChannel, m.lastOn = channel, on
	m.submitted = append(m.submitted, "relay")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.jobID, m.err
}
func (m *mockDevices) SubmitRelayRefresh(ctx context.Context) (string, error) {
	m.submitted = append(m.submitted, "refresh")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.jobID, m.err
}
func (m *mockDevices) SubmitParams(ctx context.Context, params []float64) (string, error) {
	m.lastParams = params
	m.submitted = append(m.submitted, "params")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.jobID, m.err
}
func (m *mockDevices) SubmitReadBack(ctx context.Context) (string, error) {
	m.submitted = append(m.submitted, "readback")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.jobID, m.err
}
func (m *mockDevices) SubmitSelfCheck(ctx context.Context) (string, error) {
	m.submitted = append(m.submitted, "selfcheck")
	m.operators = append(m.operators, service.OperatorFrom(ctx))
	return m.jobID, m.err
}
func (m *mockDevices) Errors(ctx context.Context) []models.ErrorReport { return m.reports }
func (m *mockDevices) ResetErrors(ctx context.Context, device string) error {
	m.lastDevice = device
	return m.err
}

type mockMonitoring struct {
	state models.ControllerState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.ControllerState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.ControlEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControlEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockMeasurements struct {
	resp       []models.Measurement
	err        error
	lastFilter service.MeasurementFilter
}

func (m *mockMeasurements) ListMeasurements(ctx context.Context, f service.MeasurementFilter) ([]models.Measurement, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, notify.NewBus(), http.NotFoundHandler())
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
