package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"thermostab/internal/control"
	"thermostab/internal/models"
	"thermostab/internal/service"
	"thermostab/internal/worker"
)

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{worker.ErrQueueFull, http.StatusServiceUnavailable},
		{fmt.Errorf("submit: %w", worker.ErrQueueFull), http.StatusServiceUnavailable},
		{control.ErrRunActive, http.StatusConflict},
		{control.ErrStopped, http.StatusConflict},
		{control.ErrNotStopped, http.StatusConflict},
		{control.ErrNoPoints, http.StatusBadRequest},
		{errors.Join(control.ErrInvalidPoints, errors.New("range")), http.StatusBadRequest},
		{errors.Join(models.ErrInvalidThresholds, errors.New("tick")), http.StatusBadRequest},
		{service.ErrUnknownDevice, http.StatusBadRequest},
		{service.ErrInvalidChannel, http.StatusBadRequest},
		{service.ErrInvalidTimeRange, http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestControlHandlers_Commands(t *testing.T) {
	ctl := &mockControl{}
	mon := &mockMonitoring{state: models.ControllerState{State: "Idle", AutoRun: true}}
	s := &service.Service{Authorization: &mockAuth{parseID: 9}, Control: ctl, Monitoring: mon}
	r := newTestRouter(s)

	for _, tc := range []struct {
		path   string
		status string
	}{
		{"/api/v1/control/start", statusArmed},
		{"/api/v1/control/suspend", statusSuspended},
		{"/api/v1/control/stop", statusStopped},
		{"/api/v1/control/reset", statusReset},
	} {
		w := doJSON(t, r, http.MethodPost, tc.path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", tc.path, w.Code, w.Body.String())
		}
		var resp struct {
			Status string                 `json:"status"`
			State  models.ControllerState `json:"state"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Status != tc.status || resp.State.State != "Idle" {
			t.Fatalf("%s unexpected response: %+v", tc.path, resp)
		}
	}
	if len(ctl.calls) != 4 {
		t.Fatalf("expected 4 calls, got %v", ctl.calls)
	}
	for i, id := range ctl.operators {
		if id != 9 {
			t.Fatalf("%s recorded operator %d, want the token's 9", ctl.calls[i], id)
		}
	}
}

func TestControlHandlers_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"stopped", control.ErrStopped, http.StatusConflict},
		{"no points", control.ErrNoPoints, http.StatusBadRequest},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &service.Service{Authorization: &mockAuth{}, Control: &mockControl{err: tc.err}, Monitoring: &mockMonitoring{}}
			w := doJSON(t, newTestRouter(s), http.MethodPost, "/api/v1/control/start", "")
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d", w.Code, tc.want)
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if tc.want == http.StatusInternalServerError && out.Error != errInternal {
				t.Fatalf("internal error text leaked: %q", out.Error)
			}
			if tc.want != http.StatusInternalServerError && out.Error != tc.err.Error() {
				t.Fatalf("error=%q want %q", out.Error, tc.err.Error())
			}
		})
	}
}

func TestControlHandlers_State(t *testing.T) {
	th := models.DefaultThresholds()
	mon := &mockMonitoring{state: models.ControllerState{
		State:           "Control",
		LastTemperature: 24.8,
		Points:          []models.TemperaturePoint{{Index: 0, Target: 25}},
		Thresholds:      th,
	}}
	s := &service.Service{Authorization: &mockAuth{}, Monitoring: mon}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/control/state", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/control/state", "")
	var st models.ControllerState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil || w.Code != http.StatusOK {
		t.Fatalf("state status=%d err=%v", w.Code, err)
	}
	if st.State != "Control" || st.LastTemperature != 24.8 {
		t.Fatalf("unexpected state: %+v", st)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/control/points", "")
	var pts struct {
		Count  int                       `json:"count"`
		Points []models.TemperaturePoint `json:"points"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &pts)
	if pts.Count != 1 || pts.Points[0].Target != 25 {
		t.Fatalf("unexpected points: %+v", pts)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/control/thresholds", "")
	var gotTh models.ThresholdParameters
	_ = json.Unmarshal(w.Body.Bytes(), &gotTh)
	if gotTh != th {
		t.Fatalf("unexpected thresholds: %+v", gotTh)
	}

	mon.err = errors.New("boom")
	w = doJSON(t, r, http.MethodGet, "/api/v1/control/state", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestControlHandlers_SetPointsAndThresholds(t *testing.T) {
	ctl := &mockControl{}
	s := &service.Service{Authorization: &mockAuth{}, Control: ctl, Monitoring: &mockMonitoring{}}
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodPut, "/api/v1/control/points",
		`{"points":[{"target":25,"params":[25,0,0,30,200,50,60]},{"target":5,"params":[5,0,0,30,200,50,40]}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("points status=%d body=%s", w.Code, w.Body.String())
	}
	if len(ctl.lastPoints) != 2 || ctl.lastPoints[1].Target != 5 || ctl.lastPoints[0].Params[4] != 200 {
		t.Fatalf("unexpected points: %+v", ctl.lastPoints)
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/control/points", `{"points":"nope"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/control/thresholds", `{"tick_interval":2,"steady_time":60,"fluc_thr":0.01,"temp_max_value":40,"temp_min_value":-2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("thresholds status=%d body=%s", w.Code, w.Body.String())
	}
	if ctl.lastThresh.TickInterval != 2 || ctl.lastThresh.SteadyTime != 60 {
		t.Fatalf("unexpected thresholds: %+v", ctl.lastThresh)
	}

	ctl.err = control.ErrRunActive
	w = doJSON(t, r, http.MethodPut, "/api/v1/control/thresholds", `{"tick_interval":2}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a run is active, got %d", w.Code)
	}
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code == http.StatusUnauthorized {
		t.Fatalf("metrics must not require auth")
	}
}
