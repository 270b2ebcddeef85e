package handlers

import (
	"errors"
	"net/http"

	"thermostab/internal/control"
	"thermostab/internal/models"
	"thermostab/internal/service"
	"thermostab/internal/worker"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK         = "ok"
	statusArmed      = "armed"
	statusSuspended  = "suspended"
	statusStopped    = "stopped"
	statusReset      = "reset"
	statusPointsSet  = "points_set"
	statusThreshSet  = "thresholds_set"
	statusQueued     = "queued"
	errInternal      = "internal error"
	errGetState      = "failed to load state"
	errInvalidBodyPf = "invalid body: "
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, control.ErrRunActive),
		errors.Is(err, control.ErrStopped),
		errors.Is(err, control.ErrNotStopped):
		return http.StatusConflict
	case errors.Is(err, control.ErrNoPoints),
		errors.Is(err, control.ErrInvalidPoints),
		errors.Is(err, models.ErrInvalidThresholds),
		errors.Is(err, service.ErrUnknownDevice),
		errors.Is(err, service.ErrInvalidPort),
		errors.Is(err, service.ErrInvalidChannel),
		errors.Is(err, service.ErrInvalidParams),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidPointFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// fail reports err with the status statusFor picks. Client errors carry the
// error text; server errors a generic message.
func (h *Handler) fail(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = errInternal
	}
	h.logAndJSONError(c, code, msg, logKey, err, kv...)
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if h.services.Monitoring != nil {
		if st, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
			resp["state"] = st
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SetPointsRequest is the payload of PUT /control/points.
type SetPointsRequest struct {
	Points []models.TemperaturePoint `json:"points" binding:"required"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get controller state
// @Description  Controller state, current point, last readings and both boards' desired and actual vectors
// @Tags         control
// @Produce      json
// @Success      200  {object}  models.ControllerState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/control/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "control_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Start auto run
// @Description  Arms the run; the next tick in Idle enters Start
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      400  {object}  map[string]string  "no points"
// @Failure      409  {object}  map[string]string  "controller stopped"
// @Router       /api/v1/control/start [post]
// @Security     BearerAuth
func (h *Handler) startAutoRun(c *gin.Context) {
	if err := h.services.Control.StartAutoRun(c.Request.Context()); err != nil {
		h.fail(c, "control_start_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusArmed, nil)
}

// @Summary      Suspend
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/control/suspend [post]
// @Security     BearerAuth
func (h *Handler) suspend(c *gin.Context) {
	if err := h.services.Control.Suspend(c.Request.Context()); err != nil {
		h.fail(c, "control_suspend_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusSuspended, nil)
}

// @Summary      Force stop
// @Description  Enters Stop from any state and switches every relay off
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/control/stop [post]
// @Security     BearerAuth
func (h *Handler) forceStop(c *gin.Context) {
	if err := h.services.Control.ForceStop(c.Request.Context()); err != nil {
		h.fail(c, "control_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, nil)
}

// @Summary      Reset
// @Description  Leaves Stop for Idle
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string  "not stopped"
// @Router       /api/v1/control/reset [post]
// @Security     BearerAuth
func (h *Handler) reset(c *gin.Context) {
	if err := h.services.Control.Reset(c.Request.Context()); err != nil {
		h.fail(c, "control_reset_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusReset, nil)
}

// @Summary      List temperature points
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, points"
// @Router       /api/v1/control/points [get]
// @Security     BearerAuth
func (h *Handler) getPoints(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "control_get_points_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(st.Points), "points": st.Points})
}

// @Summary      Replace temperature points
// @Description  Points are renumbered in list order and saved to the points file
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body   SetPointsRequest  true  "Point list"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string  "run active"
// @Router       /api/v1/control/points [put]
// @Security     BearerAuth
func (h *Handler) setPoints(c *gin.Context) {
	var req SetPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPf + err.Error()})
		return
	}
	if err := h.services.Control.SetPoints(c.Request.Context(), req.Points); err != nil {
		h.fail(c, "control_set_points_failed", err, "count", len(req.Points))
		return
	}
	h.respondWithStatusAndState(c, statusPointsSet, gin.H{"count": len(req.Points)})
}

// @Summary      Get threshold parameters
// @Tags         control
// @Produce      json
// @Success      200  {object}  models.ThresholdParameters
// @Router       /api/v1/control/thresholds [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "control_get_thresholds_failed", err)
		return
	}
	c.JSON(http.StatusOK, st.Thresholds)
}

// @Summary      Replace threshold parameters
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body   models.ThresholdParameters  true  "Thresholds"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string  "run active"
// @Router       /api/v1/control/thresholds [put]
// @Security     BearerAuth
func (h *Handler) setThresholds(c *gin.Context) {
	var th models.ThresholdParameters
	if err := c.ShouldBindJSON(&th); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPf + err.Error()})
		return
	}
	if err := h.services.Control.SetThresholds(c.Request.Context(), th); err != nil {
		h.fail(c, "control_set_thresholds_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusThreshSet, nil)
}
