package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetPortRequest selects the serial port of one device.
type SetPortRequest struct {
	Device string `json:"device" binding:"required" example:"relay"`
	Port   string `json:"port" binding:"required" example:"/dev/ttyUSB0"`
	Baud   int    `json:"baud" example:"9600"`
}

// SetRelayRequest switches one relay channel.
type SetRelayRequest struct {
	Channel *int  `json:"channel" binding:"required" example:"1"`
	On      *bool `json:"on" binding:"required" example:"true"`
}

// SetParamsRequest carries the seven writable T-C parameters in board order.
type SetParamsRequest struct {
	Params []float64 `json:"params" binding:"required"`
}

func (h *Handler) accepted(c *gin.Context, jobID string) {
	c.JSON(http.StatusAccepted, gin.H{"status": statusQueued, "job_id": jobID})
}

// @Summary      List serial ports
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ports"
// @Router       /api/v1/devices/ports [get]
// @Security     BearerAuth
func (h *Handler) listPorts(c *gin.Context) {
	ports, err := h.services.Devices.Ports(c.Request.Context())
	if err != nil {
		h.fail(c, "devices_list_ports_failed", err)
		return
	}
	if ports == nil {
		ports = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ports": ports})
}

// @Summary      Set device port
// @Description  device is "relay" or "tempt"; baud 0 keeps the device default
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body   SetPortRequest  true  "Port settings"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/devices/port [post]
// @Security     BearerAuth
func (h *Handler) setPort(c *gin.Context) {
	var req SetPortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPf + err.Error()})
		return
	}
	if err := h.services.Devices.SetPort(c.Request.Context(), req.Device, req.Port, req.Baud); err != nil {
		h.fail(c, "devices_set_port_failed", err, "device", req.Device, "port", req.Port)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "device": req.Device, "port": req.Port})
}

// @Summary      Set relay channel
// @Description  Queued on the relay lane; the outcome arrives as relay_status_updated
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body   SetRelayRequest  true  "Channel and state"
// @Success      202   {object}  map[string]string  "job_id"
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string  "queue full"
// @Router       /api/v1/devices/relay [post]
// @Security     BearerAuth
func (h *Handler) setRelay(c *gin.Context) {
	var req SetRelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPf + err.Error()})
		return
	}
	id, err := h.services.Devices.SubmitRelay(c.Request.Context(), *req.Channel, *req.On)
	if err != nil {
		h.fail(c, "devices_set_relay_failed", err, "channel", *req.Channel)
		return
	}
	h.accepted(c, id)
}

// @Summary      Read relay statuses back
// @Tags         devices
// @Produce      json
// @Success      202  {object}  map[string]string  "job_id"
// @Failure      503  {object}  map[string]string  "queue full"
// @Router       /api/v1/devices/relay/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshRelays(c *gin.Context) {
	id, err := h.services.Devices.SubmitRelayRefresh(c.Request.Context())
	if err != nil {
		h.fail(c, "devices_refresh_relays_failed", err)
		return
	}
	h.accepted(c, id)
}

// @Summary      Write T-C parameters
// @Description  Queued on the T-C lane; the outcome arrives as tempt_params_updated
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body   SetParamsRequest  true  "Seven parameters"
// @Success      202   {object}  map[string]string  "job_id"
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string  "queue full"
// @Router       /api/v1/devices/tempt/params [post]
// @Security     BearerAuth
func (h *Handler) setParams(c *gin.Context) {
	var req SetParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPf + err.Error()})
		return
	}
	id, err := h.services.Devices.SubmitParams(c.Request.Context(), req.Params)
	if err != nil {
		h.fail(c, "devices_set_params_failed", err)
		return
	}
	h.accepted(c, id)
}

// @Summary      Read T-C parameters back
// @Tags         devices
// @Produce      json
// @Success      202  {object}  map[string]string  "job_id"
// @Router       /api/v1/devices/tempt/readback [post]
// @Security     BearerAuth
func (h *Handler) readBack(c *gin.Context) {
	id, err := h.services.Devices.SubmitReadBack(c.Request.Context())
	if err != nil {
		h.fail(c, "devices_read_back_failed", err)
		return
	}
	h.accepted(c, id)
}

// @Summary      T-C self-check
// @Description  Reads all nine registers in order
// @Tags         devices
// @Produce      json
// @Success      202  {object}  map[string]string  "job_id"
// @Router       /api/v1/devices/tempt/selfcheck [post]
// @Security     BearerAuth
func (h *Handler) selfCheck(c *gin.Context) {
	id, err := h.services.Devices.SubmitSelfCheck(c.Request.Context())
	if err != nil {
		h.fail(c, "devices_self_check_failed", err)
		return
	}
	h.accepted(c, id)
}

// @Summary      Device error counters
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "devices"
// @Router       /api/v1/devices/errors [get]
// @Security     BearerAuth
func (h *Handler) getErrors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": h.services.Devices.Errors(c.Request.Context())})
}

// @Summary      Reset device error counters
// @Description  Without ?device both devices are reset
// @Tags         devices
// @Produce      json
// @Param        device  query  string  false  "Device"  Enums(relay,tempt)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/devices/errors [delete]
// @Security     BearerAuth
func (h *Handler) resetErrors(c *gin.Context) {
	dev := c.Query("device")
	if err := h.services.Devices.ResetErrors(c.Request.Context(), dev); err != nil {
		h.fail(c, "devices_reset_errors_failed", err, "device", dev)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": h.services.Devices.Errors(c.Request.Context())})
}
