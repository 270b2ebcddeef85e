package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"thermostab/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRange       = "'from' must be <= 'to'"
	errPoint       = "invalid 'point'; use a non-negative index"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports a value without a clock part; such a 'to' covers the whole day.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List logs
// @Description  Filter logs by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive (23:59:59.999999999Z).
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to    query   string  false  "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day."  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(STATE_CHANGED,RELAY_UPDATE,PARAMS_UPDATE,FAULT,POINT_FINISHED,JOB_FAILED,COMMAND)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	eventType := strings.ToUpper(strings.TrimSpace(c.Query("type")))
	events, err := h.services.EventLog.List(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Type: eventType,
	})
	if err != nil {
		h.fail(c, "logs_list_failed", err, "type", eventType)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// @Summary      List measurements
// @Description  One row per measured temperature point, filtered like the logs
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range"
// @Param        to     query   string  false  "End of range"
// @Param        point  query   int     false  "Point index"
// @Success      200    {object}  map[string]interface{}  "count, measurements"
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/measurements [get]
// @Security     BearerAuth
func (h *Handler) getMeasurements(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	f := service.MeasurementFilter{From: from, To: to}
	if qs := c.Query("point"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errPoint})
			return
		}
		f.Point = &n
	}
	rows, err := h.services.Measurements.ListMeasurements(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "measurements_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(rows),
		"measurements": rows,
	})
}

// queryRange parses the optional from/to query parameters. It writes a 400
// and reports false on bad input.
func queryRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return from, to, false
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return from, to, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRange})
		return from, to, false
	}
	return from, to, true
}

var queryLayouts = []string{time.RFC3339Nano, layoutDateTime, layoutDate}

// parseQueryTime accepts any of queryLayouts and returns UTC. Times without
// an offset are read as UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q matches none of %v", s, queryLayouts)
}
