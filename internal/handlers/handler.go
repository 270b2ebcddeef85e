package handlers

import (
	"net/http"

	"thermostab/internal/logger"
	"thermostab/internal/notify"
	"thermostab/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Subscriber hands out bus subscriptions for the websocket stream.
type Subscriber interface {
	Subscribe(queue int, types ...notify.Type) *notify.Subscription
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	bus      Subscriber
	metrics  http.Handler
}

// NewHandler constructs a new HTTP handler with dependencies. bus and
// metrics may be nil; the matching routes are then not registered.
func NewHandler(services *service.Service, log *logger.Logger, bus Subscriber, metrics http.Handler) *Handler {
	return &Handler{services: services, log: log, bus: bus, metrics: metrics}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	if h.bus != nil {
		router.GET("/ws", h.wsConnect)
	}
	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		h.registerControlRoutes(api)
		h.registerDeviceRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerControlRoutes(api *gin.RouterGroup) {
	ctl := api.Group("/control")
	{
		ctl.GET("/state", h.getState)
		ctl.POST("/start", h.startAutoRun)
		ctl.POST("/suspend", h.suspend)
		ctl.POST("/stop", h.forceStop)
		ctl.POST("/reset", h.reset)
		ctl.GET("/points", h.getPoints)
		// Body example: {"points":[{"target":25,"params":[25,0,0,30,200,50,60]}]}
		ctl.PUT("/points", h.setPoints)
		ctl.GET("/thresholds", h.getThresholds)
		ctl.PUT("/thresholds", h.setThresholds)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	dev := api.Group("/devices")
	{
		dev.GET("/ports", h.listPorts)
		dev.POST("/port", h.setPort)
		dev.POST("/relay", h.setRelay)
		dev.POST("/relay/refresh", h.refreshRelays)
		dev.POST("/tempt/params", h.setParams)
		dev.POST("/tempt/readback", h.readBack)
		dev.POST("/tempt/selfcheck", h.selfCheck)
		dev.GET("/errors", h.getErrors)
		dev.DELETE("/errors", h.resetErrors)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	api.GET("/logs", h.getLogs)
	api.GET("/measurements", h.getMeasurements)
}
