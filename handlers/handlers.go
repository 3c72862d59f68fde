package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleetwatch/database"
	"fleetwatch/models"
	"fleetwatch/services"
	"fleetwatch/websocket"
)

// Handler contains all the dependencies needed for HTTP handlers
type Handler struct {
	db            *database.DB
	hub           *websocket.Hub
	analyzer      *services.Analyzer
	eventLog      *services.EventLog
	notifications *services.NotificationService
}

// New creates a new handler instance
func New(db *database.DB, hub *websocket.Hub, analyzer *services.Analyzer, eventLog *services.EventLog, notifications *services.NotificationService) *Handler {
	return &Handler{
		db:            db,
		hub:           hub,
		analyzer:      analyzer,
		eventLog:      eventLog,
		notifications: notifications,
	}
}

// GetDashboard returns the full analytics snapshot in one call
func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyzer.BuildDashboard(h.eventLog))
}

// GetHealthScores returns health scores for every known device
func (h *Handler) GetHealthScores(c *gin.Context) {
	var scores []models.DeviceHealthScore
	for _, deviceID := range h.eventLog.DeviceIDs() {
		scores = append(scores, h.analyzer.HealthScore(deviceID,
			h.eventLog.IgnitionsFor(deviceID), h.eventLog.ExceptionsFor(deviceID)))
	}

	c.JSON(http.StatusOK, gin.H{
		"health_scores": scores,
		"count":         len(scores),
	})
}

// GetDeviceHealth returns the health score for one device
func (h *Handler) GetDeviceHealth(c *gin.Context) {
	deviceID := c.Param("id")
	score := h.analyzer.HealthScore(deviceID,
		h.eventLog.IgnitionsFor(deviceID), h.eventLog.ExceptionsFor(deviceID))

	c.JSON(http.StatusOK, score)
}

// GetDeviceMetrics returns performance metrics for one device
func (h *Handler) GetDeviceMetrics(c *gin.Context) {
	deviceID := c.Param("id")
	metrics := h.analyzer.PerformanceMetrics(deviceID,
		h.eventLog.IgnitionsFor(deviceID), h.eventLog.ExceptionsFor(deviceID))

	c.JSON(http.StatusOK, metrics)
}

// GetAnomalies returns detected anomalies, optionally for one device
func (h *Handler) GetAnomalies(c *gin.Context) {
	deviceIDs := h.eventLog.DeviceIDs()
	if filter := c.Query("device_id"); filter != "" {
		deviceIDs = []string{filter}
	}

	var anomalies []models.Anomaly
	for _, deviceID := range deviceIDs {
		anomalies = append(anomalies, h.analyzer.DetectAnomalies(deviceID,
			h.eventLog.IgnitionsFor(deviceID), h.eventLog.ExceptionsFor(deviceID))...)
	}

	c.JSON(http.StatusOK, gin.H{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

// GetPredictiveAlerts returns projected failure alerts, optionally for one device
func (h *Handler) GetPredictiveAlerts(c *gin.Context) {
	deviceIDs := h.eventLog.DeviceIDs()
	if filter := c.Query("device_id"); filter != "" {
		deviceIDs = []string{filter}
	}

	var alerts []models.PredictiveAlert
	for _, deviceID := range deviceIDs {
		alerts = append(alerts, h.analyzer.PredictAlerts(deviceID,
			h.eventLog.IgnitionsFor(deviceID), h.eventLog.ExceptionsFor(deviceID))...)
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetServerHealth returns the inferred backend availability snapshot
func (h *Handler) GetServerHealth(c *gin.Context) {
	snapshot := h.analyzer.ServerHealth(h.eventLog.AllIgnitions(), h.eventLog.AllExceptions())
	c.JSON(http.StatusOK, snapshot)
}

// GetGeographicData returns latest known positions with derived status
func (h *Handler) GetGeographicData(c *gin.Context) {
	data := h.analyzer.GeographicSnapshot(h.eventLog.DeviceIDs(),
		h.eventLog.IgnitionsFor, h.eventLog.ExceptionsFor)

	c.JSON(http.StatusOK, gin.H{
		"devices": data,
		"count":   len(data),
	})
}

// GetNetworkAnalysis returns incidents, classified events and recovery metrics
func (h *Handler) GetNetworkAnalysis(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyzer.AnalyzeNetwork(h.eventLog.AllExceptions()))
}

// GetNetworkStatus returns the trailing-30-minute fleet connectivity status
func (h *Handler) GetNetworkStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyzer.NetworkStatusNow(h.eventLog.AllExceptions()))
}

// GetRecoveryStatuses returns per-device recovery summaries
func (h *Handler) GetRecoveryStatuses(c *gin.Context) {
	statuses := h.analyzer.DeviceRecoveryStatuses(h.eventLog.AllExceptions())

	c.JSON(http.StatusOK, gin.H{
		"devices": statuses,
		"count":   len(statuses),
	})
}

// GetNotifications returns the bounded notification list
func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications":  h.notifications.All(),
		"unacknowledged": h.notifications.UnacknowledgedCount(),
	})
}

// AcknowledgeNotification acknowledges a specific notification
func (h *Handler) AcknowledgeNotification(c *gin.Context) {
	id := c.Param("id")

	var body struct {
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	// Body is optional; an empty acknowledger is allowed.
	_ = c.ShouldBindJSON(&body)

	acked := h.notifications.Acknowledge(id, body.AcknowledgedBy)

	c.JSON(http.StatusOK, gin.H{
		"notification_id": id,
		"acknowledged":    acked,
	})
}

// GetIgnitionEvents retrieves persisted ignition events with pagination
func (h *Handler) GetIgnitionEvents(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	events, err := h.db.GetRecentIgnitionEvents(limit, c.Query("device_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve ignition events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GetExceptionEvents retrieves persisted exception events with pagination
func (h *Handler) GetExceptionEvents(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	events, err := h.db.GetRecentExceptionEvents(limit, c.Query("device_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve exception events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GetAssignments retrieves all device-to-vehicle name assignments
func (h *Handler) GetAssignments(c *gin.Context) {
	assignments, err := h.db.GetAssignments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve assignments",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"count":       len(assignments),
	})
}

// UpsertAssignment creates or updates a device-to-vehicle name assignment
func (h *Handler) UpsertAssignment(c *gin.Context) {
	var body struct {
		DeviceID    string `json:"device_id" binding:"required"`
		VehicleName string `json:"vehicle_name" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.db.UpsertAssignment(body.DeviceID, body.VehicleName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save assignment",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Assignment saved successfully",
		"device_id":    body.DeviceID,
		"vehicle_name": body.VehicleName,
	})
}

// DeleteAssignment removes a device-to-vehicle name assignment
func (h *Handler) DeleteAssignment(c *gin.Context) {
	deviceID := c.Param("id")

	if err := h.db.DeleteAssignment(deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete assignment",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Assignment deleted successfully",
		"device_id": deviceID,
	})
}

// WebSocketEndpoint handles WebSocket connections
func (h *Handler) WebSocketEndpoint(c *gin.Context) {
	h.hub.HandleWebSocket(c.Writer, c.Request)
}

func parseLimit(raw string) int {
	limit := 50
	if raw == "" {
		return limit
	}
	if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
		limit = parsed
	}
	return limit
}
