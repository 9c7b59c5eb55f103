package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appservices "github.com/dailymirror/mirror-go/internal/application/services"
	"github.com/dailymirror/mirror-go/internal/domain/entities/notification"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/resilience"
)

// NotificationHandlers contains the reminder-scheduling handlers.
type NotificationHandlers struct {
	service     *appservices.NotificationService
	coordinator *resilience.Coordinator
	logger      *logging.ChanneledLogger
}

// NewNotificationHandlers creates notification handlers with injected dependencies.
func NewNotificationHandlers(service *appservices.NotificationService, coordinator *resilience.Coordinator, logger *logging.ChanneledLogger) *NotificationHandlers {
	return &NotificationHandlers{
		service:     service,
		coordinator: coordinator,
		logger:      logger,
	}
}

// ScheduleDailyMirrorRequest carries the user's reminder preferences.
type ScheduleDailyMirrorRequest struct {
	PreferredHour   int    `json:"preferredHour"`
	PreferredMinute int    `json:"preferredMinute"`
	EnableWeekends  bool   `json:"enableWeekends"`
	Timezone        string `json:"timezone" binding:"required"`
	Email           string `json:"email"`
}

// PostDailyMirror handles POST /api/v1/users/:userId/notifications/daily-mirror
func (h *NotificationHandlers) PostDailyMirror(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	var req ScheduleDailyMirrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	prefs := notification.Preferences{
		PreferredHour:   req.PreferredHour,
		PreferredMinute: req.PreferredMinute,
		EnableWeekends:  req.EnableWeekends,
		Timezone:        req.Timezone,
		Email:           req.Email,
	}

	scheduled, err := h.service.ScheduleDailyMirror(c.Request.Context(), userID, prefs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "scheduling failed, parked for in-app delivery"})
		return
	}
	c.JSON(http.StatusCreated, scheduled)
}

// TimezoneChangeRequest carries the user's new timezone.
type TimezoneChangeRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

// PostTimezone handles POST /api/v1/users/:userId/notifications/timezone
func (h *NotificationHandlers) PostTimezone(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	var req TimezoneChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	if _, err := time.LoadLocation(req.Timezone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timezone"})
		return
	}

	if err := h.service.HandleTimezoneChange(c.Request.Context(), userID, req.Timezone); err != nil {
		h.logger.Notify().Error("Timezone change failed", "userId", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rescheduling failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rescheduled", "timezone": req.Timezone})
}

// ReEngageRequest carries the inputs for a re-engagement send.
type ReEngageRequest struct {
	LastOpenAt time.Time `json:"lastOpenAt" binding:"required"`
	Timezone   string    `json:"timezone"`
	Email      string    `json:"email"`
}

// PostReEngage handles POST /api/v1/users/:userId/notifications/re-engage
func (h *NotificationHandlers) PostReEngage(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	var req ReEngageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	prefs := notification.Preferences{Timezone: req.Timezone, Email: req.Email}
	if err := h.service.SendReEngagement(c.Request.Context(), userID, prefs, req.LastOpenAt); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "re-engagement delivery failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// GetNotifications handles GET /api/v1/users/:userId/notifications. The
// response carries both the scheduled reminders and any notifications parked
// for in-app pickup; parked notifications are cleared on read.
func (h *NotificationHandlers) GetNotifications(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	scheduled := h.service.Pending(c.Request.Context(), userID)
	parked := h.coordinator.PendingNotifications(c.Request.Context(), userID)

	c.JSON(http.StatusOK, gin.H{
		"scheduled": scheduled,
		"parked":    parked,
	})
}
