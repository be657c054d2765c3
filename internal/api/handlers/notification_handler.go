package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/inventory/internal/api/middleware"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

// NotificationHandler handles the caller's notification feed
type NotificationHandler struct {
	svc    service.Service
	tracer tracing.Tracer
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc service.Service, tracer tracing.Tracer) *NotificationHandler {
	return &NotificationHandler{svc: svc, tracer: tracer}
}

// HandleListNotifications lists the caller's notifications
func (h *NotificationHandler) HandleListNotifications(c *gin.Context) {
	list, err := h.svc.ListNotifications(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

// HandleMarkNotificationRead flags one of the caller's notifications as read
func (h *NotificationHandler) HandleMarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkNotificationRead(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.HandleListNotifications)
	rg.POST("/notifications/:id/read", h.HandleMarkNotificationRead)
}
