package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/api/middleware"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

// AssignmentHandler handles the assignment ledger endpoints
type AssignmentHandler struct {
	svc    service.Service
	tracer tracing.Tracer
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(svc service.Service, tracer tracing.Tracer) *AssignmentHandler {
	return &AssignmentHandler{svc: svc, tracer: tracer}
}

// ReassignRequest selects the replacement equipment for an assignment
type ReassignRequest struct {
	EquipmentID uint `json:"equipment_id" binding:"required"`
}

// HandleGrantEquipment hands equipment to a holder outside the request flow
func (h *AssignmentHandler) HandleGrantEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-grant-equipment")
	defer h.tracer.EndTransaction(txn)

	var input service.GrantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.svc.GrantEquipment(c.Request.Context(), middleware.CurrentUser(c), input)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// HandleReassignEquipment swaps the equipment behind an open assignment
func (h *AssignmentHandler) HandleReassignEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reassign-equipment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.svc.ReassignEquipment(c.Request.Context(), middleware.CurrentUser(c), id, req.EquipmentID)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleReturnAssignment closes an open assignment
func (h *AssignmentHandler) HandleReturnAssignment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-return-assignment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.ReturnAssignment(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleListAssignments lists the ledger with optional filters
func (h *AssignmentHandler) HandleListAssignments(c *gin.Context) {
	filter := repository.AssignmentFilter{
		OpenOnly: c.Query("open") == "true",
	}
	if id, ok := queryID(c, "holder_id"); ok {
		filter.HolderID = id
	}
	if id, ok := queryID(c, "equipment_id"); ok {
		filter.EquipmentID = id
	}
	list, err := h.svc.ListAssignments(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": list, "count": len(list)})
}

// HandleListMyEquipment lists the caller's open assignments
func (h *AssignmentHandler) HandleListMyEquipment(c *gin.Context) {
	list, err := h.svc.ListMyEquipment(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": list, "count": len(list)})
}

// RegisterRoutes registers the handler's routes
func (h *AssignmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assignments/:id/return", h.HandleReturnAssignment)
	rg.GET("/my/equipment", h.HandleListMyEquipment)

	staff := rg.Group("", middleware.RequireStaff())
	staff.POST("/assignments", h.HandleGrantEquipment)
	staff.POST("/assignments/:id/reassign", h.HandleReassignEquipment)
	staff.GET("/assignments", h.HandleListAssignments)
}
