package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/api/middleware"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

// EquipmentHandler handles catalog HTTP requests
type EquipmentHandler struct {
	svc    service.Service
	tracer tracing.Tracer
}

// NewEquipmentHandler creates a new equipment handler
func NewEquipmentHandler(svc service.Service, tracer tracing.Tracer) *EquipmentHandler {
	return &EquipmentHandler{svc: svc, tracer: tracer}
}

// CreateEquipmentRequest represents an incoming catalog entry
type CreateEquipmentRequest struct {
	Code        string                  `json:"code" binding:"required"`
	Name        string                  `json:"name" binding:"required"`
	Category    string                  `json:"category"`
	SubCategory string                  `json:"sub_category"`
	Location    string                  `json:"location"`
	Year        int                     `json:"year"`
	Mode        models.AvailabilityMode `json:"mode"`
	Quantity    int                     `json:"quantity"`
	State       models.EquipmentState   `json:"state"`
}

// AmountRequest carries a quantity for debit/credit operations
type AmountRequest struct {
	Amount int `json:"amount" binding:"required"`
}

// HandleCreateEquipment adds an item to the catalog
func (h *EquipmentHandler) HandleCreateEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-equipment")
	defer h.tracer.EndTransaction(txn)

	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.tracer.AddAttribute(txn, "code", req.Code)

	item := &models.EquipmentItem{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Location:    req.Location,
		Year:        req.Year,
		Mode:        req.Mode,
		Quantity:    req.Quantity,
		State:       req.State,
	}
	if err := h.svc.CreateEquipment(c.Request.Context(), item); err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// HandleUpdateEquipment edits a catalog entry
func (h *EquipmentHandler) HandleUpdateEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-equipment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var upd service.EquipmentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.svc.UpdateEquipment(c.Request.Context(), id, upd)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleDeleteEquipment removes a catalog entry
func (h *EquipmentHandler) HandleDeleteEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-delete-equipment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEquipment(c.Request.Context(), id); err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetEquipment reads one catalog entry
func (h *EquipmentHandler) HandleGetEquipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetEquipment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleListEquipment lists the catalog with optional filters and a
// free-text query
func (h *EquipmentHandler) HandleListEquipment(c *gin.Context) {
	filter := repository.EquipmentFilter{
		Category:    c.Query("category"),
		SubCategory: c.Query("sub_category"),
		Location:    c.Query("location"),
		State:       models.EquipmentState(c.Query("state")),
	}
	if v := c.Query("assigned"); v != "" {
		assigned := v == "true"
		filter.Assigned = &assigned
	}
	items, err := h.svc.ListEquipment(c.Request.Context(), filter, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": items, "count": len(items)})
}

// HandleDebitEquipment takes units out of availability
func (h *EquipmentHandler) HandleDebitEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-debit-equipment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.svc.DebitEquipment(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleCreditEquipment returns units to availability
func (h *EquipmentHandler) HandleCreditEquipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-credit-equipment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.svc.CreditEquipment(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// RegisterRoutes registers the handler's routes
func (h *EquipmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/equipment", h.HandleListEquipment)
	rg.GET("/equipment/:id", h.HandleGetEquipment)

	staff := rg.Group("", middleware.RequireStaff())
	staff.POST("/equipment", h.HandleCreateEquipment)
	staff.PUT("/equipment/:id", h.HandleUpdateEquipment)
	staff.DELETE("/equipment/:id", h.HandleDeleteEquipment)
	staff.POST("/equipment/:id/debit", h.HandleDebitEquipment)
	staff.POST("/equipment/:id/credit", h.HandleCreditEquipment)
}
