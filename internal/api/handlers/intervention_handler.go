package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/api/middleware"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

// InterventionHandler handles technician intervention requests
type InterventionHandler struct {
	svc    service.Service
	tracer tracing.Tracer
}

// NewInterventionHandler creates a new intervention handler
func NewInterventionHandler(svc service.Service, tracer tracing.Tracer) *InterventionHandler {
	return &InterventionHandler{svc: svc, tracer: tracer}
}

// HandleSubmitIntervention files an intervention request for the caller
func (h *InterventionHandler) HandleSubmitIntervention(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-submit-intervention")
	defer h.tracer.EndTransaction(txn)

	var input service.InterventionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ir, err := h.svc.SubmitIntervention(c.Request.Context(), middleware.CurrentUser(c), input)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ir)
}

// HandleListInterventions lists intervention requests
func (h *InterventionHandler) HandleListInterventions(c *gin.Context) {
	filter := repository.InterventionFilter{
		RequesterEmail: c.Query("requester"),
	}
	if v := c.Query("created_on"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "created_on must be YYYY-MM-DD"})
			return
		}
		filter.CreatedOn = &day
	}
	list, err := h.svc.ListInterventions(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interventions": list, "count": len(list)})
}

// RegisterRoutes registers the handler's routes
func (h *InterventionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interventions", h.HandleSubmitIntervention)
	rg.GET("/interventions", middleware.RequireStaff(), h.HandleListInterventions)
}
