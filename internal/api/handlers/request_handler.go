package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/api/middleware"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

// RequestHandler handles the equipment request workflow
type RequestHandler struct {
	svc    service.Service
	tracer tracing.Tracer
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(svc service.Service, tracer tracing.Tracer) *RequestHandler {
	return &RequestHandler{svc: svc, tracer: tracer}
}

// HandleSubmitRequest files a new equipment request for the caller
func (h *RequestHandler) HandleSubmitRequest(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-submit-request")
	defer h.tracer.EndTransaction(txn)

	var input service.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requester := middleware.CurrentUser(c)
	h.tracer.AddAttribute(txn, "requester_id", requester.ID)

	req, err := h.svc.SubmitRequest(c.Request.Context(), requester, input)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// HandleApproveRequest approves a pending request
func (h *RequestHandler) HandleApproveRequest(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-approve-request")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.ApproveRequest(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// HandleRejectRequest rejects a pending request
func (h *RequestHandler) HandleRejectRequest(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reject-request")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.RejectRequest(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// HandleGetRequest reads one request
func (h *RequestHandler) HandleGetRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// HandleListRequests lists requests with optional filters
func (h *RequestHandler) HandleListRequests(c *gin.Context) {
	filter := repository.RequestFilter{
		Status:         models.RequestStatus(c.Query("status")),
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
	if v := c.Query("archived"); v != "" {
		archived := v == "true"
		filter.Archived = &archived
	}
	reqs, err := h.svc.ListRequests(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

// RegisterRoutes registers the handler's routes
func (h *RequestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/requests", h.HandleSubmitRequest)

	staff := rg.Group("", middleware.RequireStaff())
	staff.GET("/requests", h.HandleListRequests)
	staff.GET("/requests/:id", h.HandleGetRequest)
	staff.POST("/requests/:id/approve", h.HandleApproveRequest)
	staff.POST("/requests/:id/reject", h.HandleRejectRequest)
}
