package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/events/internal/service"
	"example.com/backstage/services/events/internal/tracing"
)

// RegistrationHandler handles participation HTTP requests
type RegistrationHandler struct {
	registrationService service.RegistrationService
	tracer              tracing.Tracer
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrationService service.RegistrationService, tracer tracing.Tracer) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		tracer:              tracer,
	}
}

// Join handles POST /events/:id/registrations
func (h *RegistrationHandler) Join(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-join-event")
	defer h.tracer.EndTransaction(txn)

	id, ok := eventID(c)
	if !ok {
		return
	}

	registration, err := h.registrationService.Join(c, currentParticipant(c), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, registration)
}

// Leave handles DELETE /events/:id/registrations
func (h *RegistrationHandler) Leave(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	if err := h.registrationService.Leave(c, currentParticipant(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListParticipants handles GET /events/:id/registrations
func (h *RegistrationHandler) ListParticipants(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	registrations, err := h.registrationService.ListParticipants(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, registrations)
}

// RegisterRoutes registers the handler's routes
func (h *RegistrationHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/events/:id/registrations", h.Join)
	group.DELETE("/events/:id/registrations", h.Leave)
	group.GET("/events/:id/registrations", h.ListParticipants)
}
