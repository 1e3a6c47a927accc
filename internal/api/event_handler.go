package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/service"
	"example.com/backstage/services/events/internal/tracing"
)

// EventHandler handles event lifecycle and catalog HTTP requests
type EventHandler struct {
	eventService service.EventService
	tracer       tracing.Tracer
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService service.EventService, tracer tracing.Tracer) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		tracer:       tracer,
	}
}

// scheduleRequest is the tagged schedule variant on the wire
type scheduleRequest struct {
	Type           string      `json:"type" binding:"required"`
	Date           *time.Time  `json:"date"`
	CandidateDates []time.Time `json:"candidate_dates"`
	Deadline       *time.Time  `json:"deadline"`
}

// feeSettingRequest is one fee rule on the wire, list order significant
type feeSettingRequest struct {
	ApplicableRole       string `json:"applicable_role" binding:"required"`
	ApplicableGeneration *int   `json:"applicable_generation"`
	Amount               int    `json:"amount"`
	Currency             string `json:"currency"`
}

// createEventRequest is the body of POST /events
type createEventRequest struct {
	Title              string              `json:"title" binding:"required"`
	Description        string              `json:"description"`
	Venue              string              `json:"venue"`
	ParticipationRoles []string            `json:"allowed_participation_roles" binding:"required"`
	EditRoles          []string            `json:"allowed_edit_roles"`
	Tags               []string            `json:"tags"`
	FeeSettings        []feeSettingRequest `json:"fee_settings"`
	Schedule           scheduleRequest     `json:"schedule" binding:"required"`
}

// updateEventRequest is the body of PATCH /events/:id; absent fields are
// left unchanged
type updateEventRequest struct {
	Title              *string              `json:"title"`
	Description        *string              `json:"description"`
	Venue              *string              `json:"venue"`
	ParticipationRoles *[]string            `json:"allowed_participation_roles"`
	EditRoles          *[]string            `json:"allowed_edit_roles"`
	Tags               *[]string            `json:"tags"`
	FeeSettings        *[]feeSettingRequest `json:"fee_settings"`
}

// dateRequest carries a single schedule date
type dateRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

// pollRequest is the body of POST /events/:id/schedule/poll
type pollRequest struct {
	CandidateDates []time.Time `json:"candidate_dates" binding:"required"`
	Deadline       *time.Time  `json:"deadline"`
}

// commentRequest is the body of POST /events/:id/comments
type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-event")
	defer h.tracer.EndTransaction(txn)

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid create event request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	detail, err := h.eventService.Create(c, currentParticipant(c), &service.CreateEventRequest{
		Title:              req.Title,
		Description:        req.Description,
		Venue:              req.Venue,
		ParticipationRoles: req.ParticipationRoles,
		EditRoles:          req.EditRoles,
		Tags:               req.Tags,
		FeeSettings:        toFeeInputs(req.FeeSettings),
		Schedule: service.ScheduleInput{
			Type:           service.ScheduleType(req.Schedule.Type),
			Date:           req.Schedule.Date,
			CandidateDates: req.Schedule.CandidateDates,
			Deadline:       req.Schedule.Deadline,
		},
	})
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// GetEvent handles GET /events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	detail, err := h.eventService.Get(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := service.CatalogFilter{
		Participation: service.ParticipationFilter(c.DefaultQuery("participation", string(service.ParticipationAll))),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.EventStatus(strings.ToUpper(raw))
		if !status.IsValid() && status != models.EventStatusFinished {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: "unknown status " + raw})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("tags"); raw != "" {
		filter.Tags = strings.Split(raw, ",")
	}
	switch filter.Participation {
	case service.ParticipationAll, service.ParticipationJoinable, service.ParticipationJoined:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: "unknown participation filter"})
		return
	}

	list, err := h.eventService.List(c, currentParticipant(c), &service.ListEventsRequest{
		Page:     page,
		PageSize: pageSize,
		Filter:   filter,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateEvent handles PATCH /events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	update := &service.UpdateEventRequest{
		Title:              req.Title,
		Description:        req.Description,
		Venue:              req.Venue,
		ParticipationRoles: req.ParticipationRoles,
		EditRoles:          req.EditRoles,
		Tags:               req.Tags,
	}
	if req.FeeSettings != nil {
		inputs := toFeeInputs(*req.FeeSettings)
		update.FeeSettings = &inputs
	}

	detail, err := h.eventService.Update(c, currentParticipant(c), id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ConfirmSchedule handles POST /events/:id/schedule/confirm
func (h *EventHandler) ConfirmSchedule(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-confirm-schedule")
	defer h.tracer.EndTransaction(txn)

	id, ok := eventID(c)
	if !ok {
		return
	}

	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	detail, err := h.eventService.ConfirmSchedule(c, currentParticipant(c), id, req.Date)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// OpenPoll handles POST /events/:id/schedule/poll
func (h *EventHandler) OpenPoll(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req pollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	detail, err := h.eventService.OpenPoll(c, currentParticipant(c), id, req.CandidateDates, req.Deadline)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// AddCandidate handles POST /events/:id/schedule/candidates
func (h *EventHandler) AddCandidate(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	detail, err := h.eventService.AddCandidate(c, currentParticipant(c), id, req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// RemoveCandidate handles DELETE /events/:id/schedule/candidates
func (h *EventHandler) RemoveCandidate(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	detail, err := h.eventService.RemoveCandidate(c, currentParticipant(c), id, req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CancelEvent handles POST /events/:id/cancel
func (h *EventHandler) CancelEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	detail, err := h.eventService.Cancel(c, currentParticipant(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// AddComment handles POST /events/:id/comments
func (h *EventHandler) AddComment(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	comment, err := h.eventService.AddComment(c, currentParticipant(c), id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments handles GET /events/:id/comments
func (h *EventHandler) ListComments(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	comments, err := h.eventService.ListComments(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// RegisterRoutes registers the handler's routes
func (h *EventHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/events", h.ListEvents)
	group.POST("/events", h.CreateEvent)
	group.GET("/events/:id", h.GetEvent)
	group.PATCH("/events/:id", h.UpdateEvent)
	group.POST("/events/:id/schedule/confirm", h.ConfirmSchedule)
	group.POST("/events/:id/schedule/poll", h.OpenPoll)
	group.POST("/events/:id/schedule/candidates", h.AddCandidate)
	group.DELETE("/events/:id/schedule/candidates", h.RemoveCandidate)
	group.POST("/events/:id/cancel", h.CancelEvent)
	group.GET("/events/:id/comments", h.ListComments)
	group.POST("/events/:id/comments", h.AddComment)
}

// eventID parses the :id path parameter, writing the error itself
func eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: "invalid event id"})
		return uuid.Nil, false
	}
	return id, true
}

func toFeeInputs(settings []feeSettingRequest) []service.FeeSettingInput {
	inputs := make([]service.FeeSettingInput, len(settings))
	for i, fs := range settings {
		inputs[i] = service.FeeSettingInput{
			ApplicableRole:       fs.ApplicableRole,
			ApplicableGeneration: fs.ApplicableGeneration,
			Amount:               fs.Amount,
			Currency:             fs.Currency,
		}
	}
	return inputs
}
