package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/events/internal/service"
)

// DirectoryHandler handles role and tag directory HTTP requests
type DirectoryHandler struct {
	directoryService service.DirectoryService
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directoryService service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directoryService}
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateRole handles POST /roles
func (h *DirectoryHandler) CreateRole(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	role, err := h.directoryService.CreateRole(c, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

// ListRoles handles GET /roles
func (h *DirectoryHandler) ListRoles(c *gin.Context) {
	roles, err := h.directoryService.ListRoles(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// CreateTag handles POST /tags
func (h *DirectoryHandler) CreateTag(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	tag, err := h.directoryService.CreateTag(c, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// ListTags handles GET /tags
func (h *DirectoryHandler) ListTags(c *gin.Context) {
	tags, err := h.directoryService.ListTags(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// RegisterRoutes registers the handler's routes
func (h *DirectoryHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/roles", h.ListRoles)
	group.POST("/roles", h.CreateRole)
	group.GET("/tags", h.ListTags)
	group.POST("/tags", h.CreateTag)
}
