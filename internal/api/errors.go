package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"example.com/backstage/services/events/internal/fees"
	"example.com/backstage/services/events/internal/lifecycle"
	"example.com/backstage/services/events/internal/repository"
	"example.com/backstage/services/events/internal/service"
)

// ErrorResponse is the error body returned by every endpoint
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain errors onto stable HTTP codes
func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	c.JSON(status, ErrorResponse{Code: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	var ineligible *service.IneligibleError

	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrPollNotOpen):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, lifecycle.ErrInvalidCandidate):
		return http.StatusConflict, "INVALID_CANDIDATE"
	case errors.Is(err, lifecycle.ErrCandidateNotFound):
		return http.StatusNotFound, "CANDIDATE_NOT_FOUND"
	case errors.Is(err, lifecycle.ErrLastCandidate):
		return http.StatusConflict, "LAST_CANDIDATE"
	case errors.Is(err, service.ErrAlreadyRegistered):
		return http.StatusConflict, "ALREADY_REGISTERED"
	case errors.As(err, &ineligible):
		return http.StatusUnprocessableEntity, string(ineligible.Reason)
	case errors.Is(err, service.ErrNotRegistered):
		return http.StatusNotFound, "NOT_REGISTERED"
	case errors.Is(err, service.ErrEditNotAllowed):
		return http.StatusForbidden, "EDIT_NOT_ALLOWED"
	case errors.Is(err, service.ErrDuplicateName):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, fees.ErrNoApplicableFee):
		return http.StatusUnprocessableEntity, "NO_APPLICABLE_FEE"
	case errors.Is(err, repository.ErrConcurrentModification):
		return http.StatusConflict, "CONCURRENT_MODIFICATION"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
