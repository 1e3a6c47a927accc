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
)

// participantKey is the gin context key the identity middleware sets
const participantKey = "participant"

// Identity headers set by the gateway in front of this service
const (
	headerUserID     = "X-User-ID"
	headerUserRoles  = "X-User-Roles"
	headerGeneration = "X-User-Generation"
)

// identityMiddleware resolves the calling participant from the gateway
// headers. Requests without a valid user id are rejected.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader(headerUserID)
		if rawID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "missing " + headerUserID + " header",
			})
			return
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "invalid " + headerUserID + " header",
			})
			return
		}

		participant := models.Participant{
			ID:    userID,
			Roles: splitRoles(c.GetHeader(headerUserRoles)),
		}
		if raw := c.GetHeader(headerGeneration); raw != "" {
			generation, err := strconv.Atoi(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
					Code:    "VALIDATION_ERROR",
					Message: "invalid " + headerGeneration + " header",
				})
				return
			}
			participant.Generation = generation
		}

		c.Set(participantKey, participant)
		c.Next()
	}
}

// currentParticipant returns the identity resolved by the middleware
func currentParticipant(c *gin.Context) models.Participant {
	value, _ := c.Get(participantKey)
	participant, _ := value.(models.Participant)
	return participant
}

// splitRoles parses the comma-separated roles header
func splitRoles(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

// requestLogger logs one structured line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}
