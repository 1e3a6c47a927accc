package service

import (
	"time"

	"github.com/google/uuid"

	"example.com/backstage/services/events/internal/eligibility"
	"example.com/backstage/services/events/internal/lifecycle"
	"example.com/backstage/services/events/internal/models"
)

// ParticipationFilter narrows a catalog listing by the caller's relation
// to each event
type ParticipationFilter string

const (
	// ParticipationAll applies no participation filtering
	ParticipationAll ParticipationFilter = "all"
	// ParticipationJoinable keeps events the caller could join or has joined
	ParticipationJoinable ParticipationFilter = "joinable"
	// ParticipationJoined keeps events the caller has an active registration for
	ParticipationJoined ParticipationFilter = "joined"
)

// CatalogFilter is the composed event listing filter. Dimensions combine
// with AND; the tag dimension matches on any overlap (OR within tags).
type CatalogFilter struct {
	Status        *models.EventStatus
	Tags          []string
	Participation ParticipationFilter
}

// FilterEvents applies the catalog filter over the event collection.
// activeEvents holds the IDs of events the caller has an active
// registration for. Input ordering is preserved; the filter imposes none
// of its own.
func FilterEvents(
	events []*models.Event,
	filter CatalogFilter,
	caller models.Participant,
	activeEvents map[uuid.UUID]bool,
	now time.Time,
) []*models.Event {
	var filtered []*models.Event

	for _, event := range events {
		// Status filter matches the read-time status, so FINISHED is a
		// valid filter value even though it is never stored.
		if filter.Status != nil && lifecycle.EffectiveStatus(event, now) != *filter.Status {
			continue
		}

		if len(filter.Tags) > 0 && !event.HasAnyTag(filter.Tags) {
			continue
		}

		switch filter.Participation {
		case ParticipationJoinable:
			joined := activeEvents[event.ID]
			if !joined && !eligibility.Evaluate(event, caller, now).Eligible {
				continue
			}
		case ParticipationJoined:
			if !activeEvents[event.ID] {
				continue
			}
		}

		filtered = append(filtered, event)
	}

	return filtered
}
