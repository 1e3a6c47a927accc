// Package eligibility decides whether a participant may join an event.
// An ineligible outcome is a normal decision value, not an error: callers
// such as the catalog filter branch on it without raising.
package eligibility

import (
	"time"

	"example.com/backstage/services/events/internal/models"
)

// Reason identifies why a participant is ineligible
type Reason string

const (
	// ReasonNoAllowedRole means the participant holds none of the event's
	// participation roles
	ReasonNoAllowedRole Reason = "NO_ALLOWED_ROLE"
	// ReasonEventInPast means the event's finalized date is before today
	ReasonEventInPast Reason = "EVENT_IN_PAST"
	// ReasonAlreadyRegistered means an active registration already exists.
	// This is a join-only precondition.
	ReasonAlreadyRegistered Reason = "ALREADY_REGISTERED"
)

// Decision is the outcome of an eligibility evaluation
type Decision struct {
	Eligible bool
	Reason   Reason
}

// eligible is the positive decision
var eligible = Decision{Eligible: true}

// ineligible builds a negative decision with the given reason
func ineligible(reason Reason) Decision {
	return Decision{Eligible: false, Reason: reason}
}

// Evaluate applies the general eligibility rules in order, short-circuiting
// on the first failure:
//
//  1. the participant must hold at least one allowed participation role;
//  2. a finalized event date must not lie on a calendar day before today.
//
// Events without a finalized date (draft, or still polling) skip rule 2:
// a reschedule in progress keeps the event joinable on role grounds alone.
func Evaluate(e *models.Event, p models.Participant, now time.Time) Decision {
	if !p.HasAnyRole(e.ParticipationRoles()) {
		return ineligible(ReasonNoAllowedRole)
	}

	if e.FinalizedDate != nil {
		// Compare calendar days in the caller's zone; a stored date in a
		// different zone must not shift the day boundary.
		eventDay := truncateToDay(e.FinalizedDate.In(now.Location()))
		today := truncateToDay(now)
		if eventDay.Before(today) {
			return ineligible(ReasonEventInPast)
		}
	}

	return eligible
}

// EvaluateForJoin additionally enforces the at-most-one-active-registration
// precondition. hasActiveRegistration is supplied by the caller so this
// package stays pure.
func EvaluateForJoin(e *models.Event, p models.Participant, now time.Time, hasActiveRegistration bool) Decision {
	if d := Evaluate(e, p, now); !d.Eligible {
		return d
	}
	if hasActiveRegistration {
		return ineligible(ReasonAlreadyRegistered)
	}
	return eligible
}

// truncateToDay zeroes the time-of-day so comparisons run on calendar dates
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
