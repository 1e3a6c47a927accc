// Package lifecycle implements the event state machine and the schedule
// poll transition rules. All functions mutate the event in memory only;
// persistence and concurrency control live in the repository layer.
package lifecycle

import (
	"errors"
	"sort"
	"time"

	"example.com/backstage/services/events/internal/models"

	"github.com/google/uuid"
)

// Lifecycle errors
var (
	ErrInvalidTransition = errors.New("invalid event status transition")
	ErrInvalidCandidate  = errors.New("date is not one of the candidate dates")
	ErrCandidateNotFound = errors.New("candidate date not found")
	ErrLastCandidate     = errors.New("cannot remove the last candidate date of an open poll")
	ErrPollNotOpen       = errors.New("schedule poll is not open")
)

// EffectiveStatus computes the read-time status of an event. A confirmed
// event whose finalized date has passed reads as FINISHED; the stored
// status never changes.
func EffectiveStatus(e *models.Event, now time.Time) models.EventStatus {
	if Finished(e, now) {
		return models.EventStatusFinished
	}
	return e.Status
}

// Finished reports whether a confirmed event's finalized date has passed
func Finished(e *models.Event, now time.Time) bool {
	return e.Status == models.EventStatusConfirmed &&
		e.FinalizedDate != nil &&
		e.FinalizedDate.Before(now)
}

// OpenPoll transitions an event into SCHEDULE_POLLING with the given
// candidate dates. Allowed from DRAFT, or from CONFIRMED as long as the
// event has not already taken place. Reopening from CONFIRMED seeds the
// candidate list with the previously finalized date as the sole initial
// candidate and clears it; further dates are added via AddCandidate.
func OpenPoll(e *models.Event, candidates []time.Time, deadline *time.Time, now time.Time) error {
	if len(candidates) == 0 {
		return ErrInvalidTransition
	}

	switch e.Status {
	case models.EventStatusDraft:
		e.CandidateDates = buildCandidates(e.ID, sortedDates(candidates))
	case models.EventStatusConfirmed:
		if Finished(e, now) {
			return ErrInvalidTransition
		}
		e.CandidateDates = buildCandidates(e.ID, []time.Time{*e.FinalizedDate})
		e.FinalizedDate = nil
	default:
		return ErrInvalidTransition
	}

	e.Status = models.EventStatusSchedulePolling
	e.ScheduleDeadline = deadline
	return nil
}

// ConfirmDirectly confirms a draft event on the given date without polling
func ConfirmDirectly(e *models.Event, date time.Time) error {
	if e.Status != models.EventStatusDraft {
		return ErrInvalidTransition
	}

	d := date
	e.FinalizedDate = &d
	e.Status = models.EventStatusConfirmed
	return nil
}

// Finalize chooses one candidate date as the event's confirmed date.
// The schedule deadline is advisory display metadata and is deliberately
// not enforced here.
func Finalize(e *models.Event, chosen time.Time) error {
	if e.Status != models.EventStatusSchedulePolling {
		return ErrInvalidTransition
	}
	if !e.HasCandidate(chosen) {
		return ErrInvalidCandidate
	}

	d := chosen
	e.FinalizedDate = &d
	e.Status = models.EventStatusConfirmed
	return nil
}

// Cancel moves the event into the terminal CANCELLED state. A confirmed
// event that already took place can still be cancelled; nothing else is
// allowed out of it.
func Cancel(e *models.Event) error {
	if e.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	e.Status = models.EventStatusCancelled
	return nil
}

// AddCandidate appends a candidate date to an open poll. Adding a date
// already present is a no-op; insertion order is preserved for display.
func AddCandidate(e *models.Event, ts time.Time) error {
	if e.Status != models.EventStatusSchedulePolling {
		return ErrPollNotOpen
	}
	if e.HasCandidate(ts) {
		return nil
	}

	e.CandidateDates = append(e.CandidateDates, models.CandidateDate{
		ID:       uuid.New(),
		EventID:  e.ID,
		Date:     ts,
		Position: len(e.CandidateDates),
	})
	return nil
}

// RemoveCandidate removes a candidate date from an open poll. The last
// remaining candidate cannot be removed while the poll is open: an empty
// candidate set would violate the SCHEDULE_POLLING invariant.
func RemoveCandidate(e *models.Event, ts time.Time) error {
	if e.Status != models.EventStatusSchedulePolling {
		return ErrPollNotOpen
	}
	if !e.HasCandidate(ts) {
		return ErrCandidateNotFound
	}
	if len(e.CandidateDates) == 1 {
		return ErrLastCandidate
	}

	kept := make([]models.CandidateDate, 0, len(e.CandidateDates)-1)
	for _, c := range e.CandidateDates {
		if c.Date.Equal(ts) {
			continue
		}
		c.Position = len(kept)
		kept = append(kept, c)
	}
	e.CandidateDates = kept
	return nil
}

// sortedDates returns the dates sorted ascending with duplicates removed
func sortedDates(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		dup := false
		for _, o := range out {
			if o.Equal(d) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// buildCandidates materializes candidate rows with display positions,
// dropping duplicates while keeping first occurrence order
func buildCandidates(eventID uuid.UUID, dates []time.Time) []models.CandidateDate {
	candidates := make([]models.CandidateDate, 0, len(dates))
	for _, d := range dates {
		dup := false
		for _, c := range candidates {
			if c.Date.Equal(d) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		candidates = append(candidates, models.CandidateDate{
			ID:       uuid.New(),
			EventID:  eventID,
			Date:     d,
			Position: len(candidates),
		})
	}
	return candidates
}
