package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/events/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// catalogEvent builds a confirmed event a week out with the given
// participation roles and tags
func catalogEvent(title string, roles []string, tags ...string) *models.Event {
	e := &models.Event{
		ID:          uuid.New(),
		Title:       title,
		Status:      models.EventStatusConfirmed,
		OrganizerID: uuid.New(),
	}
	date := testNow.AddDate(0, 0, 7)
	e.FinalizedDate = &date
	for _, r := range roles {
		e.Roles = append(e.Roles, models.EventRole{
			ID: uuid.New(), EventID: e.ID, Role: r, Scope: models.RoleScopeParticipation,
		})
	}
	for _, tag := range tags {
		e.Tags = append(e.Tags, models.EventTag{ID: uuid.New(), EventID: e.ID, Tag: tag})
	}
	return e
}

func titles(events []*models.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}

func TestFilterEventsByStatus(t *testing.T) {
	draft := catalogEvent("draft", []string{"member"})
	draft.Status = models.EventStatusDraft
	draft.FinalizedDate = nil

	confirmed := catalogEvent("confirmed", []string{"member"})

	finished := catalogEvent("finished", []string{"member"})
	past := testNow.AddDate(0, 0, -7)
	finished.FinalizedDate = &past

	events := []*models.Event{draft, confirmed, finished}
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	status := models.EventStatusConfirmed
	got := FilterEvents(events, CatalogFilter{Status: &status}, caller, nil, testNow)
	require.Equal(t, []string{"confirmed"}, titles(got))

	// FINISHED is never stored, but filters against the read-time status
	status = models.EventStatusFinished
	got = FilterEvents(events, CatalogFilter{Status: &status}, caller, nil, testNow)
	require.Equal(t, []string{"finished"}, titles(got))
}

func TestFilterEventsByTagsAnyOverlap(t *testing.T) {
	events := []*models.Event{
		catalogEvent("sports day", []string{"member"}, "sports", "outdoor"),
		catalogEvent("book club", []string{"member"}, "reading"),
		catalogEvent("untagged", []string{"member"}),
	}
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	got := FilterEvents(events, CatalogFilter{Tags: []string{"sports", "reading"}}, caller, nil, testNow)
	require.Equal(t, []string{"sports day", "book club"}, titles(got))

	got = FilterEvents(events, CatalogFilter{Tags: []string{"music"}}, caller, nil, testNow)
	require.Empty(t, got)
}

func TestFilterEventsJoinable(t *testing.T) {
	open := catalogEvent("open", []string{"member"})
	wrongRole := catalogEvent("wrong role", []string{"alumni"})

	past := catalogEvent("already happened", []string{"member"})
	yesterday := testNow.AddDate(0, 0, -1)
	past.FinalizedDate = &yesterday

	joined := catalogEvent("joined wrong role", []string{"alumni"})

	events := []*models.Event{open, wrongRole, past, joined}
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	// Joinable includes events already joined even when eligibility would
	// now fail for a fresh join
	active := map[uuid.UUID]bool{joined.ID: true}
	got := FilterEvents(events, CatalogFilter{Participation: ParticipationJoinable}, caller, active, testNow)
	require.Equal(t, []string{"open", "joined wrong role"}, titles(got))
}

func TestFilterEventsJoined(t *testing.T) {
	a := catalogEvent("a", []string{"member"})
	b := catalogEvent("b", []string{"member"})
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	active := map[uuid.UUID]bool{b.ID: true}
	got := FilterEvents([]*models.Event{a, b}, CatalogFilter{Participation: ParticipationJoined}, caller, active, testNow)
	require.Equal(t, []string{"b"}, titles(got))
}

func TestFilterEventsDimensionsCombine(t *testing.T) {
	match := catalogEvent("match", []string{"member"}, "sports")
	wrongTag := catalogEvent("wrong tag", []string{"member"}, "reading")

	wrongStatus := catalogEvent("wrong status", []string{"member"}, "sports")
	wrongStatus.Status = models.EventStatusDraft
	wrongStatus.FinalizedDate = nil

	events := []*models.Event{match, wrongTag, wrongStatus}
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	status := models.EventStatusConfirmed
	filter := CatalogFilter{
		Status:        &status,
		Tags:          []string{"sports"},
		Participation: ParticipationJoinable,
	}
	got := FilterEvents(events, filter, caller, nil, testNow)
	require.Equal(t, []string{"match"}, titles(got))
}

func TestFilterEventsPreservesOrder(t *testing.T) {
	events := []*models.Event{
		catalogEvent("first", []string{"member"}),
		catalogEvent("second", []string{"member"}),
		catalogEvent("third", []string{"member"}),
	}
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	got := FilterEvents(events, CatalogFilter{}, caller, nil, testNow)
	require.Equal(t, []string{"first", "second", "third"}, titles(got))
}
