package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/events/internal/fees"
	"example.com/backstage/services/events/internal/lifecycle"
	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/repository"
)

func newEventService(repo *MockEventRepository, regRepo *MockRegistrationRepository) *eventService {
	return &eventService{
		repo:     repo,
		regRepo:  regRepo,
		resolver: fees.NewResolver(nil),
		now:      func() time.Time { return testNow },
	}
}

func organizer() models.Participant {
	return models.Participant{ID: uuid.New(), Roles: []string{"member"}, Generation: 44}
}

func TestCreateConfirmedEvent(t *testing.T) {
	repo := new(MockEventRepository)
	regRepo := new(MockRegistrationRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Event")).Return(nil)
	regRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Registration")).Return(nil)

	service := newEventService(repo, regRepo)
	date := testNow.AddDate(0, 0, 7)
	org := organizer()

	detail, err := service.Create(context.Background(), org, &CreateEventRequest{
		Title:              "Spring meetup",
		Venue:              "Room 301",
		ParticipationRoles: []string{"member"},
		Tags:               []string{"social"},
		FeeSettings:        []FeeSettingInput{{ApplicableRole: "member", Amount: 3000}},
		Schedule:           ScheduleInput{Type: ScheduleTypeConfirmed, Date: &date},
	})
	require.NoError(t, err)
	require.Equal(t, models.EventStatusConfirmed, detail.Status)
	require.Equal(t, date, *detail.FinalizedDate)
	require.Equal(t, org.ID, detail.OrganizerID)
	require.Equal(t, []string{"member"}, detail.ParticipationRoles)

	// Currency defaulted on the fee setting
	require.Equal(t, models.JPY(3000), detail.FeeSettings[0].Fee)

	// The organizer is registered as a confirmed participant
	created := regRepo.Calls[0].Arguments.Get(1).(*models.Registration)
	require.Equal(t, org.ID, created.UserID)
	require.Equal(t, models.RegistrationStatusConfirmed, created.Status)
	require.Equal(t, 3000, created.FeeAmount)
	repo.AssertExpectations(t)
	regRepo.AssertExpectations(t)
}

func TestCreatePollingEvent(t *testing.T) {
	repo := new(MockEventRepository)
	regRepo := new(MockRegistrationRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Event")).Return(nil)
	regRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Registration")).Return(nil)

	service := newEventService(repo, regRepo)
	later := testNow.AddDate(0, 0, 14)
	sooner := testNow.AddDate(0, 0, 7)

	detail, err := service.Create(context.Background(), organizer(), &CreateEventRequest{
		Title:              "Planning session",
		ParticipationRoles: []string{"member"},
		Schedule:           ScheduleInput{Type: ScheduleTypePolling, CandidateDates: []time.Time{later, sooner}},
	})
	require.NoError(t, err)
	require.Equal(t, models.EventStatusSchedulePolling, detail.Status)
	require.Equal(t, []time.Time{sooner, later}, detail.CandidateDates)
	require.Nil(t, detail.FinalizedDate)

	// No fee settings: the organizer registers free of charge
	created := regRepo.Calls[0].Arguments.Get(1).(*models.Registration)
	require.Equal(t, 0, created.FeeAmount)
}

func TestCreateValidation(t *testing.T) {
	service := newEventService(new(MockEventRepository), new(MockRegistrationRepository))
	date := testNow.AddDate(0, 0, 7)

	cases := []*CreateEventRequest{
		{ParticipationRoles: []string{"member"}, Schedule: ScheduleInput{Type: ScheduleTypeConfirmed, Date: &date}},
		{Title: "No roles", Schedule: ScheduleInput{Type: ScheduleTypeConfirmed, Date: &date}},
		{Title: "No date", ParticipationRoles: []string{"member"}, Schedule: ScheduleInput{Type: ScheduleTypeConfirmed}},
		{Title: "No candidates", ParticipationRoles: []string{"member"}, Schedule: ScheduleInput{Type: ScheduleTypePolling}},
		{Title: "Bad type", ParticipationRoles: []string{"member"}, Schedule: ScheduleInput{Type: "someday"}},
		{Title: "Negative fee", ParticipationRoles: []string{"member"},
			FeeSettings: []FeeSettingInput{{ApplicableRole: "member", Amount: -1}},
			Schedule:    ScheduleInput{Type: ScheduleTypeConfirmed, Date: &date}},
	}
	for _, req := range cases {
		_, err := service.Create(context.Background(), organizer(), req)
		require.ErrorIs(t, err, ErrValidation, "request %q", req.Title)
	}
}

func pollingServiceEvent(org models.Participant, dates ...time.Time) *models.Event {
	e := &models.Event{
		ID:          uuid.New(),
		Title:       "Planning session",
		Status:      models.EventStatusDraft,
		OrganizerID: org.ID,
	}
	e.Roles = []models.EventRole{{
		ID: uuid.New(), EventID: e.ID, Role: "member", Scope: models.RoleScopeParticipation,
	}}
	if err := lifecycle.OpenPoll(e, dates, nil, testNow); err != nil {
		panic(err)
	}
	return e
}

func TestConfirmSchedulePromotesPendingRegistrations(t *testing.T) {
	org := organizer()
	chosen := testNow.AddDate(0, 0, 7)
	event := pollingServiceEvent(org, chosen, testNow.AddDate(0, 0, 14))

	pending := models.Registration{ID: uuid.New(), EventID: event.ID, UserID: uuid.New(), Status: models.RegistrationStatusPending}
	cancelled := models.Registration{ID: uuid.New(), EventID: event.ID, UserID: uuid.New(), Status: models.RegistrationStatusCancelled}

	repo := new(MockEventRepository)
	regRepo := new(MockRegistrationRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("UpdateVersioned", mock.Anything, event).Return(nil)
	regRepo.On("FindByEvent", mock.Anything, event.ID).Return([]models.Registration{pending, cancelled}, nil)
	regRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *models.Registration) bool {
		return r.ID == pending.ID && r.Status == models.RegistrationStatusConfirmed
	})).Return(nil)

	service := newEventService(repo, regRepo)
	detail, err := service.ConfirmSchedule(context.Background(), org, event.ID, chosen)
	require.NoError(t, err)
	require.Equal(t, models.EventStatusConfirmed, detail.Status)
	require.Equal(t, chosen, *detail.FinalizedDate)

	// Only the pending registration was promoted
	regRepo.AssertExpectations(t)
	regRepo.AssertNumberOfCalls(t, "Update", 1)
}

func TestConfirmScheduleRejectsNonCandidate(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	_, err := service.ConfirmSchedule(context.Background(), org, event.ID, testNow.AddDate(0, 0, 8))
	require.ErrorIs(t, err, lifecycle.ErrInvalidCandidate)
}

func TestUpdateRequiresEditRole(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))
	event.Roles = append(event.Roles, models.EventRole{
		ID: uuid.New(), EventID: event.ID, Role: "staff", Scope: models.RoleScopeEdit,
	})

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("UpdateVersioned", mock.Anything, event).Return(nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	title := "Renamed"

	// A member without an edit role is rejected
	stranger := models.Participant{ID: uuid.New(), Roles: []string{"member"}}
	_, err := service.Update(context.Background(), stranger, event.ID, &UpdateEventRequest{Title: &title})
	require.ErrorIs(t, err, ErrEditNotAllowed)

	// An edit role holder may update
	editor := models.Participant{ID: uuid.New(), Roles: []string{"staff"}}
	detail, err := service.Update(context.Background(), editor, event.ID, &UpdateEventRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", detail.Title)
}

func TestUpdateConcurrentModification(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("UpdateVersioned", mock.Anything, event).Return(repository.ErrConcurrentModification)

	service := newEventService(repo, new(MockRegistrationRepository))
	title := "Renamed"
	_, err := service.Update(context.Background(), org, event.ID, &UpdateEventRequest{Title: &title})
	require.ErrorIs(t, err, repository.ErrConcurrentModification)
}

func TestUpdateCannotDropAllParticipationRoles(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	empty := []string{}
	_, err := service.Update(context.Background(), org, event.ID, &UpdateEventRequest{ParticipationRoles: &empty})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCancelEvent(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("UpdateVersioned", mock.Anything, event).Return(nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	detail, err := service.Cancel(context.Background(), org, event.ID)
	require.NoError(t, err)
	require.Equal(t, models.EventStatusCancelled, detail.Status)

	// Terminal: a second cancel is rejected
	_, err = service.Cancel(context.Background(), org, event.ID)
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestRemoveLastCandidateThroughService(t *testing.T) {
	org := organizer()
	date := testNow.AddDate(0, 0, 7)
	event := pollingServiceEvent(org, date)

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	_, err := service.RemoveCandidate(context.Background(), org, event.ID, date)
	require.ErrorIs(t, err, lifecycle.ErrLastCandidate)
}

func TestGetFallsThroughToRepository(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	detail, err := service.Get(context.Background(), event.ID)
	require.NoError(t, err)
	require.Equal(t, event.ID, detail.ID)
	require.Equal(t, models.EventStatusSchedulePolling, detail.Status)
}

func TestGetUnknownEvent(t *testing.T) {
	repo := new(MockEventRepository)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, repository.ErrNotFound)

	service := newEventService(repo, new(MockRegistrationRepository))
	_, err := service.Get(context.Background(), id)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	var events []*models.Event
	for i := 0; i < 5; i++ {
		events = append(events, catalogEvent("event", []string{"member"}))
	}

	repo := new(MockEventRepository)
	repo.On("FindAll", mock.Anything).Return(events, nil)

	service := newEventService(repo, new(MockRegistrationRepository))
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	list, err := service.List(context.Background(), caller, &ListEventsRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, list.TotalCount)
	require.Len(t, list.Items, 2)
	require.Equal(t, 2, list.Page)

	// Past the end yields an empty page, not an error
	list, err = service.List(context.Background(), caller, &ListEventsRequest{Page: 4, PageSize: 2})
	require.NoError(t, err)
	require.Empty(t, list.Items)
}

func TestListJoinedUsesActiveRegistrations(t *testing.T) {
	joined := catalogEvent("joined", []string{"member"})
	other := catalogEvent("other", []string{"member"})
	caller := models.Participant{ID: uuid.New(), Roles: []string{"member"}}

	repo := new(MockEventRepository)
	regRepo := new(MockRegistrationRepository)
	repo.On("FindAll", mock.Anything).Return([]*models.Event{joined, other}, nil)
	regRepo.On("FindActiveByUser", mock.Anything, caller.ID).
		Return([]models.Registration{{ID: uuid.New(), EventID: joined.ID, UserID: caller.ID, Status: models.RegistrationStatusConfirmed}}, nil)

	service := newEventService(repo, regRepo)
	list, err := service.List(context.Background(), caller, &ListEventsRequest{
		Filter: CatalogFilter{Participation: ParticipationJoined},
	})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, joined.ID, list.Items[0].ID)
}

func TestAddAndListComments(t *testing.T) {
	org := organizer()
	event := pollingServiceEvent(org, testNow.AddDate(0, 0, 7))

	repo := new(MockEventRepository)
	repo.On("GetByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("CreateComment", mock.Anything, mock.AnythingOfType("*models.EventComment")).Return(nil)
	repo.On("FindCommentsByEvent", mock.Anything, event.ID).
		Return([]models.EventComment{{ID: uuid.New(), EventID: event.ID, UserID: org.ID, Content: "Looking forward to it"}}, nil)

	service := newEventService(repo, new(MockRegistrationRepository))

	comment, err := service.AddComment(context.Background(), org, event.ID, "Looking forward to it")
	require.NoError(t, err)
	require.Equal(t, org.ID, comment.UserID)

	_, err = service.AddComment(context.Background(), org, event.ID, "")
	require.ErrorIs(t, err, ErrValidation)

	comments, err := service.ListComments(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
}
