package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/internal/eligibility"
	"example.com/backstage/services/events/internal/fees"
	"example.com/backstage/services/events/internal/lifecycle"
	"example.com/backstage/services/events/internal/messaging"
	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/repository"
	"example.com/backstage/services/events/internal/tracing"
)

// RegistrationView is the read view of one registration
type RegistrationView struct {
	ID         uuid.UUID                 `json:"id"`
	EventID    uuid.UUID                 `json:"event_id"`
	UserID     uuid.UUID                 `json:"user_id"`
	Status     models.RegistrationStatus `json:"status"`
	Generation int                       `json:"generation"`
	AppliedFee models.Money              `json:"applied_fee"`
	JoinedAt   time.Time                 `json:"joined_at"`
}

// RegistrationService manages event participation
type RegistrationService interface {
	Join(ctx context.Context, caller models.Participant, eventID uuid.UUID) (*RegistrationView, error)
	Leave(ctx context.Context, caller models.Participant, eventID uuid.UUID) error
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]RegistrationView, error)
	ReconcilePending(ctx context.Context, batchSize int) (int, error)
}

// registrationService implements RegistrationService
type registrationService struct {
	eventRepo repository.EventRepository
	regRepo   repository.RegistrationRepository
	resolver  *fees.Resolver
	bus       messaging.ServiceBusClient
	tracer    tracing.Tracer
	now       func() time.Time
}

// NewRegistrationService creates a new registration service. bus and
// tracer may be nil.
func NewRegistrationService(
	eventRepo repository.EventRepository,
	regRepo repository.RegistrationRepository,
	resolver *fees.Resolver,
	bus messaging.ServiceBusClient,
	tracer tracing.Tracer,
) RegistrationService {
	return &registrationService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
		resolver:  resolver,
		bus:       bus,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Join registers the caller for the event. The registration is created
// pending and confirmed once the event schedule is confirmed; if the
// event is already confirmed it is confirmed immediately.
func (s *registrationService) Join(ctx context.Context, caller models.Participant, eventID uuid.UUID) (*RegistrationView, error) {
	if s.tracer != nil {
		txn := s.tracer.StartTransaction("join-event")
		defer s.tracer.EndTransaction(txn)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := lifecycle.EffectiveStatus(event, now)
	if status == models.EventStatusCancelled {
		return nil, validationErr("cannot join a cancelled event")
	}

	hasActive := true
	if _, err := s.regRepo.GetActive(ctx, eventID, caller.ID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		hasActive = false
	}

	decision := eligibility.EvaluateForJoin(event, caller, now, hasActive)
	if !decision.Eligible {
		if decision.Reason == eligibility.ReasonAlreadyRegistered {
			return nil, ErrAlreadyRegistered
		}
		return nil, &IneligibleError{Reason: decision.Reason}
	}

	fee, err := s.resolver.Resolve(event.FeeSettings, caller)
	if err != nil {
		return nil, err
	}

	regStatus := models.RegistrationStatusPending
	if event.Status == models.EventStatusConfirmed {
		regStatus = models.RegistrationStatusConfirmed
	}

	key := models.ActiveRegistrationKey(eventID, caller.ID)
	registration := &models.Registration{
		ID:          uuid.New(),
		EventID:     eventID,
		UserID:      caller.ID,
		Status:      regStatus,
		Generation:  caller.Generation,
		FeeAmount:   fee.Amount,
		FeeCurrency: fee.Currency,
		JoinedAt:    now,
		ActiveKey:   &key,
	}
	if err := s.regRepo.Create(ctx, registration); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrAlreadyRegistered
		}
		return nil, errors.Wrap(err, "failed to create registration")
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", caller.ID.String()).
		Str("status", string(regStatus)).
		Int("fee_amount", fee.Amount).
		Msg("Participant joined event")

	if regStatus == models.RegistrationStatusConfirmed {
		s.notify(ctx, messaging.Notification{
			Kind:       messaging.NotificationRegistrationConfirmed,
			EventID:    eventID.String(),
			EventTitle: event.Title,
			UserID:     caller.ID.String(),
			OccurredAt: now,
		})
	}

	return buildRegistrationView(registration), nil
}

// Leave cancels the caller's active registration
func (s *registrationService) Leave(ctx context.Context, caller models.Participant, eventID uuid.UUID) error {
	registration, err := s.regRepo.GetActive(ctx, eventID, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotRegistered
		}
		return err
	}

	registration.Status = models.RegistrationStatusCancelled
	registration.ActiveKey = nil
	if err := s.regRepo.Update(ctx, registration); err != nil {
		return errors.Wrap(err, "failed to cancel registration")
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", caller.ID.String()).
		Msg("Participant left event")
	return nil
}

// ListParticipants lists all registrations of the event, join order
func (s *registrationService) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]RegistrationView, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	registrations, err := s.regRepo.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	views := make([]RegistrationView, len(registrations))
	for i := range registrations {
		views[i] = *buildRegistrationView(&registrations[i])
	}
	return views, nil
}

// ReconcilePending confirms registrations left pending on confirmed
// events. Run periodically by the worker as a backstop for failures
// during schedule confirmation.
func (s *registrationService) ReconcilePending(ctx context.Context, batchSize int) (int, error) {
	registrations, err := s.regRepo.FindPendingForConfirmedEvents(ctx, batchSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find pending registrations")
	}

	confirmed := 0
	for i := range registrations {
		r := &registrations[i]
		r.Status = models.RegistrationStatusConfirmed
		if err := s.regRepo.Update(ctx, r); err != nil {
			log.Warn().Err(err).
				Str("registration_id", r.ID.String()).
				Msg("Failed to reconcile pending registration")
			continue
		}
		confirmed++
		s.notify(ctx, messaging.Notification{
			Kind:       messaging.NotificationRegistrationConfirmed,
			EventID:    r.EventID.String(),
			UserID:     r.UserID.String(),
			OccurredAt: s.now(),
		})
	}
	return confirmed, nil
}

func (s *registrationService) notify(ctx context.Context, n messaging.Notification) {
	if s.bus == nil {
		return
	}
	if err := s.bus.SendMessage(ctx, n); err != nil {
		log.Warn().Err(err).Str("kind", n.Kind).Msg("Failed to publish notification")
	}
}

func buildRegistrationView(r *models.Registration) *RegistrationView {
	return &RegistrationView{
		ID:         r.ID,
		EventID:    r.EventID,
		UserID:     r.UserID,
		Status:     r.Status,
		Generation: r.Generation,
		AppliedFee: r.AppliedFee(),
		JoinedAt:   r.JoinedAt,
	}
}
