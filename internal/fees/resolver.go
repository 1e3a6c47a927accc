// Package fees resolves the fee applied to a participant from an event's
// ordered fee settings.
package fees

import (
	"errors"

	"example.com/backstage/services/events/internal/models"
)

// ErrNoApplicableFee is returned when fee settings exist but none match
// the participant.
var ErrNoApplicableFee = errors.New("no applicable fee setting for participant")

// Strategy picks the matching fee setting for a participant, or nil when
// none matches. The matching rule is pluggable so the observed
// first-match behavior can be swapped for most-specific-wins without
// touching call sites.
type Strategy func(settings []models.FeeSetting, participant models.Participant) *models.FeeSetting

// matches checks a single setting against a participant: the role must be
// held, and the generation must match when the setting scopes one.
func matches(s models.FeeSetting, p models.Participant) bool {
	if !p.HasRole(s.ApplicableRole) {
		return false
	}
	if s.ApplicableGeneration == nil {
		return true
	}
	return *s.ApplicableGeneration == p.Generation
}

// FirstMatch returns the first setting in list order that matches. This is
// the behavior observed in production data.
func FirstMatch(settings []models.FeeSetting, p models.Participant) *models.FeeSetting {
	for i := range settings {
		if matches(settings[i], p) {
			return &settings[i]
		}
	}
	return nil
}

// MostSpecific prefers a generation-scoped match over a role-wide one,
// falling back to list order within the same specificity.
func MostSpecific(settings []models.FeeSetting, p models.Participant) *models.FeeSetting {
	var best *models.FeeSetting
	for i := range settings {
		if !matches(settings[i], p) {
			continue
		}
		if settings[i].ApplicableGeneration != nil {
			return &settings[i]
		}
		if best == nil {
			best = &settings[i]
		}
	}
	return best
}

// Resolver resolves applied fees with a configurable matching strategy
type Resolver struct {
	strategy Strategy
}

// NewResolver creates a resolver; a nil strategy defaults to FirstMatch
func NewResolver(strategy Strategy) *Resolver {
	if strategy == nil {
		strategy = FirstMatch
	}
	return &Resolver{strategy: strategy}
}

// Resolve determines the fee applied to the participant. An event with no
// fee settings is free; settings that exist but match nobody fail with
// ErrNoApplicableFee.
func (r *Resolver) Resolve(settings []models.FeeSetting, participant models.Participant) (models.Money, error) {
	if len(settings) == 0 {
		return models.JPY(0), nil
	}

	setting := r.strategy(settings, participant)
	if setting == nil {
		return models.Money{}, ErrNoApplicableFee
	}
	return setting.Fee(), nil
}
