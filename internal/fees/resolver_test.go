package fees

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/events/internal/models"
)

func intPtr(v int) *int { return &v }

func participant(generation int, roles ...string) models.Participant {
	return models.Participant{ID: uuid.New(), Roles: roles, Generation: generation}
}

// Settings as entered by an organizer: a generation-scoped discount rule
// listed before two role-wide rules.
func sampleSettings() []models.FeeSetting {
	return []models.FeeSetting{
		{Position: 0, ApplicableRole: "member", ApplicableGeneration: intPtr(45), FeeAmount: 1000, FeeCurrency: "JPY"},
		{Position: 1, ApplicableRole: "member", FeeAmount: 3000, FeeCurrency: "JPY"},
		{Position: 2, ApplicableRole: "guest", FeeAmount: 5000, FeeCurrency: "JPY"},
	}
}

func TestResolveNoSettingsIsFree(t *testing.T) {
	resolver := NewResolver(nil)

	fee, err := resolver.Resolve(nil, participant(45, "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(0), fee)
}

func TestResolveFirstMatchInListOrder(t *testing.T) {
	resolver := NewResolver(nil)

	// Generation 45 member hits the scoped rule first
	fee, err := resolver.Resolve(sampleSettings(), participant(45, "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(1000), fee)

	// Any other generation falls through to the role-wide rule
	fee, err = resolver.Resolve(sampleSettings(), participant(46, "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(3000), fee)

	fee, err = resolver.Resolve(sampleSettings(), participant(0, "guest"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(5000), fee)
}

func TestResolveNoApplicableFee(t *testing.T) {
	resolver := NewResolver(nil)

	settings := []models.FeeSetting{
		{Position: 0, ApplicableRole: "member", ApplicableGeneration: intPtr(45), FeeAmount: 1000, FeeCurrency: "JPY"},
	}

	// Settings exist but none match: resolution fails rather than
	// defaulting to free
	_, err := resolver.Resolve(settings, participant(46, "member"))
	require.ErrorIs(t, err, ErrNoApplicableFee)

	_, err = resolver.Resolve(sampleSettings(), participant(45, "alumni"))
	require.ErrorIs(t, err, ErrNoApplicableFee)
}

func TestResolveMultipleRolesFirstRuleWins(t *testing.T) {
	resolver := NewResolver(nil)

	// A participant holding both roles gets the earlier rule
	fee, err := resolver.Resolve(sampleSettings(), participant(46, "guest", "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(3000), fee)
}

func TestMostSpecificPrefersGenerationRule(t *testing.T) {
	// Same rules with the scoped one listed last
	settings := []models.FeeSetting{
		{Position: 0, ApplicableRole: "member", FeeAmount: 3000, FeeCurrency: "JPY"},
		{Position: 1, ApplicableRole: "member", ApplicableGeneration: intPtr(45), FeeAmount: 1000, FeeCurrency: "JPY"},
	}

	// FirstMatch takes list order
	fee, err := NewResolver(FirstMatch).Resolve(settings, participant(45, "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(3000), fee)

	// MostSpecific skips ahead to the generation-scoped rule
	fee, err = NewResolver(MostSpecific).Resolve(settings, participant(45, "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(1000), fee)

	// Without a scoped match it falls back to list order
	fee, err = NewResolver(MostSpecific).Resolve(settings, participant(46, "member"))
	require.NoError(t, err)
	require.Equal(t, models.JPY(3000), fee)
}
