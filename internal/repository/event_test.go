package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/events/internal/models"
)

func TestVersionedWriteMirroredOntoStruct(t *testing.T) {
	event := &models.Event{
		ID:      uuid.New(),
		Title:   "meetup",
		Status:  models.EventStatusConfirmed,
		Version: 3,
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cols := versionedColumns(event, event.Version+1, now)
	bumpVersion(event, event.Version+1, now)

	// The struct must carry exactly what the row received, including the
	// update timestamp
	require.Equal(t, uint(4), event.Version)
	require.Equal(t, event.Version, cols["version"])
	require.Equal(t, now, event.UpdatedAt)
	require.Equal(t, event.UpdatedAt, cols["updated_at"])
}

func TestVersionedColumnsCarryScheduleFields(t *testing.T) {
	deadline := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	finalized := time.Date(2026, 3, 8, 18, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:               uuid.New(),
		Title:            "meetup",
		Status:           models.EventStatusSchedulePolling,
		ScheduleDeadline: &deadline,
		FinalizedDate:    &finalized,
		Version:          1,
	}

	cols := versionedColumns(event, 2, time.Now())
	require.Equal(t, event.ScheduleDeadline, cols["schedule_deadline"])
	require.Equal(t, event.FinalizedDate, cols["finalized_date"])
	require.Equal(t, event.Status, cols["status"])
}
