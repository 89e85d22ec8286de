package lifecycle

import (
	"testing"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC)
	require.NoError(t, err)
	return ts
}

func policyAt(t *testing.T, now string) CompletionPolicy {
	return CompletionPolicy{Clock: FixedClock(at(t, now)), Location: time.UTC}
}

func TestCanMarkComplete(t *testing.T) {
	booking := func(status models.BookingStatus) *models.Booking {
		return &models.Booking{Status: status, Date: "2025-01-10", StartTime: "09:00", EndTime: "10:00"}
	}

	tests := []struct {
		name   string
		status models.BookingStatus
		now    string
		want   bool
	}{
		{"confirmed after end", models.BookingStatusConfirmed, "2025-01-10T10:00:01", true},
		{"scheduled after end", models.BookingStatusScheduled, "2025-01-10T11:30:00", true},
		{"end equals now", models.BookingStatusConfirmed, "2025-01-10T10:00:00", true},
		{"one second before end", models.BookingStatusConfirmed, "2025-01-10T09:59:59", false},
		{"already completed", models.BookingStatusCompleted, "2025-01-11T00:00:00", false},
		{"pending", models.BookingStatusPending, "2025-01-11T00:00:00", false},
		{"cancelled", models.BookingStatusCancelled, "2025-01-11T00:00:00", false},
		{"reschedule pending", models.BookingStatusReschedulePending, "2025-01-11T00:00:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policyAt(t, tt.now).CanMarkComplete(booking(tt.status)))
		})
	}
}

func TestCanMarkCompleteRejectsMalformedTimes(t *testing.T) {
	p := policyAt(t, "2030-01-01T00:00:00")
	assert.False(t, p.CanMarkComplete(&models.Booking{Status: models.BookingStatusConfirmed, Date: "10/01/2025", EndTime: "10:00"}))
	assert.False(t, p.CanMarkComplete(nil))
}

func TestTimeUntilComplete(t *testing.T) {
	b := &models.Booking{Status: models.BookingStatusConfirmed, Date: "2025-01-10", EndTime: "10:00"}

	got := policyAt(t, "2025-01-10T10:00:01").TimeUntilComplete(b)
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)

	got = policyAt(t, "2025-01-10T09:58:30").TimeUntilComplete(b)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got, "partial minutes round up")

	got = policyAt(t, "2025-01-10T09:00:00").TimeUntilComplete(b)
	require.NotNil(t, got)
	assert.Equal(t, 60, *got)

	assert.Nil(t, policyAt(t, "2025-01-10T09:00:00").TimeUntilComplete(nil))
}

func TestAddMinutes(t *testing.T) {
	end, err := AddMinutes("14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, "15:00", end)

	_, err = AddMinutes("23:30", 60)
	assert.Error(t, err)
}
