package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/notifications"
)

func TestBaseURLFromEnv(t *testing.T) {
	t.Setenv("TUTORLINK_API_URL", "")
	assert.Equal(t, "http://localhost:5000/api", BaseURLFromEnv())

	t.Setenv("TUTORLINK_API_URL", "https://api.example.com/api/")
	assert.Equal(t, "https://api.example.com/api", BaseURLFromEnv())
}

func TestLocalValidationSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	c := New(srv.URL, WithToken("t"))
	ctx := context.Background()

	confirmed := Booking{Booking: models.Booking{Status: models.BookingStatusConfirmed}}
	_, err := c.CancelBooking(ctx, confirmed, "  ")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = c.Reschedule(ctx, 1, lifecycle.RescheduleInput{NewDate: "2025-01-10"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = c.CreateReview(ctx, 1, ReviewInput{Rating: 0})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	assert.Equal(t, int32(0), hits.Load())
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"cannot cancel a completed booking","kind":"transition"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("secret"))
	pending := Booking{Booking: models.Booking{Status: models.BookingStatusCompleted}}
	_, err := c.CancelBooking(context.Background(), pending, "late")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "transition", apiErr.Kind)
}

// feedServer serves a fixed feed and fails every mutation.
func feedServer(t *testing.T, refreshes *atomic.Int32) *httptest.Server {
	t.Helper()
	request := models.Booking{Subject: "Maths", Status: models.BookingStatusPending}
	request.ID = 1
	reschedule := models.RescheduleRequest{BookingID: 2, Status: models.RequestStatusPending}
	reschedule.ID = 20
	notice := models.CancellationNotice{BookingID: 3, Reason: "Ill", Status: models.RequestStatusPending}
	notice.ID = 30
	feed := notifications.Aggregate(
		[]models.Booking{request},
		[]models.RescheduleRequest{reschedule},
		[]models.CancellationNotice{notice},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/booking/notifications", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(feed)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"try again"}`))
	})
	return httptest.NewServer(mux)
}

func TestNotificationPanelOptimisticRemoval(t *testing.T) {
	var refreshes atomic.Int32
	srv := feedServer(t, &refreshes)
	defer srv.Close()

	panel := NewNotificationPanel(New(srv.URL))
	ctx := context.Background()
	require.NoError(t, panel.Refresh(ctx))
	assert.Equal(t, 3, panel.Feed().Total)

	var changes int
	panel.OnChange = func(notifications.Feed) { changes++ }

	err := panel.Accept(ctx, 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	feed := panel.Feed()
	assert.Equal(t, 2, feed.Total, "failed requests are not rolled back")
	assert.Empty(t, feed.Requests)

	require.Error(t, panel.Approve(ctx, 20))
	require.Error(t, panel.Acknowledge(ctx, 30))
	assert.Equal(t, 0, panel.Feed().Total)
	assert.Equal(t, 3, changes)

	err = panel.Reject(ctx, 20)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, panel.Refresh(ctx))
	assert.Equal(t, 3, panel.Feed().Total)
}

func TestNotificationPanelPolling(t *testing.T) {
	var refreshes atomic.Int32
	srv := feedServer(t, &refreshes)
	defer srv.Close()

	panel := NewNotificationPanel(New(srv.URL))
	panel.StartPolling(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool { return refreshes.Load() >= 3 }, time.Second, 5*time.Millisecond)
	panel.Stop()

	stopped := refreshes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, refreshes.Load())
	assert.Equal(t, 3, panel.Feed().Total)
	assert.NoError(t, panel.LastError())
}
