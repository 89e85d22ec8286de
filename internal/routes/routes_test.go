package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/calendar"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/services"
	"github.com/chachabrian/tutorlink-backend/pkg/utils"
)

type apiTest struct {
	t      *testing.T
	router *gin.Engine
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	store := database.NewMemoryStore()
	hub := services.NewHub(log)
	go hub.Run()

	notifier := services.NewDispatcher(services.HubPublisher{Hub: hub}, nil, store, log)
	machine := lifecycle.NewMachine(lifecycle.RealClock, time.UTC, lifecycle.RescheduleWithApproval)
	reviews := services.NewReviewService(store, lifecycle.RealClock, notifier, log)
	uploads := t.TempDir()

	router := NewRouter(Dependencies{
		Auth:              services.NewAuthService(store, utils.NewTokenIssuer("test-secret", time.Hour), services.NewMemoryRevoker(), log),
		Users:             services.NewUserService(store, services.NewLocalStorage(uploads, "http://localhost:5000"), log),
		Tutors:            services.NewTutorService(store, reviews, log),
		Bookings:          services.NewBookingService(store, machine, notifier, log),
		Tasks:             services.NewTaskService(store, log),
		Reviews:           reviews,
		Calendar:          services.NewCalendarService(store, calendar.NewProjector(time.UTC, lifecycle.RealClock, log)),
		Chat:              services.NewChatService(nil, log),
		Hub:               hub,
		UploadDir:         uploads,
		MaxRequestsPerMin: 10000,
		Logger:            log,
	})
	return &apiTest{t: t, router: router}
}

func (a *apiTest) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (a *apiTest) register(name, email, role string) (string, uint) {
	a.t.Helper()
	w, body := a.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "secret1", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	user := body["user"].(map[string]any)
	return body["token"].(string), uint(user["ID"].(float64))
}

func TestBookingFlowOverHTTP(t *testing.T) {
	api := newAPITest(t)
	studentToken, _ := api.register("Sam", "sam@example.com", "student")
	tutorToken, tutorID := api.register("Tia", "tia@example.com", "tutor")

	w, _ := api.do(http.MethodPut, "/api/tutors/profile", tutorToken, map[string]any{
		"bio": "Maths", "subjects": []string{"Maths"}, "hourlyRate": 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = api.do(http.MethodPut, "/api/tutors/profile", studentToken, map[string]any{"bio": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	date := time.Now().UTC().AddDate(0, 0, 7).Format(lifecycle.DateLayout)
	w, body := api.do(http.MethodPost, "/api/booking/bookings", studentToken, map[string]any{
		"tutorId": tutorID, "subject": "Maths", "date": date, "startTime": "10:00", "duration": 120, "meetingType": "virtual",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, 60.0, body["totalAmount"])
	assert.Equal(t, "12:00", body["endTime"])
	bookingID := uint(body["ID"].(float64))

	w, body = api.do(http.MethodGet, "/api/booking/notifications", tutorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["total"])

	w, body = api.do(http.MethodPut, fmt.Sprintf("/api/booking/requests/%d/respond", bookingID), tutorToken, map[string]any{
		"action": "accept", "responseMessage": "Great",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, false, body["canMarkComplete"])

	w, body = api.do(http.MethodPut, fmt.Sprintf("/api/booking/bookings/%d/cancel", bookingID), studentToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", body["kind"])
	assert.Equal(t, "reason", body["field"])

	w, body = api.do(http.MethodPut, fmt.Sprintf("/api/booking/bookings/%d/reschedule", bookingID), studentToken, map[string]any{
		"newDate": date, "newStartTime": "15:00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "reschedule_pending", body["status"])

	w, body = api.do(http.MethodPut, fmt.Sprintf("/api/booking/bookings/%d/reschedule-response", bookingID), tutorToken, map[string]any{
		"action": "approve",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "15:00", body["startTime"])

	w, body = api.do(http.MethodPut, fmt.Sprintf("/api/booking/bookings/%d/cancel", bookingID), tutorToken, map[string]any{
		"reason": "Ill",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", body["status"])

	w, body = api.do(http.MethodGet, "/api/booking/notifications", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cancellations := body["cancellations"].([]any)
	require.Len(t, cancellations, 1)
	noticeID := uint(cancellations[0].(map[string]any)["ID"].(float64))

	w, _ = api.do(http.MethodPut, fmt.Sprintf("/api/booking/notifications/%d/acknowledge", noticeID), studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = api.do(http.MethodPut, fmt.Sprintf("/api/booking/requests/%d/respond", bookingID), tutorToken, map[string]any{
		"action": "accept",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "transition", body["kind"])
}

func TestAuthAndValidationErrors(t *testing.T) {
	api := newAPITest(t)

	w, body := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "A", "email": "a@example.com", "password": "secret1", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "role", body["field"])

	token, _ := api.register("A", "a@example.com", "student")
	w, _ = api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "B", "email": "a@example.com", "password": "secret1", "role": "student",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "a@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = api.do(http.MethodPost, "/api/booking/bookings", token, map[string]any{
		"tutorId": 1, "subject": "Maths", "date": "31/01/2025", "startTime": "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date", body["field"])

	w, _ = api.do(http.MethodGet, "/api/booking/tutor/sessions", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = api.do(http.MethodPost, "/api/chat", token, map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", body["kind"])

	w, _ = api.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTasksAndCalendarExport(t *testing.T) {
	api := newAPITest(t)
	token, _ := api.register("Sam", "sam@example.com", "student")

	w, body := api.do(http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "Revise integrals", "status": "in-progress", "progress": 90, "dueDate": "2025-03-14",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 50.0, body["progress"])
	assert.Equal(t, "medium", body["priority"])
	taskID := uint(body["ID"].(float64))

	w, body = api.do(http.MethodPatch, fmt.Sprintf("/api/tasks/%d/status", taskID), token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100.0, body["progress"])

	w, body = api.do(http.MethodGet, "/api/calendar?year=2025&month=3", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	days := body["days"].(map[string]any)
	assert.Len(t, days["2025-03-14"], 1)

	w, _ = api.do(http.MethodGet, "/api/calendar/export?date=2025-03-14", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "tutorlink-2025-03-14.ics")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
	assert.NotContains(t, w.Body.String(), "BEGIN:VEVENT", "completed tasks are not exported")

	w, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
