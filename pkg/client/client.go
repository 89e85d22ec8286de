// Package client is a Go client for the TutorLink REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/notifications"
)

// DefaultBaseURL is used when TUTORLINK_API_URL is not set.
const DefaultBaseURL = "http://localhost:5000/api"

// BaseURLFromEnv returns TUTORLINK_API_URL or DefaultBaseURL.
func BaseURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("TUTORLINK_API_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	return DefaultBaseURL
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Kind    string
	Field   string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("tutorlink: %d %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("tutorlink: %d: %s", e.Status, e.Message)
}

// Booking is a booking with the fields derived for the viewer.
type Booking struct {
	models.Booking
	CanMarkComplete      bool                      `json:"canMarkComplete"`
	MinutesUntilComplete *int                      `json:"minutesUntilComplete"`
	Actions              []lifecycle.Action        `json:"actions"`
	PendingReschedule    *models.RescheduleRequest `json:"pendingReschedule,omitempty"`
}

// Can reports whether the viewer may perform action.
func (b Booking) Can(action lifecycle.Action) bool {
	for _, a := range b.Actions {
		if a == action {
			return true
		}
	}
	return false
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for baseURL; an empty baseURL uses BaseURLFromEnv.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = BaseURLFromEnv()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tutorlink: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
			Field string `json:"field"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Message, apiErr.Kind, apiErr.Field = payload.Error, payload.Kind, payload.Field
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone,omitempty"`
	Role     models.Role `json:"role"`
}

// Register creates an account and keeps its token on the client.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login signs in and keeps the token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func statusQuery(statuses []models.BookingStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return "?status=" + url.QueryEscape(strings.Join(parts, ","))
}

func (c *Client) StudentBookings(ctx context.Context, statuses ...models.BookingStatus) ([]Booking, error) {
	var out []Booking
	err := c.do(ctx, http.MethodGet, "/booking/student/bookings"+statusQuery(statuses), nil, &out)
	return out, err
}

func (c *Client) TutorBookings(ctx context.Context, statuses ...models.BookingStatus) ([]Booking, error) {
	var out []Booking
	err := c.do(ctx, http.MethodGet, "/booking/tutor/bookings"+statusQuery(statuses), nil, &out)
	return out, err
}

func (c *Client) TutorSessions(ctx context.Context) ([]Booking, error) {
	var out []Booking
	err := c.do(ctx, http.MethodGet, "/booking/tutor/sessions", nil, &out)
	return out, err
}

func (c *Client) PendingRequests(ctx context.Context) ([]Booking, error) {
	var out []Booking
	err := c.do(ctx, http.MethodGet, "/booking/requests/pending", nil, &out)
	return out, err
}

type CreateBookingInput struct {
	TutorID     uint               `json:"tutorId"`
	Subject     string             `json:"subject"`
	Date        string             `json:"date"`
	StartTime   string             `json:"startTime"`
	EndTime     string             `json:"endTime,omitempty"`
	Duration    int                `json:"duration,omitempty"`
	MeetingType models.MeetingType `json:"meetingType"`
	Location    string             `json:"location,omitempty"`
	MeetingLink string             `json:"meetingLink,omitempty"`
	Notes       string             `json:"notes,omitempty"`
}

func (c *Client) CreateBooking(ctx context.Context, in CreateBookingInput) (*Booking, error) {
	switch {
	case strings.TrimSpace(in.Subject) == "":
		return nil, apperror.Validation("subject", "subject is required")
	case strings.TrimSpace(in.Date) == "":
		return nil, apperror.Validation("date", "date is required")
	case strings.TrimSpace(in.StartTime) == "":
		return nil, apperror.Validation("startTime", "start time is required")
	}
	var out Booking
	if err := c.do(ctx, http.MethodPost, "/booking/bookings", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBooking(ctx context.Context, id uint) (*Booking, error) {
	var out Booking
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/booking/bookings/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RespondToRequest accepts or declines a pending request.
func (c *Client) RespondToRequest(ctx context.Context, bookingID uint, action lifecycle.Action, message string) (*Booking, error) {
	if action != lifecycle.ActionAccept && action != lifecycle.ActionDecline {
		return nil, apperror.Validation("action", "must be accept or decline")
	}
	var out Booking
	body := map[string]string{"action": string(action), "responseMessage": message}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/booking/requests/%d/respond", bookingID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelBooking cancels b. Confirmed sessions need a reason, which is
// checked before any request is sent.
func (c *Client) CancelBooking(ctx context.Context, b Booking, reason string) (*Booking, error) {
	if b.Status.IsConfirmed() && strings.TrimSpace(reason) == "" {
		return nil, apperror.Validation("reason", "a reason is required to cancel a confirmed session")
	}
	var out Booking
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/booking/bookings/%d/cancel", b.ID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reschedule proposes a new slot; date and start time are checked locally.
func (c *Client) Reschedule(ctx context.Context, bookingID uint, in lifecycle.RescheduleInput) (*Booking, error) {
	if strings.TrimSpace(in.NewDate) == "" {
		return nil, apperror.Validation("newDate", "new date is required")
	}
	if strings.TrimSpace(in.NewStartTime) == "" {
		return nil, apperror.Validation("newStartTime", "new start time is required")
	}
	var out Booking
	body := map[string]string{
		"newDate":      in.NewDate,
		"newStartTime": in.NewStartTime,
		"newEndTime":   in.NewEndTime,
		"reason":       in.Reason,
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/booking/bookings/%d/reschedule", bookingID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RespondToReschedule(ctx context.Context, bookingID, requestID uint, approve bool) (*Booking, error) {
	action := "reject"
	if approve {
		action = "approve"
	}
	var out Booking
	body := map[string]any{"requestId": requestID, "action": action}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/booking/bookings/%d/reschedule-response", bookingID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Complete(ctx context.Context, bookingID uint, notes string) (*Booking, error) {
	var out Booking
	body := map[string]string{"completionNotes": notes}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/booking/bookings/%d/complete", bookingID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AcknowledgeCancellation(ctx context.Context, noticeID uint) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/booking/notifications/%d/acknowledge", noticeID), nil, nil)
}

func (c *Client) Notifications(ctx context.Context) (notifications.Feed, error) {
	var out notifications.Feed
	err := c.do(ctx, http.MethodGet, "/booking/notifications", nil, &out)
	return out, err
}

type SweepResult struct {
	Completed []uint `json:"completed"`
	Failed    []uint `json:"failed"`
}

type Dashboard struct {
	Bookings      []Booking          `json:"bookings"`
	Upcoming      []Booking          `json:"upcoming"`
	Notifications notifications.Feed `json:"notifications"`
	Sweep         SweepResult        `json:"sweep"`
}

func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	if err := c.do(ctx, http.MethodGet, "/booking/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ReviewInput struct {
	Rating         int    `json:"rating"`
	ReviewText     string `json:"reviewText,omitempty"`
	WouldRecommend bool   `json:"wouldRecommend"`
}

func (c *Client) CreateReview(ctx context.Context, bookingID uint, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.Validation("rating", "rating must be between 1 and 5")
	}
	var out models.Review
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/reviews/bookings/%d/review", bookingID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportCalendar downloads the .ics for a month, or for one day when date is set.
func (c *Client) ExportCalendar(ctx context.Context, year, month int, date string) ([]byte, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	} else {
		q.Set("year", fmt.Sprint(year))
		q.Set("month", fmt.Sprint(month))
	}
	var out []byte
	err := c.do(ctx, http.MethodGet, "/calendar/export?"+q.Encode(), nil, &out)
	return out, err
}
