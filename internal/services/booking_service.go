package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/lifecycle"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/internal/notifications"
)

// BookingView is a booking as seen by one participant, with the derived
// fields the client needs to render it.
type BookingView struct {
	models.Booking
	CanMarkComplete      bool                      `json:"canMarkComplete"`
	MinutesUntilComplete *int                      `json:"minutesUntilComplete"`
	Actions              []lifecycle.Action        `json:"actions"`
	PendingReschedule    *models.RescheduleRequest `json:"pendingReschedule,omitempty"`
}

type CreateBookingInput struct {
	TutorID     uint
	Subject     string
	Date        string
	StartTime   string
	EndTime     string
	Duration    int
	MeetingType models.MeetingType
	Location    string
	MeetingLink string
	Notes       string
}

// SweepResult lists the bookings an auto-completion sweep touched.
type SweepResult struct {
	Completed []uint `json:"completed"`
	Failed    []uint `json:"failed"`
}

type Dashboard struct {
	Bookings      []BookingView      `json:"bookings"`
	Upcoming      []BookingView      `json:"upcoming"`
	Notifications notifications.Feed `json:"notifications"`
	Sweep         SweepResult        `json:"sweep"`
}

const upcomingLimit = 5

type BookingService struct {
	store    database.Store
	machine  *lifecycle.Machine
	notifier Notifier
	log      *zap.Logger
}

func NewBookingService(store database.Store, machine *lifecycle.Machine, notifier Notifier, log *zap.Logger) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{store: store, machine: machine, notifier: notifier, log: log}
}

func (s *BookingService) now() time.Time {
	return s.machine.Policy.Clock.Now()
}

func (s *BookingService) loc() *time.Location {
	if s.machine.Policy.Location == nil {
		return time.Local
	}
	return s.machine.Policy.Location
}

func actorOf(session *models.Session) lifecycle.Actor {
	return lifecycle.Actor{UserID: session.UserID, Role: session.Role}
}

func (s *BookingService) view(ctx context.Context, b models.Booking, actor lifecycle.Actor) BookingView {
	v := BookingView{
		Booking:              b,
		CanMarkComplete:      s.machine.Policy.CanMarkComplete(&b),
		MinutesUntilComplete: s.machine.Policy.TimeUntilComplete(&b),
		Actions:              s.machine.AvailableActions(&b, actor),
	}
	if b.Status == models.BookingStatusReschedulePending {
		req, err := s.store.PendingRescheduleForBooking(ctx, b.ID)
		if err == nil {
			v.PendingReschedule = req
			v.Actions = append(v.Actions, lifecycle.PendingRescheduleActions(req, actor)...)
		}
	}
	return v
}

func (s *BookingService) views(ctx context.Context, bookings []models.Booking, actor lifecycle.Actor) []BookingView {
	out := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, s.view(ctx, b, actor))
	}
	return out
}

// Create records a pending booking request from a student.
func (s *BookingService) Create(ctx context.Context, session *models.Session, in CreateBookingInput) (*BookingView, error) {
	if !session.IsStudent() {
		return nil, apperror.Forbidden("only students can request bookings")
	}
	b, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetTutorProfile(ctx, in.TutorID)
	if err != nil {
		return nil, err
	}
	if profile.User != nil && profile.User.Role != models.RoleTutor {
		return nil, apperror.Validation("tutorId", "user is not a tutor")
	}

	b.StudentID = session.UserID
	b.TutorID = in.TutorID
	b.Status = models.BookingStatusPending
	b.TotalAmount = math.Round(profile.HourlyRate*float64(b.Duration)/60*100) / 100

	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	stored, err := s.store.GetBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking requested",
		zap.Uint("booking_id", b.ID),
		zap.Uint("student_id", b.StudentID),
		zap.Uint("tutor_id", b.TutorID),
	)
	s.notifier.Notify(ctx, Event{
		Type:   EventBookingRequested,
		UserID: b.TutorID,
		Title:  "New booking request",
		Body:   fmt.Sprintf("%s requested a %s session on %s at %s", nameOf(stored.Student), b.Subject, b.Date, b.StartTime),
		Data:   bookingData(stored),
	})

	v := s.view(ctx, *stored, actorOf(session))
	return &v, nil
}

func (s *BookingService) validateCreate(in CreateBookingInput) (*models.Booking, error) {
	if in.TutorID == 0 {
		return nil, apperror.Validation("tutorId", "tutor is required")
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, apperror.Validation("subject", "subject is required")
	}
	if _, err := lifecycle.ParseDate(in.Date, s.loc()); err != nil {
		return nil, apperror.Validation("date", "must be formatted YYYY-MM-DD")
	}
	if _, err := lifecycle.ParseClock(in.StartTime); err != nil {
		return nil, apperror.Validation("startTime", "must be formatted HH:MM")
	}

	meeting := in.MeetingType
	if meeting == "" {
		meeting = models.MeetingTypeVirtual
	}
	if meeting != models.MeetingTypeVirtual && meeting != models.MeetingTypeInPerson {
		return nil, apperror.Validation("meetingType", "must be virtual or in_person")
	}

	duration := in.Duration
	endTime := strings.TrimSpace(in.EndTime)
	if endTime != "" {
		minutes, err := lifecycle.MinutesBetween(in.StartTime, endTime)
		if err != nil {
			return nil, apperror.Validation("endTime", "must be formatted HH:MM")
		}
		if minutes <= 0 {
			return nil, apperror.Validation("endTime", "must be after the start time")
		}
		duration = minutes
	} else {
		if duration == 0 {
			duration = lifecycle.DefaultSessionMinutes
		}
		if duration < 0 {
			return nil, apperror.Validation("duration", "must be positive")
		}
		end, err := lifecycle.AddMinutes(in.StartTime, duration)
		if err != nil {
			return nil, apperror.Validation("duration", "session must end on the same day")
		}
		endTime = end
	}

	start, err := lifecycle.Combine(in.Date, in.StartTime, s.loc())
	if err != nil {
		return nil, apperror.Validation("date", err.Error())
	}
	if start.Before(s.now()) {
		return nil, apperror.Validation("date", "cannot book a session in the past")
	}

	return &models.Booking{
		Subject:     subject,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     endTime,
		Duration:    duration,
		MeetingType: meeting,
		Location:    strings.TrimSpace(in.Location),
		MeetingLink: strings.TrimSpace(in.MeetingLink),
		Notes:       strings.TrimSpace(in.Notes),
	}, nil
}

// load fetches a booking and checks the session is a participant.
func (s *BookingService) load(ctx context.Context, session *models.Session, id uint) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(session.UserID) {
		return nil, apperror.Forbidden("you are not a participant in this booking")
	}
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, session *models.Session, id uint) (*BookingView, error) {
	b, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, *b, actorOf(session))
	return &v, nil
}

func (s *BookingService) list(ctx context.Context, session *models.Session, f models.BookingFilter) ([]BookingView, error) {
	bookings, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bookings, actorOf(session)), nil
}

func (s *BookingService) StudentBookings(ctx context.Context, session *models.Session, statuses []models.BookingStatus) ([]BookingView, error) {
	if !session.IsStudent() {
		return nil, apperror.Forbidden("only students have student bookings")
	}
	return s.list(ctx, session, models.BookingFilter{StudentID: session.UserID, Statuses: statuses})
}

func (s *BookingService) TutorBookings(ctx context.Context, session *models.Session, statuses []models.BookingStatus) ([]BookingView, error) {
	if !session.IsTutor() {
		return nil, apperror.Forbidden("only tutors have tutor bookings")
	}
	return s.list(ctx, session, models.BookingFilter{TutorID: session.UserID, Statuses: statuses})
}

// TutorSessions lists the tutor's confirmed sessions with completion eligibility.
func (s *BookingService) TutorSessions(ctx context.Context, session *models.Session) ([]BookingView, error) {
	return s.TutorBookings(ctx, session, []models.BookingStatus{
		models.BookingStatusConfirmed,
		models.BookingStatusScheduled,
	})
}

// PendingRequests lists pending requests addressed to a tutor, or a
// student's own outstanding requests.
func (s *BookingService) PendingRequests(ctx context.Context, session *models.Session) ([]BookingView, error) {
	f := models.BookingFilter{Statuses: []models.BookingStatus{models.BookingStatusPending}}
	if session.IsTutor() {
		f.TutorID = session.UserID
	} else {
		f.StudentID = session.UserID
	}
	return s.list(ctx, session, f)
}

func (s *BookingService) commit(ctx context.Context, t models.Transition) error {
	if err := s.store.ApplyTransition(ctx, t); err != nil {
		return err
	}
	s.log.Info("Booking transition",
		zap.Uint("booking_id", t.Booking.ID),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.Booking.Status)),
	)
	return nil
}

// Respond accepts or declines a pending request.
func (s *BookingService) Respond(ctx context.Context, session *models.Session, id uint, action lifecycle.Action, message string) (*BookingView, error) {
	b, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	if err := s.machine.RespondToRequest(b, actorOf(session), action, message); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, models.Transition{Booking: b, From: from}); err != nil {
		return nil, err
	}

	ev := Event{
		Type:   EventBookingAccepted,
		UserID: b.StudentID,
		Title:  "Booking accepted",
		Body:   fmt.Sprintf("%s accepted your %s session on %s", nameOf(b.Tutor), b.Subject, b.Date),
		Data:   bookingData(b),
	}
	if action == lifecycle.ActionDecline {
		ev.Type = EventBookingDeclined
		ev.Title = "Booking declined"
		ev.Body = fmt.Sprintf("%s declined your %s session on %s", nameOf(b.Tutor), b.Subject, b.Date)
	}
	s.notifier.Notify(ctx, ev)

	v := s.view(ctx, *b, actorOf(session))
	return &v, nil
}

// Cancel cancels a pending or confirmed booking and leaves a notice for the
// counterpart.
func (s *BookingService) Cancel(ctx context.Context, session *models.Session, id uint, reason string) (*BookingView, error) {
	b, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	notice, err := s.machine.Cancel(b, actorOf(session), reason)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, models.Transition{Booking: b, From: from, Cancellation: notice}); err != nil {
		return nil, err
	}

	canceller := b.Student
	if session.UserID == b.TutorID {
		canceller = b.Tutor
	}
	data := bookingData(b)
	data["noticeId"] = notice.ID
	data["reason"] = notice.Reason
	s.notifier.Notify(ctx, Event{
		Type:   EventBookingCancelled,
		UserID: notice.RecipientID,
		Title:  "Session cancelled",
		Body:   fmt.Sprintf("%s cancelled the %s session on %s", nameOf(canceller), b.Subject, b.Date),
		Data:   data,
	})

	v := s.view(ctx, *b, actorOf(session))
	return &v, nil
}

// Reschedule proposes a new slot for a confirmed booking.
func (s *BookingService) Reschedule(ctx context.Context, session *models.Session, id uint, in lifecycle.RescheduleInput) (*BookingView, error) {
	b, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	req, err := s.machine.Reschedule(b, actorOf(session), in)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, models.Transition{Booking: b, From: from, Reschedule: req}); err != nil {
		return nil, err
	}

	data := bookingData(b)
	data["rescheduleId"] = req.ID
	data["newDate"] = req.NewDate
	data["newStartTime"] = req.NewStartTime
	data["newEndTime"] = req.NewEndTime
	ev := Event{
		Type:   EventRescheduleRequested,
		UserID: req.RecipientID,
		Title:  "Reschedule requested",
		Body:   fmt.Sprintf("Your %s session is proposed to move to %s at %s", b.Subject, req.NewDate, req.NewStartTime),
		Data:   data,
	}
	if req.Status == models.RequestStatusApproved {
		ev.Type = EventRescheduleApproved
		ev.Title = "Session rescheduled"
		ev.Body = fmt.Sprintf("Your %s session moved to %s at %s", b.Subject, req.NewDate, req.NewStartTime)
	}
	s.notifier.Notify(ctx, ev)

	v := s.view(ctx, *b, actorOf(session))
	return &v, nil
}

// RespondToReschedule approves or rejects the booking's pending reschedule
// request. requestID may be zero to pick the latest pending request.
func (s *BookingService) RespondToReschedule(ctx context.Context, session *models.Session, bookingID, requestID uint, approve bool) (*BookingView, error) {
	b, err := s.load(ctx, session, bookingID)
	if err != nil {
		return nil, err
	}

	var req *models.RescheduleRequest
	if requestID != 0 {
		req, err = s.store.GetRescheduleRequest(ctx, requestID)
	} else {
		req, err = s.store.PendingRescheduleForBooking(ctx, bookingID)
	}
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) && b.Status != models.BookingStatusReschedulePending {
			action := lifecycle.ActionApproveReschedule
			if !approve {
				action = lifecycle.ActionRejectReschedule
			}
			return nil, apperror.Transition(string(b.Status), string(action))
		}
		return nil, err
	}

	from := b.Status
	if err := s.machine.RespondToReschedule(b, req, actorOf(session), approve); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, models.Transition{Booking: b, From: from, Reschedule: req}); err != nil {
		return nil, err
	}

	data := bookingData(b)
	data["rescheduleId"] = req.ID
	ev := Event{
		Type:   EventRescheduleApproved,
		UserID: req.RequestedBy,
		Title:  "Reschedule approved",
		Body:   fmt.Sprintf("Your %s session is now on %s at %s", b.Subject, b.Date, b.StartTime),
		Data:   data,
	}
	if !approve {
		ev.Type = EventRescheduleRejected
		ev.Title = "Reschedule rejected"
		ev.Body = fmt.Sprintf("Your request to move the %s session was rejected", b.Subject)
	}
	s.notifier.Notify(ctx, ev)

	v := s.view(ctx, *b, actorOf(session))
	return &v, nil
}

// Acknowledge marks a cancellation notice as seen by its recipient.
// Acknowledging twice is a no-op.
func (s *BookingService) Acknowledge(ctx context.Context, session *models.Session, noticeID uint) (*models.CancellationNotice, error) {
	n, err := s.store.GetCancellationNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != session.UserID {
		return nil, apperror.Forbidden("only the recipient can acknowledge this notice")
	}
	if n.Status == models.RequestStatusAcknowledged {
		return n, nil
	}
	now := s.now()
	n.Status = models.RequestStatusAcknowledged
	n.AcknowledgedAt = &now
	if err := s.store.UpdateCancellationNotice(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Complete marks a finished session complete on behalf of its tutor.
func (s *BookingService) Complete(ctx context.Context, session *models.Session, id uint, notes string) (*BookingView, error) {
	b, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := s.complete(ctx, b, actorOf(session), notes); err != nil {
		return nil, err
	}
	v := s.view(ctx, *b, actorOf(session))
	return &v, nil
}

func (s *BookingService) complete(ctx context.Context, b *models.Booking, actor lifecycle.Actor, notes string) error {
	from := b.Status
	if err := s.machine.MarkComplete(b, actor, notes); err != nil {
		return err
	}
	if err := s.commit(ctx, models.Transition{Booking: b, From: from}); err != nil {
		return err
	}
	s.notifier.Notify(ctx, Event{
		Type:   EventSessionCompleted,
		UserID: b.StudentID,
		Title:  "Session completed",
		Body:   fmt.Sprintf("Your %s session on %s is complete. Leave a review!", b.Subject, b.Date),
		Data:   bookingData(b),
	})
	return nil
}

// Sweep completes every confirmed session of participantID whose end time
// has passed. participantID 0 sweeps all users. A failure on one booking is
// logged and the sweep continues.
func (s *BookingService) Sweep(ctx context.Context, participantID uint) (SweepResult, error) {
	result := SweepResult{Completed: []uint{}, Failed: []uint{}}
	due, err := s.store.ListBookings(ctx, models.BookingFilter{
		ParticipantID: participantID,
		Statuses:      []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusScheduled},
		DateTo:        s.now().In(s.loc()).Format(lifecycle.DateLayout),
	})
	if err != nil {
		return result, err
	}

	for i := range due {
		b := &due[i]
		if !s.machine.Policy.CanMarkComplete(b) {
			continue
		}
		if err := s.complete(ctx, b, lifecycle.SystemActor, lifecycle.AutoCompleteNote); err != nil {
			s.log.Warn("Auto-completion failed", zap.Uint("booking_id", b.ID), zap.Error(err))
			result.Failed = append(result.Failed, b.ID)
			continue
		}
		result.Completed = append(result.Completed, b.ID)
	}
	if len(result.Completed) > 0 || len(result.Failed) > 0 {
		s.log.Info("Completion sweep finished",
			zap.Uint("participant_id", participantID),
			zap.Int("completed", len(result.Completed)),
			zap.Int("failed", len(result.Failed)),
		)
	}
	return result, nil
}

// Notifications aggregates the items waiting on the session's user.
func (s *BookingService) Notifications(ctx context.Context, session *models.Session) (notifications.Feed, error) {
	var requests []models.Booking
	if session.IsTutor() {
		var err error
		requests, err = s.store.ListBookings(ctx, models.BookingFilter{
			TutorID:  session.UserID,
			Statuses: []models.BookingStatus{models.BookingStatusPending},
		})
		if err != nil {
			return notifications.Feed{}, err
		}
	}
	reschedules, err := s.store.ListRescheduleRequests(ctx, session.UserID, models.RequestStatusPending)
	if err != nil {
		return notifications.Feed{}, err
	}
	cancellations, err := s.store.ListCancellationNotices(ctx, session.UserID, models.RequestStatusPending)
	if err != nil {
		return notifications.Feed{}, err
	}
	return notifications.Aggregate(requests, reschedules, cancellations), nil
}

// Dashboard runs the completion sweep for the caller, then returns their
// bookings, the next upcoming sessions and the notification feed.
func (s *BookingService) Dashboard(ctx context.Context, session *models.Session) (*Dashboard, error) {
	sweep, err := s.Sweep(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.list(ctx, session, models.BookingFilter{ParticipantID: session.UserID})
	if err != nil {
		return nil, err
	}
	feed, err := s.Notifications(ctx, session)
	if err != nil {
		return nil, err
	}

	now := s.now()
	upcoming := []BookingView{}
	for _, v := range bookings {
		if !v.Status.IsConfirmed() {
			continue
		}
		start, err := s.machine.Policy.StartOf(&v.Booking)
		if err != nil || start.Before(now) {
			continue
		}
		upcoming = append(upcoming, v)
		if len(upcoming) == upcomingLimit {
			break
		}
	}

	return &Dashboard{
		Bookings:      bookings,
		Upcoming:      upcoming,
		Notifications: feed,
		Sweep:         sweep,
	}, nil
}

// StartingBetween returns confirmed sessions whose start lies in [from, to).
func (s *BookingService) StartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	bookings, err := s.store.ListBookings(ctx, models.BookingFilter{
		Statuses: []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusScheduled},
		DateFrom: from.In(s.loc()).Format(lifecycle.DateLayout),
		DateTo:   to.In(s.loc()).Format(lifecycle.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	out := bookings[:0]
	for _, b := range bookings {
		start, err := s.machine.Policy.StartOf(&b)
		if err != nil || start.Before(from) || !start.Before(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// SendReminder notifies both participants of an upcoming session. Bookings
// that are no longer confirmed are skipped.
func (s *BookingService) SendReminder(ctx context.Context, bookingID uint) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !b.Status.IsConfirmed() {
		s.log.Debug("Skipping reminder for unconfirmed booking", zap.Uint("booking_id", b.ID))
		return nil
	}
	for _, userID := range []uint{b.StudentID, b.TutorID} {
		s.notifier.Notify(ctx, Event{
			Type:   EventSessionReminder,
			UserID: userID,
			Title:  "Upcoming session",
			Body:   fmt.Sprintf("Your %s session starts at %s", b.Subject, b.StartTime),
			Data:   bookingData(b),
		})
	}
	return nil
}

func nameOf(u *models.User) string {
	if u == nil || u.Name == "" {
		return "Someone"
	}
	return u.Name
}

func bookingData(b *models.Booking) map[string]any {
	return map[string]any{
		"bookingId": b.ID,
		"status":    string(b.Status),
		"subject":   b.Subject,
		"date":      b.Date,
		"startTime": b.StartTime,
		"endTime":   b.EndTime,
	}
}
