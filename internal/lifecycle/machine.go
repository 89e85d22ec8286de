package lifecycle

import (
	"strings"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// Action names an operation on a booking.
type Action string

const (
	ActionAccept            Action = "accept"
	ActionDecline           Action = "decline"
	ActionCancel            Action = "cancel"
	ActionReschedule        Action = "reschedule"
	ActionApproveReschedule Action = "approve_reschedule"
	ActionRejectReschedule  Action = "reject_reschedule"
	ActionComplete          Action = "complete"
	ActionReview            Action = "review"
)

// ReschedulePolicy selects what a reschedule request does to the booking.
type ReschedulePolicy string

const (
	// RescheduleWithApproval parks the booking in reschedule_pending until
	// the counterpart responds.
	RescheduleWithApproval ReschedulePolicy = "approval"
	// RescheduleDirect moves the booking to the new slot immediately.
	RescheduleDirect ReschedulePolicy = "direct"
)

// Actor is the party performing an operation.
type Actor struct {
	UserID uint
	Role   models.Role
	System bool
}

// SystemActor performs automatic transitions such as the completion sweep.
var SystemActor = Actor{System: true}

func (a Actor) isTutorOf(b *models.Booking) bool {
	return !a.System && a.Role == models.RoleTutor && a.UserID == b.TutorID
}

func (a Actor) isStudentOf(b *models.Booking) bool {
	return !a.System && a.Role == models.RoleStudent && a.UserID == b.StudentID
}

func (a Actor) isParticipant(b *models.Booking) bool {
	return a.isTutorOf(b) || a.isStudentOf(b)
}

// RescheduleInput carries a proposed new slot.
type RescheduleInput struct {
	NewDate      string
	NewStartTime string
	NewEndTime   string
	Reason       string
}

// Machine enforces the booking status transitions:
//
//	pending            -> confirmed | rejected | cancelled
//	confirmed          -> completed | cancelled | reschedule_pending
//	reschedule_pending -> confirmed (new slot) | rejected
//
// completed, cancelled and rejected are terminal. Operations mutate the
// booking in memory only; persisting is the caller's job.
type Machine struct {
	Policy         CompletionPolicy
	RescheduleMode ReschedulePolicy
}

// NewMachine returns a Machine using clock and loc for time checks.
func NewMachine(clock Clock, loc *time.Location, policy ReschedulePolicy) *Machine {
	if policy == "" {
		policy = RescheduleWithApproval
	}
	return &Machine{
		Policy:         CompletionPolicy{Clock: clock, Location: loc},
		RescheduleMode: policy,
	}
}

func (m *Machine) now() time.Time {
	return m.Policy.now()
}

// RespondToRequest accepts or declines a pending booking request.
func (m *Machine) RespondToRequest(b *models.Booking, actor Actor, action Action, message string) error {
	if action != ActionAccept && action != ActionDecline {
		return apperror.Validation("action", "must be accept or decline")
	}
	if !actor.isTutorOf(b) {
		return apperror.Forbidden("only the booking's tutor can respond to this request")
	}
	if b.Status != models.BookingStatusPending {
		return apperror.Transition(string(b.Status), string(action))
	}

	now := m.now()
	if action == ActionAccept {
		b.Status = models.BookingStatusConfirmed
	} else {
		b.Status = models.BookingStatusRejected
	}
	b.ResponseMessage = strings.TrimSpace(message)
	b.RespondedAt = &now
	return nil
}

// Cancel cancels a pending or confirmed booking. Confirmed sessions need a
// reason; pending requests do not. The returned notice is addressed to the
// counterpart.
func (m *Machine) Cancel(b *models.Booking, actor Actor, reason string) (*models.CancellationNotice, error) {
	if !actor.isParticipant(b) {
		return nil, apperror.Forbidden("only participants can cancel this booking")
	}
	reason = strings.TrimSpace(reason)
	switch {
	case b.Status == models.BookingStatusPending:
	case b.Status.IsConfirmed():
		if reason == "" {
			return nil, apperror.Validation("reason", "a reason is required to cancel a confirmed session")
		}
	default:
		return nil, apperror.Transition(string(b.Status), string(ActionCancel))
	}

	by := actor.UserID
	b.Status = models.BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledBy = &by

	return &models.CancellationNotice{
		BookingID:   b.ID,
		CancelledBy: actor.UserID,
		RecipientID: b.Counterpart(actor.UserID),
		Reason:      reason,
		Status:      models.RequestStatusPending,
	}, nil
}

// Reschedule proposes a new slot for a confirmed booking. The end time
// defaults to one hour after the new start.
func (m *Machine) Reschedule(b *models.Booking, actor Actor, in RescheduleInput) (*models.RescheduleRequest, error) {
	if !actor.isParticipant(b) {
		return nil, apperror.Forbidden("only participants can reschedule this booking")
	}
	newEnd, err := m.validateReschedule(in)
	if err != nil {
		return nil, err
	}
	if !b.Status.IsConfirmed() {
		return nil, apperror.Transition(string(b.Status), string(ActionReschedule))
	}

	req := &models.RescheduleRequest{
		BookingID:         b.ID,
		RequestedBy:       actor.UserID,
		RecipientID:       b.Counterpart(actor.UserID),
		OriginalDate:      b.Date,
		OriginalStartTime: b.StartTime,
		OriginalEndTime:   b.EndTime,
		NewDate:           in.NewDate,
		NewStartTime:      in.NewStartTime,
		NewEndTime:        newEnd,
		Reason:            strings.TrimSpace(in.Reason),
		Status:            models.RequestStatusPending,
	}

	if m.RescheduleMode == RescheduleDirect {
		now := m.now()
		applySlot(b, req)
		b.Status = models.BookingStatusConfirmed
		req.Status = models.RequestStatusApproved
		req.RespondedAt = &now
		return req, nil
	}

	b.Status = models.BookingStatusReschedulePending
	return req, nil
}

func (m *Machine) validateReschedule(in RescheduleInput) (string, error) {
	if strings.TrimSpace(in.NewDate) == "" {
		return "", apperror.Validation("newDate", "new date is required")
	}
	if strings.TrimSpace(in.NewStartTime) == "" {
		return "", apperror.Validation("newStartTime", "new start time is required")
	}
	if _, err := ParseDate(in.NewDate, m.Policy.loc()); err != nil {
		return "", apperror.Validation("newDate", "must be formatted YYYY-MM-DD")
	}
	if _, err := ParseClock(in.NewStartTime); err != nil {
		return "", apperror.Validation("newStartTime", "must be formatted HH:MM")
	}

	newEnd := strings.TrimSpace(in.NewEndTime)
	if newEnd == "" {
		end, err := AddMinutes(in.NewStartTime, DefaultSessionMinutes)
		if err != nil {
			return "", apperror.Validation("newStartTime", "session must end on the same day")
		}
		return end, nil
	}
	minutes, err := MinutesBetween(in.NewStartTime, newEnd)
	if err != nil {
		return "", apperror.Validation("newEndTime", "must be formatted HH:MM")
	}
	if minutes <= 0 {
		return "", apperror.Validation("newEndTime", "must be after the new start time")
	}
	return newEnd, nil
}

// RespondToReschedule approves or rejects a pending reschedule request.
// Only the request's recipient may respond. Approval confirms the booking
// at the new slot; rejection rejects the booking.
func (m *Machine) RespondToReschedule(b *models.Booking, req *models.RescheduleRequest, actor Actor, approve bool) error {
	if req.BookingID != b.ID {
		return apperror.Validation("bookingId", "reschedule request does not belong to this booking")
	}
	if actor.System || actor.UserID != req.RecipientID || !actor.isParticipant(b) {
		return apperror.Forbidden("only the counterpart can respond to this reschedule request")
	}
	action := ActionApproveReschedule
	if !approve {
		action = ActionRejectReschedule
	}
	if b.Status != models.BookingStatusReschedulePending || req.Status != models.RequestStatusPending {
		return apperror.Transition(string(b.Status), string(action))
	}

	now := m.now()
	req.RespondedAt = &now
	if approve {
		applySlot(b, req)
		b.Status = models.BookingStatusConfirmed
		req.Status = models.RequestStatusApproved
		return nil
	}
	b.Status = models.BookingStatusRejected
	req.Status = models.RequestStatusRejected
	return nil
}

// MarkComplete completes a session whose end time has passed. Only the
// tutor or the system sweep may complete a session.
func (m *Machine) MarkComplete(b *models.Booking, actor Actor, notes string) error {
	if !actor.System && !actor.isTutorOf(b) {
		return apperror.Forbidden("only the booking's tutor can mark this session complete")
	}
	if !b.Status.IsConfirmed() {
		return apperror.Transition(string(b.Status), string(ActionComplete))
	}
	if !m.Policy.CanMarkComplete(b) {
		return &apperror.Error{Kind: apperror.KindTransition, Message: "session cannot be completed before its end time"}
	}

	now := m.now()
	b.Status = models.BookingStatusCompleted
	b.CompletionNotes = strings.TrimSpace(notes)
	b.CompletedAt = &now
	return nil
}

// AvailableActions lists the operations the actor may currently perform.
func (m *Machine) AvailableActions(b *models.Booking, actor Actor) []Action {
	actions := []Action{}
	if !actor.isParticipant(b) {
		return actions
	}
	switch {
	case b.Status == models.BookingStatusPending:
		if actor.isTutorOf(b) {
			actions = append(actions, ActionAccept, ActionDecline)
		}
		actions = append(actions, ActionCancel)
	case b.Status.IsConfirmed():
		actions = append(actions, ActionReschedule, ActionCancel)
		if actor.isTutorOf(b) && m.Policy.CanMarkComplete(b) {
			actions = append(actions, ActionComplete)
		}
	case b.Status == models.BookingStatusCompleted:
		if actor.isStudentOf(b) {
			actions = append(actions, ActionReview)
		}
	}
	return actions
}

// PendingRescheduleActions lists the responses available to the recipient of req.
func PendingRescheduleActions(req *models.RescheduleRequest, actor Actor) []Action {
	if req == nil || req.Status != models.RequestStatusPending || actor.UserID != req.RecipientID {
		return nil
	}
	return []Action{ActionApproveReschedule, ActionRejectReschedule}
}

func applySlot(b *models.Booking, req *models.RescheduleRequest) {
	b.Date = req.NewDate
	b.StartTime = req.NewStartTime
	b.EndTime = req.NewEndTime
	if minutes, err := MinutesBetween(req.NewStartTime, req.NewEndTime); err == nil && minutes > 0 {
		b.Duration = minutes
	}
}
