package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending           BookingStatus = "pending"
	BookingStatusConfirmed         BookingStatus = "confirmed"
	BookingStatusScheduled         BookingStatus = "scheduled"
	BookingStatusReschedulePending BookingStatus = "reschedule_pending"
	BookingStatusCompleted         BookingStatus = "completed"
	BookingStatusCancelled         BookingStatus = "cancelled"
	BookingStatusRejected          BookingStatus = "rejected"
)

// IsTerminal reports whether no further lifecycle transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusRejected
}

// IsConfirmed treats the legacy "scheduled" status as confirmed.
func (s BookingStatus) IsConfirmed() bool {
	return s == BookingStatusConfirmed || s == BookingStatusScheduled
}

type MeetingType string

const (
	MeetingTypeVirtual  MeetingType = "virtual"
	MeetingTypeInPerson MeetingType = "in_person"
)

// Booking is a tutoring session requested by a student with a tutor.
// Date is YYYY-MM-DD, times are HH:MM wall-clock values.
type Booking struct {
	gorm.Model
	StudentID          uint          `json:"studentId" gorm:"index;not null"`
	Student            *User         `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	TutorID            uint          `json:"tutorId" gorm:"index;not null"`
	Tutor              *User         `json:"tutor,omitempty" gorm:"foreignKey:TutorID"`
	Subject            string        `json:"subject" gorm:"not null"`
	Date               string        `json:"date" gorm:"not null"`
	StartTime          string        `json:"startTime" gorm:"not null"`
	EndTime            string        `json:"endTime" gorm:"not null"`
	Duration           int           `json:"duration" gorm:"not null;default:60"`
	MeetingType        MeetingType   `json:"meetingType" gorm:"not null;default:'virtual'"`
	Location           string        `json:"location,omitempty"`
	MeetingLink        string        `json:"meetingLink,omitempty"`
	TotalAmount        float64       `json:"totalAmount" gorm:"not null;default:0"`
	Notes              string        `json:"notes,omitempty"`
	Status             BookingStatus `json:"status" gorm:"index;not null;default:'pending'"`
	ResponseMessage    string        `json:"responseMessage,omitempty"`
	RespondedAt        *time.Time    `json:"respondedAt,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	CancelledBy        *uint         `json:"cancelledBy,omitempty"`
	CompletionNotes    string        `json:"completionNotes,omitempty"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}

// Counterpart returns the other participant's id, or 0 if userID is not a participant.
func (b *Booking) Counterpart(userID uint) uint {
	switch userID {
	case b.StudentID:
		return b.TutorID
	case b.TutorID:
		return b.StudentID
	}
	return 0
}

// IsParticipant reports whether userID is the student or tutor of the booking.
func (b *Booking) IsParticipant(userID uint) bool {
	return userID != 0 && (userID == b.StudentID || userID == b.TutorID)
}

// BookingFilter narrows a booking listing. Zero values are ignored.
type BookingFilter struct {
	StudentID uint
	TutorID   uint
	// ParticipantID matches either side of the booking.
	ParticipantID uint
	Statuses      []BookingStatus
	DateFrom      string
	DateTo        string
}

type RequestStatus string

const (
	RequestStatusPending      RequestStatus = "pending"
	RequestStatusApproved     RequestStatus = "approved"
	RequestStatusRejected     RequestStatus = "rejected"
	RequestStatusAcknowledged RequestStatus = "acknowledged"
)

// RescheduleRequest proposes a new slot for a booking, pending counterpart approval.
type RescheduleRequest struct {
	gorm.Model
	BookingID         uint          `json:"bookingId" gorm:"index;not null"`
	Booking           *Booking      `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	RequestedBy       uint          `json:"requestedBy" gorm:"not null"`
	RecipientID       uint          `json:"recipientId" gorm:"index;not null"`
	OriginalDate      string        `json:"originalDate" gorm:"not null"`
	OriginalStartTime string        `json:"originalStartTime" gorm:"not null"`
	OriginalEndTime   string        `json:"originalEndTime" gorm:"not null"`
	NewDate           string        `json:"newDate" gorm:"not null"`
	NewStartTime      string        `json:"newStartTime" gorm:"not null"`
	NewEndTime        string        `json:"newEndTime" gorm:"not null"`
	Reason            string        `json:"reason"`
	Status            RequestStatus `json:"status" gorm:"index;not null;default:'pending'"`
	RespondedAt       *time.Time    `json:"respondedAt,omitempty"`
}

// TableName specifies the table name
func (RescheduleRequest) TableName() string {
	return "reschedule_requests"
}

// CancellationNotice tells the counterpart that a booking was cancelled.
type CancellationNotice struct {
	gorm.Model
	BookingID      uint          `json:"bookingId" gorm:"index;not null"`
	Booking        *Booking      `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	CancelledBy    uint          `json:"cancelledBy" gorm:"not null"`
	RecipientID    uint          `json:"recipientId" gorm:"index;not null"`
	Reason         string        `json:"reason"`
	Status         RequestStatus `json:"status" gorm:"index;not null;default:'pending'"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
}

// TableName specifies the table name
func (CancellationNotice) TableName() string {
	return "cancellation_notices"
}

// Transition is a status change persisted atomically with its side records.
// The store applies it only if the stored status still equals From.
type Transition struct {
	Booking      *Booking
	From         BookingStatus
	Reschedule   *RescheduleRequest
	Cancellation *CancellationNotice
}
