package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationPreference represents user notification preferences
type NotificationPreference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"userId"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// General push notification toggle
	PushEnabled bool `gorm:"column:push_enabled;default:true" json:"pushEnabled"`

	BookingAlerts    bool `gorm:"column:booking_alerts;default:true" json:"bookingAlerts"`
	RescheduleAlerts bool `gorm:"column:reschedule_alerts;default:true" json:"rescheduleAlerts"`
	ReminderAlerts   bool `gorm:"column:reminder_alerts;default:true" json:"reminderAlerts"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:           userID,
		PushEnabled:      true,
		BookingAlerts:    true,
		RescheduleAlerts: true,
		ReminderAlerts:   true,
	}
}

// Allows reports whether a push of the given event category should be sent.
func (p *NotificationPreference) Allows(category string) bool {
	if p == nil {
		return true
	}
	if !p.PushEnabled {
		return false
	}
	switch category {
	case "booking":
		return p.BookingAlerts
	case "reschedule":
		return p.RescheduleAlerts
	case "reminder":
		return p.ReminderAlerts
	}
	return true
}
