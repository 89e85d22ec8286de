package models

import "gorm.io/gorm"

// TutorProfile holds the public profile of a tutor.
type TutorProfile struct {
	gorm.Model
	UserID       uint               `json:"userId" gorm:"uniqueIndex;not null"`
	User         *User              `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Bio          string             `json:"bio"`
	Subjects     []string           `json:"subjects" gorm:"serializer:json"`
	HourlyRate   float64            `json:"hourlyRate" gorm:"not null;default:0"`
	Availability []AvailabilitySlot `json:"availability" gorm:"foreignKey:TutorID;references:UserID"`
}

// TableName specifies the table name
func (TutorProfile) TableName() string {
	return "tutor_profiles"
}

// AvailabilitySlot is a recurring weekly window in which a tutor accepts sessions.
type AvailabilitySlot struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	TutorID   uint   `json:"tutorId" gorm:"index;not null"`
	Weekday   int    `json:"weekday" gorm:"not null"` // 0 = Sunday
	StartTime string `json:"startTime" gorm:"not null"`
	EndTime   string `json:"endTime" gorm:"not null"`
}

// TableName specifies the table name
func (AvailabilitySlot) TableName() string {
	return "availability_slots"
}

// TutorSummary is a profile with its aggregated rating.
type TutorSummary struct {
	TutorProfile
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// Earnings summarises a tutor's income from sessions.
type Earnings struct {
	TotalEarned       float64            `json:"totalEarned"`
	CompletedSessions int                `json:"completedSessions"`
	PendingPayout     float64            `json:"pendingPayout"`
	ByMonth           map[string]float64 `json:"byMonth"`
}
