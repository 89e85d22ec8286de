package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is a student's rating of a completed session. One per booking.
type Review struct {
	gorm.Model
	BookingID      uint      `json:"bookingId" gorm:"uniqueIndex;not null"`
	StudentID      uint      `json:"studentId" gorm:"not null"`
	Student        *User     `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	TutorID        uint      `json:"tutorId" gorm:"index;not null"`
	Rating         int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	ReviewText     string    `json:"reviewText"`
	WouldRecommend bool      `json:"wouldRecommend"`
	ReviewDate     time.Time `json:"reviewDate" gorm:"not null"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
