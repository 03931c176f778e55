package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses. Transitions are forward-only: a completed course never
// reverts to in-progress.
const (
	EnrollmentNotStarted = "Not Started"
	EnrollmentInProgress = "In Progress"
	EnrollmentCompleted  = "Completed"
)

type User struct {
	gorm.Model
	Name       string       `gorm:"not null" json:"name"`
	Email      string       `gorm:"unique;not null" json:"email"`
	Profession string       `json:"profession"`
	Interests  string       `json:"interests"` // JSON array of free-text interests
	Courses    []Enrollment `json:"courses"`
}

type Enrollment struct {
	gorm.Model
	UserID      uint       `gorm:"index" json:"user_id"`
	CourseID    uint       `gorm:"index" json:"course_id"`
	Status      string     `gorm:"default:'Not Started'" json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
