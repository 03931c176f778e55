package models

import (
	"time"

	"gorm.io/gorm"
)

// Assignment statuses. Pending until the first submission, Completed after;
// the flag is monotonic and never reverts.
const (
	AssignmentPending   = "Pending"
	AssignmentCompleted = "Completed"
)

type Assignment struct {
	gorm.Model
	CourseID    uint         `gorm:"index;not null" json:"course_id"`
	Question    string       `json:"question"`
	DueDate     time.Time    `json:"due_date"`
	Status      string       `gorm:"default:Pending" json:"status"`
	Submissions []Submission `json:"submissions"`
}

// Submission is one graded free-text attempt. Score is an integer clamped
// to [0,100] by the grading engine before it is recorded.
type Submission struct {
	gorm.Model
	AssignmentID uint      `gorm:"index" json:"assignment_id"`
	AnswerText   string    `json:"answer_text"`
	Score        int       `json:"score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
