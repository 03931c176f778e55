package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	gorm.Model
	CourseID  uint           `gorm:"index;not null" json:"course_id"`
	Questions []QuizQuestion `json:"questions"`
	Scores    []QuizScore    `json:"scores"`
	DueDate   time.Time      `json:"due_date"`
}

// QuizQuestion holds one multiple-choice question. Answer must equal one of
// the four options byte-for-byte; grading is exact string match.
type QuizQuestion struct {
	gorm.Model
	QuizID   uint   `gorm:"index" json:"quiz_id"`
	Question string `json:"question"`
	Options  string `json:"options"` // JSON array of exactly 4 options
	Answer   string `json:"answer"`
	Hint     string `json:"hint"`
}

// QuizScore is one graded attempt. Every resubmission appends a new record;
// history is never overwritten.
type QuizScore struct {
	gorm.Model
	QuizID      uint      `gorm:"index" json:"quiz_id"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
