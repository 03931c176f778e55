package models

import "gorm.io/gorm"

// Message log entry types.
const (
	MessageTypeSystem = "system"
	MessageTypeUser   = "user"
)

type Course struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Level       string `gorm:"default:easy" json:"level"` // easy, medium, hard
	Description string `json:"description"`
	Tags        string `json:"tags"` // JSON array of tags
	CreatedByID uint   `gorm:"index" json:"created_by"`

	Messages    []CourseMessage    `json:"messages"`
	Resources   []CourseResource   `json:"resources"`
	Quizzes     []CourseQuiz       `json:"quizzes"`
	Assignments []CourseAssignment `json:"assignments"`
}

// CourseMessage is one entry of the append-only per-course conversation log.
// SequenceNo is strictly increasing and gapless from 1. The unique index is
// what detects two turns racing for the same slot; the losing transaction
// rolls back and recomputes (see controllers.withTxRetry).
type CourseMessage struct {
	gorm.Model
	CourseID   uint   `gorm:"uniqueIndex:idx_course_message_seq" json:"course_id"`
	Type       string `gorm:"default:system" json:"type"` // system, user
	Message    string `json:"message"`
	SequenceNo int    `gorm:"uniqueIndex:idx_course_message_seq" json:"sequence_no"`
}

type CourseResource struct {
	gorm.Model
	CourseID   uint   `gorm:"index" json:"course_id"`
	VideoLink  string `json:"video_link"`
	Transcript string `json:"transcript"`
}

// CourseQuiz links a course to a quiz. SequenceNo is assigned as list
// length + 1 at append time and never reused; the unique index guards
// concurrent appends the same way the message log does.
type CourseQuiz struct {
	gorm.Model
	CourseID   uint  `gorm:"uniqueIndex:idx_course_quiz_seq" json:"course_id"`
	QuizID     uint  `gorm:"index" json:"quiz_id"`
	SequenceNo int   `gorm:"uniqueIndex:idx_course_quiz_seq" json:"sequence_no"`
	Quiz       *Quiz `json:"quiz,omitempty"`
}

type CourseAssignment struct {
	gorm.Model
	CourseID     uint        `gorm:"uniqueIndex:idx_course_assignment_seq" json:"course_id"`
	AssignmentID uint        `gorm:"index" json:"assignment_id"`
	SequenceNo   int         `gorm:"uniqueIndex:idx_course_assignment_seq" json:"sequence_no"`
	Assignment   *Assignment `json:"assignment,omitempty"`
}
