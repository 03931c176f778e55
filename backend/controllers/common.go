package controllers

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"project/backend/models"
	"project/backend/utils"

	"gorm.io/gorm"
)

// renderCourseContext flattens the course message log into the prompt context
// string consumed by the generation templates: one "#<seq> [<type>]: <text>"
// line per message, in sequence order.
func renderCourseContext(messages []models.CourseMessage) string {
	sorted := make([]models.CourseMessage, len(messages))
	copy(sorted, messages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SequenceNo < sorted[j].SequenceNo
	})

	var b strings.Builder
	for i, msg := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "#%d [%s]: %s", msg.SequenceNo, msg.Type, msg.Message)
	}
	return b.String()
}

// withTxRetry runs fn in a transaction, retrying append conflicts
// transparently. Sequence numbers are assigned optimistically (read max,
// insert max+1) and the unique index on (course_id, sequence_no) turns a
// race into a constraint violation: the losing transaction rolls back,
// recomputes and tries again. Callers only ever see a conflict error once
// the retries are exhausted.
func withTxRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !isAppendConflict(err) {
			return err
		}
		time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)
	}
	return utils.ConflictError("concurrent append retries exhausted", err)
}

func isAppendConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
