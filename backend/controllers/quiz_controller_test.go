package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"project/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chemistryQuizJSON is a well-formed five-question generation reply.
func chemistryQuizJSON() string {
	questions := ""
	for i := 1; i <= 5; i++ {
		if i > 1 {
			questions += ","
		}
		questions += fmt.Sprintf(`{
			"question": "Chemistry question %d?",
			"options": ["Option A", "Option B", "Option C", "Option D"],
			"answer": "Option B",
			"hint": "Think about electron shells."
		}`, i)
	}
	return "[" + questions + "]"
}

func TestGenerateQuizRoundTrip(t *testing.T) {
	courseID := createCourse(t, "Chemistry 101")
	seedMessage(t, courseID, models.MessageTypeUser, "Teach me about atoms.", 1)
	seedMessage(t, courseID, models.MessageTypeSystem, "Atoms consist of protons, neutrons and electrons.", 2)

	fake.script(chemistryQuizJSON())
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusCreated, status)

	data := result["data"].(map[string]interface{})
	questions := data["questions"].([]interface{})
	require.Len(t, questions, 5)
	for _, q := range questions {
		question := q.(map[string]interface{})
		assert.NotEmpty(t, question["question"])
		assert.NotEmpty(t, question["hint"])
		assert.Equal(t, "Option B", question["answer"])
		assert.JSONEq(t, `["Option A", "Option B", "Option C", "Option D"]`, question["options"].(string))
	}

	// The conversation log travelled into the prompt.
	call := fake.lastCall()
	require.Len(t, call, 2)
	assert.Contains(t, call[1].Content, "Teach me about atoms.")
	assert.Contains(t, call[1].Content, "Chemistry 101")

	quizID := uint(data["ID"].(float64))
	fake.script("unused")
	status, submitted := doRequest(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/score", quizID), map[string]interface{}{
		"score": 3,
	})
	require.Equal(t, http.StatusOK, status)

	scores := submitted["scores"].([]interface{})
	require.Len(t, scores, 1)
	assert.Equal(t, float64(3), scores[0].(map[string]interface{})["score"])
}

func TestGenerateQuizAcceptsProseWrappedJSON(t *testing.T) {
	courseID := createCourse(t, "Geology")

	fake.script("Sure! Here are your questions:\n" + chemistryQuizJSON() + "\nGood luck!")
	status, _ := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestGenerateQuizRejectsProseReply(t *testing.T) {
	courseID := createCourse(t, "Literature")

	fake.script("I'm sorry, I can't produce a quiz right now.")
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)

	// The raw reply is surfaced for diagnosis and nothing was stored.
	details := result["details"].(map[string]interface{})
	assert.Contains(t, details["raw"], "I'm sorry")

	var count int64
	require.NoError(t, db.Model(&models.CourseQuiz{}).Where("course_id = ?", courseID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGenerateQuizRejectsAnswerOutsideOptions(t *testing.T) {
	courseID := createCourse(t, "Botany")

	bad := `[
		{"question": "Q1?", "options": ["A", "B", "C", "D"], "answer": "E", "hint": "h"},
		{"question": "Q2?", "options": ["A", "B", "C", "D"], "answer": "A", "hint": "h"},
		{"question": "Q3?", "options": ["A", "B", "C", "D"], "answer": "A", "hint": "h"},
		{"question": "Q4?", "options": ["A", "B", "C", "D"], "answer": "A", "hint": "h"},
		{"question": "Q5?", "options": ["A", "B", "C", "D"], "answer": "A", "hint": "h"}
	]`
	fake.script(bad)
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, result["message"], "not one of its options")
}

func TestGenerateQuizRejectsWrongQuestionCount(t *testing.T) {
	courseID := createCourse(t, "Economics")

	fake.script(`[{"question": "Only one?", "options": ["A", "B", "C", "D"], "answer": "A", "hint": "h"}]`)
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, result["message"], "expected 5 questions")
}

func TestGenerateQuizUnknownCourse(t *testing.T) {
	fake.script(chemistryQuizJSON())
	status, _ := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": 999999,
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSubmitScoreRejectsOutOfRange(t *testing.T) {
	courseID := createCourse(t, "Algebra")

	fake.script(chemistryQuizJSON())
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusCreated, status)
	quizID := uint(result["data"].(map[string]interface{})["ID"].(float64))

	status, _ = doRequest(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/score", quizID), map[string]interface{}{
		"score": 6,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doRequest(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/score", quizID), map[string]interface{}{
		"score": -1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestScoreHistoryIsAppendOnly(t *testing.T) {
	courseID := createCourse(t, "Statistics")

	fake.script(chemistryQuizJSON())
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusCreated, status)
	quizID := uint(result["data"].(map[string]interface{})["ID"].(float64))

	for _, score := range []int{2, 5, 0} {
		status, _ = doRequest(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/score", quizID), map[string]interface{}{
			"score": score,
		})
		require.Equal(t, http.StatusOK, status)
	}

	status, quiz := doRequest(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quizID), nil)
	require.Equal(t, http.StatusOK, status)
	scores := quiz["scores"].([]interface{})
	require.Len(t, scores, 3)
}

func TestUpdateQuizPatchesDueDateAndQuestions(t *testing.T) {
	courseID := createCourse(t, "Update Quiz Course")

	fake.script(chemistryQuizJSON())
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusCreated, status)
	quizID := uint(result["data"].(map[string]interface{})["ID"].(float64))

	status, _ = doRequest(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/score", quizID), map[string]interface{}{
		"score": 2,
	})
	require.Equal(t, http.StatusOK, status)

	replacement := make([]map[string]interface{}, 5)
	for i := range replacement {
		replacement[i] = map[string]interface{}{
			"question": fmt.Sprintf("Revised question %d?", i+1),
			"options":  []string{"W", "X", "Y", "Z"},
			"answer":   "Y",
			"hint":     "revised hint",
		}
	}

	status, updated := doRequest(t, http.MethodPut, fmt.Sprintf("/api/quizzes/%d", quizID), map[string]interface{}{
		"dueDate":   "2026-12-01T00:00:00Z",
		"questions": replacement,
	})
	require.Equal(t, http.StatusOK, status)

	assert.Contains(t, updated["due_date"], "2026-12-01")
	questions := updated["questions"].([]interface{})
	require.Len(t, questions, 5)
	assert.Equal(t, "Revised question 1?", questions[0].(map[string]interface{})["question"])

	// Score history survives a question replacement.
	assert.Len(t, updated["scores"].([]interface{}), 1)
}

func TestUpdateQuizRejectsInvalidReplacementQuestions(t *testing.T) {
	courseID := createCourse(t, "Update Validation Course")

	fake.script(chemistryQuizJSON())
	status, result := doRequest(t, http.MethodPost, "/api/quizzes/generate", map[string]interface{}{
		"courseId": courseID,
	})
	require.Equal(t, http.StatusCreated, status)
	quizID := uint(result["data"].(map[string]interface{})["ID"].(float64))

	status, _ = doRequest(t, http.MethodPut, fmt.Sprintf("/api/quizzes/%d", quizID), map[string]interface{}{
		"questions": []map[string]interface{}{
			{"question": "Q?", "options": []string{"A", "B"}, "answer": "A", "hint": "h"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// The original question set is still intact.
	status, quiz := doRequest(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quizID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, quiz["questions"].([]interface{}), 5)
}

func TestUpdateQuizNotFound(t *testing.T) {
	status, _ := doRequest(t, http.MethodPut, "/api/quizzes/999999", map[string]interface{}{
		"dueDate": "2026-12-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateQuizExhaustedRetriesReturnConflict(t *testing.T) {
	courseID := createCourse(t, "Quiz Conflict Course")

	// A rogue index row at the next slot makes every retry collide.
	require.NoError(t, db.Create(&models.CourseQuiz{
		CourseID:   courseID,
		QuizID:     999999,
		SequenceNo: 2,
	}).Error)

	questions := make([]map[string]interface{}, 5)
	for i := range questions {
		questions[i] = map[string]interface{}{
			"question": fmt.Sprintf("Conflicting question %d?", i+1),
			"options":  []string{"A", "B", "C", "D"},
			"answer":   "A",
			"hint":     "h",
		}
	}

	status, result := doRequest(t, http.MethodPost, "/api/quizzes", map[string]interface{}{
		"courseId":  courseID,
		"questions": questions,
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "concurrency_conflict", result["error"])
}

func TestCreateQuizManually(t *testing.T) {
	courseID := createCourse(t, "Manual Quiz Course")

	questions := make([]map[string]interface{}, 5)
	for i := range questions {
		questions[i] = map[string]interface{}{
			"question": fmt.Sprintf("Handwritten question %d?", i+1),
			"options":  []string{"A", "B", "C", "D"},
			"answer":   "C",
			"hint":     "read the notes",
		}
	}

	status, result := doRequest(t, http.MethodPost, "/api/quizzes", map[string]interface{}{
		"courseId":  courseID,
		"questions": questions,
	})
	require.Equal(t, http.StatusCreated, status)

	data := result["data"].(map[string]interface{})
	assert.Len(t, data["questions"].([]interface{}), 5)

	// The course index references the new quiz at the next sequence slot.
	var link models.CourseQuiz
	require.NoError(t, db.Where("course_id = ?", courseID).First(&link).Error)
	assert.Equal(t, 1, link.SequenceNo)
	assert.Equal(t, uint(data["ID"].(float64)), link.QuizID)
}
