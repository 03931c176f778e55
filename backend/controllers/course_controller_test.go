package controllers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"project/backend/llm"
	"project/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCourseRequiresName(t *testing.T) {
	status, _ := doRequest(t, http.MethodPost, "/api/courses", map[string]interface{}{
		"level": "easy",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestGetCourseNotFound(t *testing.T) {
	status, _ := doRequest(t, http.MethodGet, "/api/courses/999999", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChatAppendsUserAndReplyTurns(t *testing.T) {
	courseID := createCourse(t, "Physics Basics")
	fake.script("An atom is the smallest unit of ordinary matter.")

	status, result := doRequest(t, http.MethodPost, courseURL(courseID, "/chat"), map[string]interface{}{
		"message": "What is an atom?",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "An atom is the smallest unit of ordinary matter.", result["reply"])

	messages := result["messages"].([]interface{})
	require.Len(t, messages, 2)

	first := messages[0].(map[string]interface{})
	second := messages[1].(map[string]interface{})
	assert.Equal(t, "user", first["type"])
	assert.Equal(t, "What is an atom?", first["message"])
	assert.Equal(t, float64(1), first["sequence_no"])
	assert.Equal(t, "system", second["type"])
	assert.Equal(t, float64(2), second["sequence_no"])

	// Context layout: tutor instruction first, the new turn last.
	call := fake.lastCall()
	require.NotEmpty(t, call)
	assert.Equal(t, llm.RoleSystem, call[0].Role)
	assert.Equal(t, llm.RoleUser, call[len(call)-1].Role)
	assert.Equal(t, "What is an atom?", call[len(call)-1].Content)
}

func TestChatIncludesTranscriptsWhenResourcesExist(t *testing.T) {
	courseID := createCourse(t, "Astronomy")

	status, _ := doRequest(t, http.MethodPost, courseURL(courseID, "/resources"), map[string]interface{}{
		"video_link": "https://example.com/embed/abc",
		"transcript": "Galaxies are classified by their shape.",
	})
	require.Equal(t, http.StatusCreated, status)

	fake.script("Let me explain galaxy classification.")
	status, _ = doRequest(t, http.MethodPost, courseURL(courseID, "/chat"), map[string]interface{}{
		"message": "How are galaxies classified?",
	})
	require.Equal(t, http.StatusOK, status)

	call := fake.lastCall()
	require.GreaterOrEqual(t, len(call), 3)
	assert.Equal(t, llm.RoleSystem, call[1].Role)
	assert.Contains(t, call[1].Content, "Galaxies are classified by their shape.")
}

func TestChatMapsPriorLogToRoles(t *testing.T) {
	courseID := createCourse(t, "History of Rome")
	seedMessage(t, courseID, models.MessageTypeSystem, "Welcome to the course!", 1)
	seedMessage(t, courseID, models.MessageTypeUser, "Who founded Rome?", 2)

	fake.script("According to legend, Romulus.")
	status, result := doRequest(t, http.MethodPost, courseURL(courseID, "/chat"), map[string]interface{}{
		"message": "Tell me more.",
	})
	require.Equal(t, http.StatusOK, status)

	call := fake.lastCall()
	require.Len(t, call, 4)
	assert.Equal(t, llm.RoleAssistant, call[1].Role)
	assert.Equal(t, "Welcome to the course!", call[1].Content)
	assert.Equal(t, llm.RoleUser, call[2].Role)

	// New entries continue the existing sequence.
	messages := result["messages"].([]interface{})
	require.Len(t, messages, 4)
	last := messages[3].(map[string]interface{})
	assert.Equal(t, float64(4), last["sequence_no"])
}

func TestChatFailureLeavesLogUntouched(t *testing.T) {
	courseID := createCourse(t, "Biology")
	fake.fail(errors.New("rate limited"))

	status, _ := doRequest(t, http.MethodPost, courseURL(courseID, "/chat"), map[string]interface{}{
		"message": "What is a cell?",
	})
	assert.Equal(t, http.StatusBadGateway, status)

	status, course := doRequest(t, http.MethodGet, courseURL(courseID, ""), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, course["messages"])
}

func TestConcurrentChatTurnsKeepSequenceContiguous(t *testing.T) {
	const turns = 4

	courseID := createCourse(t, "Concurrency Course")
	fake.script("noted")

	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			payload, _ := json.Marshal(map[string]interface{}{
				"message": fmt.Sprintf("turn %d", i),
			})
			req := httptest.NewRequest(http.MethodPost, courseURL(courseID, "/chat"), bytes.NewBuffer(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+jwtToken)

			resp, err := app.Test(req, -1)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("turn %d: status %d", i, resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	var messages []models.CourseMessage
	require.NoError(t, db.Where("course_id = ?", courseID).Order("sequence_no ASC").Find(&messages).Error)
	require.Len(t, messages, 2*turns)
	for i, msg := range messages {
		assert.Equal(t, i+1, msg.SequenceNo)
	}
}
