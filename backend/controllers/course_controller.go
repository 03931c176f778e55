package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"project/backend/config"
	"project/backend/llm"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
	LLM llm.Client
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, client llm.Client) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, LLM: client}
}

type CreateCourseRequest struct {
	Name        string   `json:"name" validate:"required"`
	Level       string   `json:"level" validate:"omitempty,oneof=easy medium hard"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type AddResourceRequest struct {
	VideoLink  string `json:"video_link" validate:"required"`
	Transcript string `json:"transcript"`
}

func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	query := cc.DB.Model(&models.Course{})

	// Optional catalog filters
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ? OR description LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if level := c.Query("level"); level != "" {
		query = query.Where("level = ?", level)
	}

	var courses []models.Course
	err := query.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_no ASC") }).
		Preload("Resources").
		Preload("Quizzes.Quiz").
		Preload("Assignments.Assignment").
		Find(&courses).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(courses)
}

func (cc *CoursesController) GetCourseByID(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	err = cc.DB.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_no ASC") }).
		Preload("Resources").
		Preload("Quizzes.Quiz.Questions").
		Preload("Quizzes.Quiz.Scores").
		Preload("Assignments.Assignment.Submissions").
		First(&course, courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(course)
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input CreateCourseRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid course payload"), fields)
	}

	tags, _ := json.Marshal(input.Tags)

	course := models.Course{
		Name:        input.Name,
		Level:       input.Level,
		Description: input.Description,
		Tags:        string(tags),
	}
	if course.Level == "" {
		course.Level = "easy"
	}

	// The creator is the authenticated user, when already registered.
	if email, ok := c.Locals("email").(string); ok && email != "" {
		var creator models.User
		if err := cc.DB.Where("email = ?", email).First(&creator).Error; err == nil {
			course.CreatedByID = creator.ID
		}
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	return utils.Created(c, course)
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input CreateCourseRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Name != "" {
		course.Name = input.Name
	}
	if input.Level != "" {
		course.Level = input.Level
	}
	if input.Description != "" {
		course.Description = input.Description
	}
	if input.Tags != nil {
		tags, _ := json.Marshal(input.Tags)
		course.Tags = string(tags)
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}

	return c.JSON(course)
}

// DeleteCourse removes the course document. Enrollment records keep their
// weak reference; there is no cascade into user documents.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	res := cc.DB.Delete(&models.Course{}, courseID)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete course")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Course not found")
	}

	return c.JSON(fiber.Map{"message": "Course removed"})
}

func (cc *CoursesController) GetCoursesForUser(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Query("userId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var enrollments []models.Enrollment
	if err := cc.DB.Where("user_id = ?", userID).Order("id ASC").Find(&enrollments).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	// An empty enrollment set serializes as [] rather than null.
	result := []fiber.Map{}
	for _, enrollment := range enrollments {
		var course models.Course
		if err := cc.DB.First(&course, enrollment.CourseID).Error; err != nil {
			continue
		}
		result = append(result, fiber.Map{
			"id":           course.ID,
			"name":         course.Name,
			"level":        course.Level,
			"description":  course.Description,
			"status":       enrollment.Status,
			"started_at":   enrollment.StartedAt,
			"completed_at": enrollment.CompletedAt,
		})
	}

	return c.JSON(result)
}

func (cc *CoursesController) AddResource(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input AddResourceRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid resource payload"), fields)
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	resource := models.CourseResource{
		CourseID:   course.ID,
		VideoLink:  input.VideoLink,
		Transcript: input.Transcript,
	}
	if err := cc.DB.Create(&resource).Error; err != nil {
		return utils.InternalServerError(c, "Could not create resource")
	}

	return utils.Created(c, resource)
}

// ChatWithCourse appends one conversation turn to the course log. The model
// is called first; only a successful reply mutates the log, and the user
// message and reply are written together so no partial turn can appear.
func (cc *CoursesController) ChatWithCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input ChatRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid chat payload"), fields)
	}

	var course models.Course
	err = cc.DB.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_no ASC") }).
		Preload("Resources").
		First(&course, courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	context := buildChatContext(&course, input.Message)

	reply, err := cc.LLM.Complete(c.UserContext(), cc.Cfg.LLMChatModel, context)
	if err != nil {
		return utils.AppErrorResponse(c, utils.GenerationFailure("tutor reply failed", err))
	}

	// Both log entries persist together; the unique sequence index rejects
	// interleaved appends from a concurrent turn and the transaction retries
	// with a fresh sequence base.
	err = withTxRetry(cc.DB, func(tx *gorm.DB) error {
		var lastSeq int
		if err := tx.Model(&models.CourseMessage{}).
			Where("course_id = ?", course.ID).
			Select("COALESCE(MAX(sequence_no), 0)").
			Scan(&lastSeq).Error; err != nil {
			return err
		}

		userMsg := models.CourseMessage{
			CourseID:   course.ID,
			Type:       models.MessageTypeUser,
			Message:    input.Message,
			SequenceNo: lastSeq + 1,
		}
		if err := tx.Create(&userMsg).Error; err != nil {
			return err
		}

		replyMsg := models.CourseMessage{
			CourseID:   course.ID,
			Type:       models.MessageTypeSystem,
			Message:    reply,
			SequenceNo: lastSeq + 2,
		}
		return tx.Create(&replyMsg).Error
	})
	if err != nil {
		if utils.IsKind(err, utils.ErrKindConflict) {
			return utils.AppErrorResponse(c, err)
		}
		return utils.InternalServerError(c, "Could not save conversation turn")
	}

	var log []models.CourseMessage
	if err := cc.DB.Where("course_id = ?", course.ID).Order("sequence_no ASC").Find(&log).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(fiber.Map{
		"reply":    reply,
		"messages": log,
	})
}

// buildChatContext assembles the ordered completion context: tutor
// instruction, optional transcript material, the prior log with user
// messages as "user" and tutor messages as "assistant", then the new turn.
func buildChatContext(course *models.Course, userText string) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: tutorSystemPrompt},
	}

	if len(course.Resources) > 0 {
		var transcripts []string
		for _, resource := range course.Resources {
			transcripts = append(transcripts, strings.TrimSpace(resource.Transcript))
		}
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf(transcriptContextPrompt, strings.Join(transcripts, "\n\n---\n\n")),
		})
	}

	for _, msg := range course.Messages {
		role := llm.RoleAssistant
		if msg.Type == models.MessageTypeUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Message})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
}
