package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"project/backend/config"
	"project/backend/llm"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AssignmentsController struct {
	DB  *gorm.DB
	Cfg *config.Config
	LLM llm.Client
}

func NewAssignmentsController(db *gorm.DB, cfg *config.Config, client llm.Client) *AssignmentsController {
	return &AssignmentsController{DB: db, Cfg: cfg, LLM: client}
}

type GenerateAssignmentRequest struct {
	CourseID uint       `json:"courseId" validate:"required"`
	DueDate  *time.Time `json:"dueDate"`
}

type CreateAssignmentRequest struct {
	CourseID uint       `json:"courseId" validate:"required"`
	Question string     `json:"question" validate:"required"`
	DueDate  *time.Time `json:"dueDate"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

func (ac *AssignmentsController) GetAssignments(c *fiber.Ctx) error {
	var assignments []models.Assignment
	if err := ac.DB.Preload("Submissions").Find(&assignments).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(assignments)
}

func (ac *AssignmentsController) GetAssignmentByID(c *fiber.Ctx) error {
	assignmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	var assignment models.Assignment
	if err := ac.DB.Preload("Submissions").First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Assignment not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(assignment)
}

// UpdateAssignment patches the question text and due date. Status and the
// submission history are managed by SubmitAnswer and are not editable here.
func (ac *AssignmentsController) UpdateAssignment(c *fiber.Ctx) error {
	assignmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	var input struct {
		Question string     `json:"question"`
		DueDate  *time.Time `json:"dueDate"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Assignment not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Question != "" {
		assignment.Question = input.Question
	}
	if input.DueDate != nil {
		assignment.DueDate = *input.DueDate
	}

	if err := ac.DB.Save(&assignment).Error; err != nil {
		return utils.InternalServerError(c, "Could not update assignment")
	}

	var updated models.Assignment
	if err := ac.DB.Preload("Submissions").First(&updated, assignment.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(updated)
}

func (ac *AssignmentsController) DeleteAssignment(c *fiber.Ctx) error {
	assignmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	res := ac.DB.Delete(&models.Assignment{}, assignmentID)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete assignment")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Assignment not found")
	}

	return c.JSON(fiber.Map{"message": "Assignment removed"})
}

// GenerateAssignment asks the generation model for one open-ended question
// built from the course conversation. The reply is plain text; the whole
// trimmed reply becomes the question.
func (ac *AssignmentsController) GenerateAssignment(c *fiber.Ctx) error {
	var input GenerateAssignmentRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid generation payload"), fields)
	}

	var course models.Course
	err := ac.DB.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_no ASC") }).
		First(&course, input.CourseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	prompt := fmt.Sprintf(assignmentPromptTemplate, course.Name, renderCourseContext(course.Messages))
	reply, err := ac.LLM.Complete(c.UserContext(), ac.Cfg.LLMGenerationModel, []llm.Message{
		{Role: llm.RoleSystem, Content: assignmentSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return utils.AppErrorResponse(c, utils.GenerationFailure("assignment generation failed", err))
	}

	question := strings.TrimSpace(reply)
	if question == "" {
		return utils.AppErrorResponse(c, utils.ValidationFailure("model returned an empty question", reply))
	}

	assignment := models.Assignment{
		CourseID: course.ID,
		Question: question,
		Status:   models.AssignmentPending,
		DueDate:  defaultAssignmentDue(input.DueDate),
	}

	err = withTxRetry(ac.DB, func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.CourseAssignment{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
			return err
		}

		return tx.Create(&models.CourseAssignment{
			CourseID:     course.ID,
			AssignmentID: assignment.ID,
			SequenceNo:   int(count) + 1,
		}).Error
	})
	if err != nil {
		if utils.IsKind(err, utils.ErrKindConflict) {
			return utils.AppErrorResponse(c, err)
		}
		return utils.InternalServerError(c, "Could not save assignment")
	}

	return utils.Created(c, assignment)
}

// CreateAssignment persists a caller-supplied assignment with the same
// due-date defaulting as generation.
func (ac *AssignmentsController) CreateAssignment(c *fiber.Ctx) error {
	var input CreateAssignmentRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid assignment payload"), fields)
	}

	var course models.Course
	if err := ac.DB.First(&course, input.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	assignment := models.Assignment{
		CourseID: course.ID,
		Question: input.Question,
		Status:   models.AssignmentPending,
		DueDate:  defaultAssignmentDue(input.DueDate),
	}

	err := withTxRetry(ac.DB, func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.CourseAssignment{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Create(&models.CourseAssignment{
			CourseID:     course.ID,
			AssignmentID: assignment.ID,
			SequenceNo:   int(count) + 1,
		}).Error
	})
	if err != nil {
		if utils.IsKind(err, utils.ErrKindConflict) {
			return utils.AppErrorResponse(c, err)
		}
		return utils.InternalServerError(c, "Could not save assignment")
	}

	return utils.Created(c, assignment)
}

// SubmitAnswer grades a free-text answer with the grading model and records
// the submission. Grade-then-commit: a failed grading call records nothing,
// so no submission can silently appear graded zero.
func (ac *AssignmentsController) SubmitAnswer(c *fiber.Ctx) error {
	assignmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	var input SubmitAnswerRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid submission payload"), fields)
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Assignment not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	prompt := fmt.Sprintf(gradingPromptTemplate, assignment.Question, input.Answer)
	reply, err := ac.LLM.Complete(c.UserContext(), ac.Cfg.LLMGradingModel, []llm.Message{
		{Role: llm.RoleSystem, Content: gradingSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return utils.AppErrorResponse(c, utils.GenerationFailure("grading failed", err))
	}

	// An unparseable grade falls back to 0 rather than failing the submission.
	score := utils.ClampScore(utils.ParseLeadingInt(reply))

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		submission := models.Submission{
			AssignmentID: assignment.ID,
			AnswerText:   input.Answer,
			Score:        score,
			SubmittedAt:  time.Now(),
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		// Monotonic: Completed stays Completed across resubmissions.
		return tx.Model(&models.Assignment{}).
			Where("id = ?", assignment.ID).
			Update("status", models.AssignmentCompleted).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not save submission")
	}

	var updated models.Assignment
	if err := ac.DB.Preload("Submissions").First(&updated, assignment.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(updated)
}

func defaultAssignmentDue(explicit *time.Time) time.Time {
	if explicit != nil {
		return *explicit
	}
	return time.Now().Add(7 * 24 * time.Hour)
}
