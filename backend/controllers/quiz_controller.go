package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"project/backend/config"
	"project/backend/llm"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const quizQuestionCount = 5

type QuizzesController struct {
	DB  *gorm.DB
	Cfg *config.Config
	LLM llm.Client
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config, client llm.Client) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg, LLM: client}
}

type GenerateQuizRequest struct {
	CourseID uint       `json:"courseId" validate:"required"`
	DueDate  *time.Time `json:"dueDate"`
}

type SubmitScoreRequest struct {
	Score *int `json:"score" validate:"required"`
}

// parsedQuizQuestion is the typed shape a generated question must satisfy
// before anything is persisted.
type parsedQuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Hint     string   `json:"hint"`
}

func (qc *QuizzesController) GetQuizzes(c *fiber.Ctx) error {
	var quizzes []models.Quiz
	if err := qc.DB.Preload("Questions").Preload("Scores").Find(&quizzes).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(quizzes)
}

func (qc *QuizzesController) GetQuizByID(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions").Preload("Scores").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(quiz)
}

// UpdateQuiz patches the due date and, when a question set is supplied,
// replaces the questions wholesale after running the same validation as
// generation. Score history is untouched either way.
func (qc *QuizzesController) UpdateQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var input struct {
		DueDate   *time.Time           `json:"dueDate"`
		Questions []parsedQuizQuestion `json:"questions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Questions != nil {
		for i, q := range input.Questions {
			if err := validateQuizQuestion(q, i); err != nil {
				return utils.AppErrorResponse(c, err)
			}
		}
	}

	if input.DueDate != nil {
		quiz.DueDate = *input.DueDate
	}

	err = qc.DB.Transaction(func(tx *gorm.DB) error {
		if input.Questions != nil {
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&models.QuizQuestion{}).Error; err != nil {
				return err
			}
			for _, q := range input.Questions {
				options, _ := json.Marshal(q.Options)
				question := models.QuizQuestion{
					QuizID:   quiz.ID,
					Question: q.Question,
					Options:  string(options),
					Answer:   q.Answer,
					Hint:     q.Hint,
				}
				if err := tx.Create(&question).Error; err != nil {
					return err
				}
			}
		}
		return tx.Save(&quiz).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not update quiz")
	}

	var updated models.Quiz
	if err := qc.DB.Preload("Questions").Preload("Scores").First(&updated, quiz.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(updated)
}

func (qc *QuizzesController) DeleteQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	res := qc.DB.Delete(&models.Quiz{}, quizID)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete quiz")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Quiz not found")
	}

	return c.JSON(fiber.Map{"message": "Quiz removed"})
}

// GenerateQuiz builds a prompt from the course conversation, asks the
// generation model for 5 MCQs as JSON and persists the quiz plus its
// course-index entry. A reply that fails to parse or validate creates
// nothing; the raw text is returned for diagnosis.
func (qc *QuizzesController) GenerateQuiz(c *fiber.Ctx) error {
	var input GenerateQuizRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid generation payload"), fields)
	}

	var course models.Course
	err := qc.DB.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_no ASC") }).
		First(&course, input.CourseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	prompt := fmt.Sprintf(quizPromptTemplate, course.Name, renderCourseContext(course.Messages))
	reply, err := qc.LLM.Complete(c.UserContext(), qc.Cfg.LLMGenerationModel, []llm.Message{
		{Role: llm.RoleSystem, Content: quizSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return utils.AppErrorResponse(c, utils.GenerationFailure("quiz generation failed", err))
	}

	questions, parseErr := parseGeneratedQuiz(reply)
	if parseErr != nil {
		return utils.AppErrorResponse(c, parseErr)
	}

	dueDate := time.Now().Add(3 * 24 * time.Hour)
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}

	quiz := models.Quiz{
		CourseID: course.ID,
		DueDate:  dueDate,
	}
	for _, q := range questions {
		options, _ := json.Marshal(q.Options)
		quiz.Questions = append(quiz.Questions, models.QuizQuestion{
			Question: q.Question,
			Options:  string(options),
			Answer:   q.Answer,
			Hint:     q.Hint,
		})
	}

	err = withTxRetry(qc.DB, func(tx *gorm.DB) error {
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.CourseQuiz{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
			return err
		}

		return tx.Create(&models.CourseQuiz{
			CourseID:   course.ID,
			QuizID:     quiz.ID,
			SequenceNo: int(count) + 1,
		}).Error
	})
	if err != nil {
		if utils.IsKind(err, utils.ErrKindConflict) {
			return utils.AppErrorResponse(c, err)
		}
		return utils.InternalServerError(c, "Could not save quiz")
	}

	return utils.Created(c, quiz)
}

// CreateQuiz persists a caller-supplied quiz, applying the same validation
// and due-date defaulting as generation.
func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	var input struct {
		CourseID  uint                 `json:"courseId" validate:"required"`
		Questions []parsedQuizQuestion `json:"questions" validate:"required"`
		DueDate   *time.Time           `json:"dueDate"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid quiz payload"), fields)
	}

	for i, q := range input.Questions {
		if err := validateQuizQuestion(q, i); err != nil {
			return utils.AppErrorResponse(c, err)
		}
	}

	var course models.Course
	if err := qc.DB.First(&course, input.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	dueDate := time.Now().Add(3 * 24 * time.Hour)
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}

	quiz := models.Quiz{CourseID: course.ID, DueDate: dueDate}
	for _, q := range input.Questions {
		options, _ := json.Marshal(q.Options)
		quiz.Questions = append(quiz.Questions, models.QuizQuestion{
			Question: q.Question,
			Options:  string(options),
			Answer:   q.Answer,
			Hint:     q.Hint,
		})
	}

	err := withTxRetry(qc.DB, func(tx *gorm.DB) error {
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.CourseQuiz{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Create(&models.CourseQuiz{
			CourseID:   course.ID,
			QuizID:     quiz.ID,
			SequenceNo: int(count) + 1,
		}).Error
	})
	if err != nil {
		if utils.IsKind(err, utils.ErrKindConflict) {
			return utils.AppErrorResponse(c, err)
		}
		return utils.InternalServerError(c, "Could not save quiz")
	}

	return utils.Created(c, quiz)
}

// SubmitScore appends one graded attempt. Scoring itself happens caller-side
// by exact match against the answer key; the engine only range-checks and
// records. History is append-only so retakes never overwrite earlier attempts.
func (qc *QuizzesController) SubmitScore(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var input SubmitScoreRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid score payload"), fields)
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	score := *input.Score
	if score < 0 || score > len(quiz.Questions) {
		return utils.AppErrorResponse(c, utils.ValidationFailure(
			fmt.Sprintf("score must be between 0 and %d", len(quiz.Questions)), ""))
	}

	record := models.QuizScore{
		QuizID:      quiz.ID,
		Score:       score,
		SubmittedAt: time.Now(),
	}
	if err := qc.DB.Create(&record).Error; err != nil {
		return utils.InternalServerError(c, "Could not save score")
	}

	var updated models.Quiz
	if err := qc.DB.Preload("Questions").Preload("Scores").First(&updated, quiz.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(updated)
}

// parseGeneratedQuiz extracts the first balanced JSON array from the model
// reply and validates the question set. The raw reply travels with every
// failure so a bad generation can be diagnosed.
func parseGeneratedQuiz(reply string) ([]parsedQuizQuestion, *utils.AppError) {
	raw := utils.ExtractJSONArray(reply)
	if raw == "" {
		return nil, utils.ValidationFailure("model reply contains no JSON array", reply)
	}

	var questions []parsedQuizQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, utils.ValidationFailure("model reply is not a valid question array", reply)
	}

	if len(questions) != quizQuestionCount {
		return nil, utils.ValidationFailure(
			fmt.Sprintf("expected %d questions, got %d", quizQuestionCount, len(questions)), reply)
	}
	for i, q := range questions {
		if err := validateQuizQuestion(q, i); err != nil {
			err.Raw = reply
			return nil, err
		}
	}

	return questions, nil
}

func validateQuizQuestion(q parsedQuizQuestion, index int) *utils.AppError {
	if q.Question == "" {
		return utils.ValidationFailure(fmt.Sprintf("question %d has no text", index+1), "")
	}
	if len(q.Options) != 4 {
		return utils.ValidationFailure(
			fmt.Sprintf("question %d has %d options, expected 4", index+1, len(q.Options)), "")
	}
	if q.Hint == "" {
		return utils.ValidationFailure(fmt.Sprintf("question %d has no hint", index+1), "")
	}

	// Exact-string grading needs the answer verbatim among the options.
	for _, option := range q.Options {
		if option == q.Answer {
			return nil
		}
	}
	return utils.ValidationFailure(
		fmt.Sprintf("question %d answer is not one of its options", index+1), "")
}
