package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

type CreateUserRequest struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Profession string   `json:"profession"`
	Interests  []string `json:"interests"`
}

type UpdateUserRequest struct {
	Name       string   `json:"name"`
	Profession string   `json:"profession"`
	Interests  []string `json:"interests"`
}

type EnrollRequest struct {
	CourseID uint `json:"courseId" validate:"required"`
}

type UpdateEnrollmentRequest struct {
	Status string `json:"status" validate:"required,oneof='Not Started' 'In Progress' 'Completed'"`
}

func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := uc.DB.Preload("Courses").Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(users)
}

func (uc *UserController) GetUserByID(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := uc.DB.Preload("Courses").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(user)
}

func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	var input CreateUserRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid user payload"), fields)
	}

	interests, _ := json.Marshal(input.Interests)
	user := models.User{
		Name:       input.Name,
		Email:      input.Email,
		Profession: input.Profession,
		Interests:  string(interests),
	}

	if err := uc.DB.Create(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not create user")
	}

	return utils.Created(c, user)
}

func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input UpdateUserRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Profession != "" {
		user.Profession = input.Profession
	}
	if input.Interests != nil {
		interests, _ := json.Marshal(input.Interests)
		user.Interests = string(interests)
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	return c.JSON(user)
}

// LookupOrCreateByEmail godoc
// @Summary Lookup or create a user by email
// @Description Returns the user for the given email, creating one on first login
// @Tags users
// @Produce json
// @Param email query string true "User email"
// @Param name query string false "Display name for a newly created user"
// @Success 200 {object} models.User
// @Router /users/lookup/or-create [get]
func (uc *UserController) LookupOrCreateByEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return utils.BadRequest(c, "Missing email")
	}
	name := c.Query("name")
	if name == "" {
		name = "Unknown"
	}

	var user models.User
	err := uc.DB.Preload("Courses").Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{Name: name, Email: email, Interests: "[]"}
		if err := uc.DB.Create(&user).Error; err != nil {
			return utils.InternalServerError(c, "Could not create user")
		}
		return c.JSON(user)
	}
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(user)
}

func (uc *UserController) GetUserProgress(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := uc.DB.Preload("Courses").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	// Serializes as [] rather than null when the user has no enrollments.
	progress := []fiber.Map{}
	for _, enrollment := range user.Courses {
		var course models.Course
		if err := uc.DB.First(&course, enrollment.CourseID).Error; err != nil {
			continue
		}
		progress = append(progress, fiber.Map{
			"courseId":    enrollment.CourseID,
			"courseName":  course.Name,
			"status":      enrollment.Status,
			"startedAt":   enrollment.StartedAt,
			"completedAt": enrollment.CompletedAt,
		})
	}

	return c.JSON(fiber.Map{"progress": progress})
}

// GetUserAssignments returns the user's latest graded submission per
// assignment across their enrolled courses.
func (uc *UserController) GetUserAssignments(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := uc.DB.Preload("Courses").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	result := []fiber.Map{}
	for _, enrollment := range user.Courses {
		var course models.Course
		if err := uc.DB.First(&course, enrollment.CourseID).Error; err != nil {
			continue
		}

		var assignments []models.Assignment
		if err := uc.DB.Preload("Submissions").Where("course_id = ?", course.ID).Find(&assignments).Error; err != nil {
			continue
		}
		for _, assignment := range assignments {
			if len(assignment.Submissions) == 0 {
				continue
			}
			latest := assignment.Submissions[len(assignment.Submissions)-1]
			result = append(result, fiber.Map{
				"assignmentId": assignment.ID,
				"course":       course.Name,
				"question":     assignment.Question,
				"score":        latest.Score,
				"submittedAt":  latest.SubmittedAt,
			})
		}
	}

	return c.JSON(fiber.Map{"assignments": result})
}

// GetUserQuizzes returns the user's latest score per quiz across their
// enrolled courses.
func (uc *UserController) GetUserQuizzes(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := uc.DB.Preload("Courses").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	result := []fiber.Map{}
	for _, enrollment := range user.Courses {
		var course models.Course
		if err := uc.DB.First(&course, enrollment.CourseID).Error; err != nil {
			continue
		}

		var quizzes []models.Quiz
		if err := uc.DB.Preload("Scores").Where("course_id = ?", course.ID).Find(&quizzes).Error; err != nil {
			continue
		}
		for _, quiz := range quizzes {
			if len(quiz.Scores) == 0 {
				continue
			}
			latest := quiz.Scores[len(quiz.Scores)-1]
			result = append(result, fiber.Map{
				"quizId":  quiz.ID,
				"topic":   course.Name,
				"score":   latest.Score,
				"takenAt": latest.SubmittedAt,
			})
		}
	}

	return c.JSON(fiber.Map{"quizzes": result})
}

// EnrollInCourse creates a Not Started enrollment record for the user.
func (uc *UserController) EnrollInCourse(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input EnrollRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid enrollment payload"), fields)
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var course models.Course
	if err := uc.DB.First(&course, input.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var existing models.Enrollment
	err = uc.DB.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&existing).Error
	if err == nil {
		return c.JSON(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.InternalServerError(c, "Could not query database")
	}

	enrollment := models.Enrollment{
		UserID:   user.ID,
		CourseID: course.ID,
		Status:   models.EnrollmentNotStarted,
	}
	if err := uc.DB.Create(&enrollment).Error; err != nil {
		return utils.InternalServerError(c, "Could not create enrollment")
	}

	return utils.Created(c, enrollment)
}

// UpdateEnrollment moves an enrollment along Not Started -> In Progress ->
// Completed, stamping StartedAt and CompletedAt on the way. Transitions are
// forward-only; a completed course never reverts.
func (uc *UserController) UpdateEnrollment(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}
	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input UpdateEnrollmentRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.Error(c, fiber.StatusUnprocessableEntity,
			fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid enrollment payload"), fields)
	}

	var enrollment models.Enrollment
	err = uc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Enrollment not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if enrollmentRank(input.Status) < enrollmentRank(enrollment.Status) {
		return utils.AppErrorResponse(c, utils.ValidationFailure(
			"enrollment status cannot move backwards", ""))
	}

	now := time.Now()
	if input.Status == models.EnrollmentInProgress && enrollment.StartedAt == nil {
		enrollment.StartedAt = &now
	}
	if input.Status == models.EnrollmentCompleted {
		if enrollment.StartedAt == nil {
			enrollment.StartedAt = &now
		}
		if enrollment.CompletedAt == nil {
			enrollment.CompletedAt = &now
		}
	}
	enrollment.Status = input.Status

	if err := uc.DB.Save(&enrollment).Error; err != nil {
		return utils.InternalServerError(c, "Could not update enrollment")
	}

	return c.JSON(enrollment)
}

func enrollmentRank(status string) int {
	switch status {
	case models.EnrollmentNotStarted:
		return 0
	case models.EnrollmentInProgress:
		return 1
	case models.EnrollmentCompleted:
		return 2
	default:
		return -1
	}
}
