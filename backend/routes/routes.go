package routes

import (
	"project/backend/config"
	"project/backend/controllers"
	"project/backend/llm"
	"project/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, client llm.Client) {
	authMiddleware := middleware.AuthMiddleware(cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	users := app.Group("/api/users", authMiddleware)
	users.Get("/lookup/or-create", userController.LookupOrCreateByEmail)
	users.Get("/", userController.GetUsers)
	users.Post("/", userController.CreateUser)
	users.Get("/:id", userController.GetUserByID)
	users.Put("/:id", userController.UpdateUser)
	users.Get("/:id/progress", userController.GetUserProgress)
	users.Get("/:id/assignments", userController.GetUserAssignments)
	users.Get("/:id/quizzes", userController.GetUserQuizzes)
	users.Post("/:id/courses", userController.EnrollInCourse)
	users.Put("/:id/courses/:courseId", userController.UpdateEnrollment)

	// Course routes
	coursesController := controllers.NewCoursesController(db, cfg, client)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/for-user", coursesController.GetCoursesForUser)
	courses.Get("/", coursesController.GetCourses)
	courses.Post("/", coursesController.CreateCourse)
	courses.Get("/:id", coursesController.GetCourseByID)
	courses.Put("/:id", coursesController.UpdateCourse)
	courses.Delete("/:id", coursesController.DeleteCourse)
	courses.Post("/:id/resources", coursesController.AddResource)
	courses.Post("/:id/chat", coursesController.ChatWithCourse)

	// Quiz routes
	quizzesController := controllers.NewQuizzesController(db, cfg, client)
	quizzes := app.Group("/api/quizzes", authMiddleware)
	quizzes.Get("/", quizzesController.GetQuizzes)
	quizzes.Post("/", quizzesController.CreateQuiz)
	quizzes.Post("/generate", quizzesController.GenerateQuiz)
	quizzes.Get("/:id", quizzesController.GetQuizByID)
	quizzes.Put("/:id", quizzesController.UpdateQuiz)
	quizzes.Delete("/:id", quizzesController.DeleteQuiz)
	quizzes.Post("/:id/score", quizzesController.SubmitScore)

	// Assignment routes
	assignmentsController := controllers.NewAssignmentsController(db, cfg, client)
	assignments := app.Group("/api/assignments", authMiddleware)
	assignments.Get("/", assignmentsController.GetAssignments)
	assignments.Post("/", assignmentsController.CreateAssignment)
	assignments.Post("/generate", assignmentsController.GenerateAssignment)
	assignments.Get("/:id", assignmentsController.GetAssignmentByID)
	assignments.Put("/:id", assignmentsController.UpdateAssignment)
	assignments.Delete("/:id", assignmentsController.DeleteAssignment)
	assignments.Post("/:id/submission", assignmentsController.SubmitAnswer)

	// Recommendation routes
	recommendationController := controllers.NewRecommendationController(db, cfg, client)
	app.Get("/api/recommendations", authMiddleware, recommendationController.RecommendCourses)
}
