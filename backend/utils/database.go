package utils

import (
	"fmt"
	"project/backend/config"
	"project/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection and migrates the schema.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := MigrateModels(db); err != nil {
		return nil, err
	}

	return db, nil
}

// MigrateModels runs auto-migration for every model. Shared with tests,
// which open an in-memory sqlite database instead.
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Enrollment{},
		&models.Course{},
		&models.CourseMessage{},
		&models.CourseResource{},
		&models.CourseQuiz{},
		&models.CourseAssignment{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizScore{},
		&models.Assignment{},
		&models.Submission{},
	)
}
