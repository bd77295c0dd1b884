package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/e-study-backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.SourceMaterial{},
		&models.StudyContext{},
		&models.QuizSet{},
		&models.QuizQuestion{},
		&models.QuizSetAttempt{},
		&models.FlashcardSet{},
		&models.Flashcard{},
		&models.FlashcardAttempt{},
		&models.Note{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()

	user := models.User{
		FullName: "Người Học Test",
		Email:    "test@example.com",
		Password: "hashed",
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
