package services

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
)

var ErrQuotaExceeded = errors.New("đã vượt hạn mức sinh nội dung trong ngày")

// UsageChecker kiểm tra hạn mức trước khi cho phép sinh nội dung mới.
type UsageChecker interface {
	CheckGeneration(userID uuid.UUID) error
}

// DailyUsageChecker giới hạn số bộ quiz + flashcard tạo trong ngày.
// Hạn mức đọc từ env GEN_DAILY_LIMIT, mặc định 20, <=0 nghĩa là không giới hạn.
type DailyUsageChecker struct {
	db    *gorm.DB
	limit int
}

func NewDailyUsageChecker(db *gorm.DB) *DailyUsageChecker {
	limit := 20
	if v := os.Getenv("GEN_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return &DailyUsageChecker{db: db, limit: limit}
}

func (c *DailyUsageChecker) CheckGeneration(userID uuid.UUID) error {
	if c.limit <= 0 {
		return nil
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)

	var quizCount, cardCount int64
	if err := c.db.Model(&models.QuizSet{}).
		Where("created_by = ? AND created_at >= ?", userID, startOfDay).
		Count(&quizCount).Error; err != nil {
		return err
	}
	if err := c.db.Model(&models.FlashcardSet{}).
		Where("created_by = ? AND created_at >= ?", userID, startOfDay).
		Count(&cardCount).Error; err != nil {
		return err
	}

	if int(quizCount+cardCount) >= c.limit {
		return ErrQuotaExceeded
	}
	return nil
}
