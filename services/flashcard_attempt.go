package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
)

var ErrInvalidRating = errors.New("mức đánh giá không hợp lệ")

// Khoảng cách ôn lại theo mức đánh giá (spaced repetition per-card)
var ratingOffsets = map[models.CardRating]time.Duration{
	models.RatingAgain: 60 * time.Second,
	models.RatingHard:  8 * time.Minute,
	models.RatingGood:  15 * time.Minute,
	models.RatingEasy:  48 * time.Hour,
}

// Cooldown cấp bộ thẻ sau khi hoàn thành trọn vẹn
const deckCooldown = 4 * 24 * time.Hour

type FlashcardStartResult struct {
	Outcome StartOutcome
	Attempt *models.FlashcardAttempt
	// NextReviewAt chỉ có khi Outcome == OutcomeCooldown: thời điểm sớm nhất
	// có thẻ tới hạn ôn lại.
	NextReviewAt *time.Time
}

// FlashcardAttemptService quản lý vòng đời ôn tập một bộ flashcard, cùng
// bất biến 1 attempt in_progress mỗi (user, bộ thẻ) như quiz, nhưng chính
// sách mở lại khác: theo lịch spaced repetition (cooldown) thay vì lock.
type FlashcardAttemptService struct {
	db *gorm.DB
}

func NewFlashcardAttemptService(db *gorm.DB) *FlashcardAttemptService {
	return &FlashcardAttemptService{db: db}
}

// Start bắt đầu (hoặc tiếp tục) ôn một bộ thẻ.
//   - Có attempt in_progress và không forceNew: trả lại nguyên vẹn.
//   - forceNew: abandon attempt đang dở.
//   - Không forceNew và attempt completed gần nhất chưa có thẻ nào tới hạn:
//     trả Cooldown kèm thời điểm ôn sớm nhất, không tạo attempt.
//   - Còn lại: tạo attempt mới, seed trạng thái từng thẻ từ attempt completed
//     trước đó (giữ lịch ôn), thẻ mới mặc định not_studied.
func (s *FlashcardAttemptService) Start(userID, setID uuid.UUID, forceNew bool, totalCards int) (*FlashcardStartResult, error) {
	var set models.FlashcardSet
	if err := s.db.Where("id = ? AND created_by = ?", setID, userID).First(&set).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var cardCount int64
	if err := s.db.Model(&models.Flashcard{}).
		Where("flashcard_set_id = ?", setID).
		Count(&cardCount).Error; err != nil {
		return nil, err
	}

	var inProgress models.FlashcardAttempt
	err := s.db.
		Where("user_id = ? AND flashcard_set_id = ? AND status = ?", userID, setID, models.AttemptInProgress).
		Order("attempted_at DESC").
		First(&inProgress).Error
	if err == nil {
		if !forceNew {
			return &FlashcardStartResult{Outcome: OutcomeResumed, Attempt: &inProgress}, nil
		}
		inProgress.Status = models.AttemptAbandoned
		if err := s.db.Save(&inProgress).Error; err != nil {
			return nil, err
		}
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var previous *models.FlashcardAttempt
	var completed models.FlashcardAttempt
	err = s.db.
		Where("user_id = ? AND flashcard_set_id = ? AND status = ?", userID, setID, models.AttemptCompleted).
		Order("attempted_at DESC").
		First(&completed).Error
	if err == nil {
		previous = &completed
		if !forceNew {
			now := time.Now()
			if !hasDueCard(completed.Cards, now) {
				next := soonestReview(completed.Cards, completed.NextReviewAt)
				return &FlashcardStartResult{Outcome: OutcomeCooldown, Attempt: &completed, NextReviewAt: next}, nil
			}
		}
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	total := totalCards
	if total <= 0 {
		total = int(cardCount)
	}

	cards := make([]models.CardState, 0, total)
	for i := 0; i < total; i++ {
		state := models.CardState{Index: i, Status: models.CardNotStudied}
		if previous != nil {
			if prev := findCardState(previous.Cards, i); prev != nil {
				state = *prev
			}
		}
		cards = append(cards, state)
	}

	attempt := models.FlashcardAttempt{
		UserID:         userID,
		FlashcardSetID: setID,
		Status:         models.AttemptInProgress,
		TotalCards:     total,
		CardsSeen:      countSeen(cards),
		Cards:          datatypes.NewJSONSlice(cards),
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		return nil, err
	}
	return &FlashcardStartResult{Outcome: OutcomeCreated, Attempt: &attempt}, nil
}

// Rate ghi nhận đánh giá một thẻ: chuyển sang to_review và đặt lịch ôn lại
// theo mức đánh giá (again 60s, hard 8 phút, good 15 phút, easy 2 ngày).
func (s *FlashcardAttemptService) Rate(userID, attemptID uuid.UUID, cardIndex int, rating models.CardRating) (*models.FlashcardAttempt, error) {
	offset, ok := ratingOffsets[rating]
	if !ok {
		return nil, ErrInvalidRating
	}
	if cardIndex < 0 {
		return nil, ErrInvalidID
	}

	attempt, err := s.loadAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	next := now.Add(offset)
	ratingCopy := rating

	cards := []models.CardState(attempt.Cards)
	found := false
	for i := range cards {
		if cards[i].Index == cardIndex {
			cards[i].Status = models.CardToReview
			cards[i].LastReviewedAt = &now
			cards[i].NextReviewAt = &next
			cards[i].LastRating = &ratingCopy
			found = true
			break
		}
	}
	if !found {
		cards = append(cards, models.CardState{
			Index:          cardIndex,
			Status:         models.CardToReview,
			LastReviewedAt: &now,
			NextReviewAt:   &next,
			LastRating:     &ratingCopy,
		})
	}

	attempt.Cards = datatypes.NewJSONSlice(cards)
	attempt.CardsSeen = countSeen(cards)
	if err := s.db.Save(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

// Complete đánh dấu hoàn thành cả bộ và đặt cooldown cấp attempt 4 ngày
// (tách biệt với lịch ôn từng thẻ). No-op nếu đã completed.
func (s *FlashcardAttemptService) Complete(userID, attemptID uuid.UUID) (*models.FlashcardAttempt, error) {
	attempt, err := s.loadAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptCompleted {
		return attempt, nil
	}

	now := time.Now()
	next := now.Add(deckCooldown)
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.NextReviewAt = &next
	if err := s.db.Save(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *FlashcardAttemptService) loadAttempt(userID, attemptID uuid.UUID) (*models.FlashcardAttempt, error) {
	var attempt models.FlashcardAttempt
	err := s.db.Where("id = ? AND user_id = ?", attemptID, userID).First(&attempt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Thẻ "tới hạn" = chưa có lịch ôn hoặc lịch đã qua
func hasDueCard(cards []models.CardState, now time.Time) bool {
	if len(cards) == 0 {
		return true
	}
	for _, c := range cards {
		if c.NextReviewAt == nil || !c.NextReviewAt.After(now) {
			return true
		}
	}
	return false
}

// soonestReview tìm lịch ôn gần nhất giữa các thẻ, fallback về lịch cấp attempt.
func soonestReview(cards []models.CardState, fallback *time.Time) *time.Time {
	var soonest *time.Time
	for _, c := range cards {
		if c.NextReviewAt == nil {
			continue
		}
		if soonest == nil || c.NextReviewAt.Before(*soonest) {
			t := *c.NextReviewAt
			soonest = &t
		}
	}
	if soonest == nil {
		return fallback
	}
	return soonest
}

func findCardState(cards []models.CardState, index int) *models.CardState {
	for i := range cards {
		if cards[i].Index == index {
			return &cards[i]
		}
	}
	return nil
}

func countSeen(cards []models.CardState) int {
	seen := 0
	for _, c := range cards {
		if c.Status != models.CardNotStudied {
			seen++
		}
	}
	return seen
}
