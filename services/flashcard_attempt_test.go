package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
)

func seedFlashcardSet(t *testing.T, db *gorm.DB, userID uuid.UUID, numCards int) models.FlashcardSet {
	t.Helper()

	set := models.FlashcardSet{
		CreatedBy: userID,
		Title:     "Bộ thẻ test",
	}
	require.NoError(t, db.Create(&set).Error)

	for i := 0; i < numCards; i++ {
		card := models.Flashcard{
			FlashcardSetID: set.ID,
			FrontText:      fmt.Sprintf("Mặt trước %d?", i),
			BackText:       fmt.Sprintf("Mặt sau %d", i),
			Position:       i,
		}
		require.NoError(t, db.Create(&card).Error)
	}
	return set
}

func TestFlashcardStartCreatesAttempt(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 4)
	svc := NewFlashcardAttemptService(db)

	result, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 4, result.Attempt.TotalCards)
	assert.Equal(t, 0, result.Attempt.CardsSeen)

	cards := []models.CardState(result.Attempt.Cards)
	require.Len(t, cards, 4)
	for i, c := range cards {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, models.CardNotStudied, c.Status)
	}
}

func TestFlashcardStartResumesInProgress(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 4)
	svc := NewFlashcardAttemptService(db)

	first, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	second, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeResumed, second.Outcome)
	assert.Equal(t, first.Attempt.ID, second.Attempt.ID)
}

func TestFlashcardRateSchedulesReview(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 3)
	svc := NewFlashcardAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	cases := []struct {
		rating models.CardRating
		offset time.Duration
	}{
		{models.RatingAgain, 60 * time.Second},
		{models.RatingHard, 8 * time.Minute},
		{models.RatingGood, 15 * time.Minute},
	}

	for i, tc := range cases {
		attempt, err := svc.Rate(user.ID, started.Attempt.ID, i, tc.rating)
		require.NoError(t, err)

		cards := []models.CardState(attempt.Cards)
		state := cards[i]
		assert.Equal(t, models.CardToReview, state.Status)
		require.NotNil(t, state.NextReviewAt)
		assert.WithinDuration(t, time.Now().Add(tc.offset), *state.NextReviewAt, 5*time.Second)
		require.NotNil(t, state.LastRating)
		assert.Equal(t, tc.rating, *state.LastRating)
	}

	// CardsSeen tăng theo số thẻ đã ôn
	final, err := svc.Rate(user.ID, started.Attempt.ID, 0, models.RatingEasy)
	require.NoError(t, err)
	assert.Equal(t, 3, final.CardsSeen)

	// easy -> 2 ngày
	cards := []models.CardState(final.Cards)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), *cards[0].NextReviewAt, 5*time.Second)
}

func TestFlashcardRateInvalid(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 2)
	svc := NewFlashcardAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	_, err = svc.Rate(user.ID, started.Attempt.ID, 0, models.CardRating("tuyệt vời"))
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.Rate(user.ID, started.Attempt.ID, -1, models.RatingGood)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFlashcardCompleteSetsDeckCooldown(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 2)
	svc := NewFlashcardAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	done, err := svc.Complete(user.ID, started.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCompleted, done.Status)
	require.NotNil(t, done.NextReviewAt)
	assert.WithinDuration(t, time.Now().Add(4*24*time.Hour), *done.NextReviewAt, 5*time.Second)

	// Complete lần 2 là no-op
	again, err := svc.Complete(user.ID, started.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, done.NextReviewAt.Unix(), again.NextReviewAt.Unix())
}

func TestFlashcardStartCooldownWhenNoCardDue(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 2)
	svc := NewFlashcardAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	// Ôn hết thẻ với easy (2 ngày) rồi hoàn thành
	_, err = svc.Rate(user.ID, started.Attempt.ID, 0, models.RatingEasy)
	require.NoError(t, err)
	_, err = svc.Rate(user.ID, started.Attempt.ID, 1, models.RatingEasy)
	require.NoError(t, err)
	_, err = svc.Complete(user.ID, started.Attempt.ID)
	require.NoError(t, err)

	// Chưa thẻ nào tới hạn -> cooldown, không tạo attempt mới
	result, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCooldown, result.Outcome)
	require.NotNil(t, result.NextReviewAt)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), *result.NextReviewAt, 10*time.Second)

	var count int64
	require.NoError(t, db.Model(&models.FlashcardAttempt{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// forceNew bỏ qua cooldown
	fresh, err := svc.Start(user.ID, set.ID, true, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, fresh.Outcome)
}

func TestFlashcardStartSeedsFromPreviousAttempt(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedFlashcardSet(t, db, user.ID, 3)
	svc := NewFlashcardAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	// Thẻ 0 đánh giá again (60s) -> sẽ tới hạn ngay sau đó
	_, err = svc.Rate(user.ID, started.Attempt.ID, 0, models.RatingAgain)
	require.NoError(t, err)
	_, err = svc.Complete(user.ID, started.Attempt.ID)
	require.NoError(t, err)

	// Ép lịch ôn của thẻ 0 về quá khứ để coi như đã tới hạn
	var completed models.FlashcardAttempt
	require.NoError(t, db.First(&completed, "id = ?", started.Attempt.ID).Error)
	cards := []models.CardState(completed.Cards)
	past := time.Now().Add(-time.Minute)
	cards[0].NextReviewAt = &past
	completed.Cards = datatypes.NewJSONSlice(cards)
	require.NoError(t, db.Save(&completed).Error)

	// Có thẻ tới hạn -> tạo attempt mới, giữ lại trạng thái thẻ cũ
	result, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)

	seeded := []models.CardState(result.Attempt.Cards)
	require.Len(t, seeded, 3)
	assert.Equal(t, models.CardToReview, seeded[0].Status)
	require.NotNil(t, seeded[0].LastRating)
	assert.Equal(t, models.RatingAgain, *seeded[0].LastRating)
	// Thẻ chưa ôn vẫn not_studied
	assert.Equal(t, models.CardNotStudied, seeded[1].Status)
	assert.Equal(t, 1, result.Attempt.CardsSeen)
}

func TestFlashcardStartNotOwner(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	other := models.User{FullName: "Khác", Email: "other@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&other).Error)
	set := seedFlashcardSet(t, db, user.ID, 2)
	svc := NewFlashcardAttemptService(db)

	_, err := svc.Start(other.ID, set.ID, false, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasDueCard(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	// Không có trạng thái thẻ nào -> coi như có thẻ tới hạn
	assert.True(t, hasDueCard(nil, now))

	// Thẻ chưa có lịch ôn -> tới hạn
	assert.True(t, hasDueCard([]models.CardState{{Index: 0}}, now))

	// Mọi thẻ đều có lịch trong tương lai -> chưa tới hạn
	assert.False(t, hasDueCard([]models.CardState{
		{Index: 0, NextReviewAt: &future},
	}, now))

	// Một thẻ quá hạn là đủ
	assert.True(t, hasDueCard([]models.CardState{
		{Index: 0, NextReviewAt: &future},
		{Index: 1, NextReviewAt: &past},
	}, now))
}
