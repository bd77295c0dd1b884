package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
)

func seedQuizSet(t *testing.T, db *gorm.DB, userID uuid.UUID, numQuestions int) models.QuizSet {
	t.Helper()

	set := models.QuizSet{
		CreatedBy: userID,
		Title:     "Bộ trắc nghiệm test",
	}
	require.NoError(t, db.Create(&set).Error)

	for i := 0; i < numQuestions; i++ {
		q := models.QuizQuestion{
			QuizSetID:      set.ID,
			Type:           models.QuestionSingleChoice,
			Question:       fmt.Sprintf("Câu hỏi %d?", i),
			Options:        datatypes.NewJSONSlice([]string{"A", "B", "C", "D"}),
			CorrectAnswers: datatypes.NewJSONSlice([]string{"A"}),
			Position:       i,
		}
		require.NoError(t, db.Create(&q).Error)
	}
	return set
}

func answeredRecords(n, correct int) []models.AnswerRecord {
	out := make([]models.AnswerRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.AnswerRecord{
			QuestionIndex: i,
			Selected:      []string{"A"},
			Correct:       []string{"A"},
			IsCorrect:     i < correct,
		})
	}
	return out
}

func TestQuizStartCreatesAttempt(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	result, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, models.AttemptInProgress, result.Attempt.Status)
	assert.Equal(t, 5, result.Attempt.TotalQuestions)
	assert.Equal(t, 0, result.Attempt.CurrentIndex)
}

func TestQuizStartResumesInProgress(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	first, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	// Resume idempotent: gọi lại trả đúng attempt cũ
	second, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeResumed, second.Outcome)
	assert.Equal(t, first.Attempt.ID, second.Attempt.ID)
}

func TestQuizStartForceNewAbandonsOld(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	first, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	second, err := svc.Start(user.ID, set.ID, true, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, second.Outcome)
	assert.NotEqual(t, first.Attempt.ID, second.Attempt.ID)

	var old models.QuizSetAttempt
	require.NoError(t, db.First(&old, "id = ?", first.Attempt.ID).Error)
	assert.Equal(t, models.AttemptAbandoned, old.Status)
}

func TestQuizStartLockedAfterComplete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	first, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	_, err = svc.Complete(user.ID, first.Attempt.ID, answeredRecords(5, 5), 5)
	require.NoError(t, err)

	// Bộ đã hoàn thành, chưa có thêm câu -> lock
	locked, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLocked, locked.Outcome)
	assert.Equal(t, first.Attempt.ID, locked.Attempt.ID)

	// forceNew mở khóa
	fresh, err := svc.Start(user.ID, set.ID, true, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, fresh.Outcome)
}

func TestQuizStartUnlocksWhenSetGrew(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	first, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	_, err = svc.Complete(user.ID, first.Attempt.ID, answeredRecords(5, 5), 5)
	require.NoError(t, err)

	// Thêm câu mới vào bộ -> lần start sau tạo attempt mới dù không forceNew
	extra := models.QuizQuestion{
		QuizSetID:      set.ID,
		Type:           models.QuestionSingleChoice,
		Question:       "Câu bổ sung?",
		Options:        datatypes.NewJSONSlice([]string{"A", "B"}),
		CorrectAnswers: datatypes.NewJSONSlice([]string{"A"}),
		Position:       5,
	}
	require.NoError(t, db.Create(&extra).Error)

	result, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 6, result.Attempt.TotalQuestions)
}

func TestQuizStartNotOwner(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	other := models.User{FullName: "Khác", Email: "other@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&other).Error)
	set := seedQuizSet(t, db, user.ID, 3)
	svc := NewQuizAttemptService(db)

	_, err := svc.Start(other.ID, set.ID, false, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuizUpdateProgress(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	updated, err := svc.Update(user.ID, started.Attempt.ID, answeredRecords(2, 2), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentIndex)
	assert.Len(t, []models.AnswerRecord(updated.Answers), 2)
	// Update không chốt điểm
	assert.Equal(t, 0, updated.Score)
	assert.Equal(t, models.AttemptInProgress, updated.Status)
}

func TestQuizCompleteScoring(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 5)
	svc := NewQuizAttemptService(db)

	started, err := svc.Start(user.ID, set.ID, false, 0)
	require.NoError(t, err)

	// 4/5 đúng -> 80 điểm
	done, err := svc.Complete(user.ID, started.Attempt.ID, answeredRecords(5, 4), 5)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCompleted, done.Status)
	assert.Equal(t, 80, done.Score)
	assert.NotNil(t, done.CompletedAt)

	// Complete lần 2 là no-op, điểm giữ nguyên
	again, err := svc.Complete(user.ID, started.Attempt.ID, answeredRecords(5, 0), 5)
	require.NoError(t, err)
	assert.Equal(t, 80, again.Score)
}

func TestQuizSubmitGrading(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	set := models.QuizSet{CreatedBy: user.ID, Title: "Chấm bài"}
	require.NoError(t, db.Create(&set).Error)

	questions := []models.QuizQuestion{
		{
			QuizSetID:      set.ID,
			Type:           models.QuestionSingleChoice,
			Question:       "Thủ đô Việt Nam?",
			Options:        datatypes.NewJSONSlice([]string{"Hà Nội", "Huế"}),
			CorrectAnswers: datatypes.NewJSONSlice([]string{"Hà Nội"}),
			Position:       0,
		},
		{
			QuizSetID:      set.ID,
			Type:           models.QuestionMultipleChoice,
			Question:       "Ngôn ngữ biên dịch?",
			Options:        datatypes.NewJSONSlice([]string{"Go", "Python", "Rust"}),
			CorrectAnswers: datatypes.NewJSONSlice([]string{"Go", "Rust"}),
			Position:       1,
		},
	}
	for i := range questions {
		require.NoError(t, db.Create(&questions[i]).Error)
	}

	svc := NewQuizAttemptService(db)
	attempt, err := svc.Submit(user.ID, set.ID, []SubmittedAnswer{
		{QuestionIndex: 0, Selected: []string{"hà nội "}}, // so sánh bỏ hoa thường + trim
		{QuestionIndex: 1, Selected: []string{"Rust", "Go"}}, // không phụ thuộc thứ tự
	})
	require.NoError(t, err)

	assert.Equal(t, models.AttemptCompleted, attempt.Status)
	assert.Equal(t, 100, attempt.Score)
	assert.Equal(t, 2, attempt.TotalQuestions)
}

func TestQuizSubmitPartial(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	set := seedQuizSet(t, db, user.ID, 4)
	svc := NewQuizAttemptService(db)

	// Chỉ trả lời 1 câu đúng trong 4 -> 25
	attempt, err := svc.Submit(user.ID, set.ID, []SubmittedAnswer{
		{QuestionIndex: 0, Selected: []string{"A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 25, attempt.Score)
}

func TestAnswersMatch(t *testing.T) {
	// Một đáp án: scalar, bỏ hoa thường + trim
	assert.True(t, answersMatch([]string{" hà nội "}, []string{"Hà Nội"}))
	assert.False(t, answersMatch([]string{"Huế"}, []string{"Hà Nội"}))
	assert.False(t, answersMatch(nil, []string{"Hà Nội"}))

	// Nhiều đáp án: so theo tập hợp, phải đủ số lượng
	assert.True(t, answersMatch([]string{"B", "A"}, []string{"A", "B"}))
	assert.False(t, answersMatch([]string{"A"}, []string{"A", "B"}))
	assert.False(t, answersMatch([]string{"A", "C"}, []string{"A", "B"}))

	// Không có đáp án đúng -> không bao giờ match
	assert.False(t, answersMatch([]string{"A"}, nil))
}

func TestScorePercentRounding(t *testing.T) {
	assert.Equal(t, 80, scorePercent(4, 5))
	assert.Equal(t, 33, scorePercent(1, 3))
	assert.Equal(t, 67, scorePercent(2, 3))
	assert.Equal(t, 100, scorePercent(5, 5))
	assert.Equal(t, 0, scorePercent(0, 5))
	assert.Equal(t, 0, scorePercent(1, 0))
}
