package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
)

var (
	ErrNotFound  = errors.New("không tìm thấy dữ liệu")
	ErrInvalidID = errors.New("id không hợp lệ")
)

// Kết quả của thao tác start: Locked và Cooldown là kết quả thành công
// (để UI hiển thị phù hợp), không phải lỗi.
type StartOutcome string

const (
	OutcomeCreated  StartOutcome = "created"
	OutcomeResumed  StartOutcome = "resumed"
	OutcomeLocked   StartOutcome = "locked"   // quiz: đã hoàn thành, chưa được làm lại
	OutcomeCooldown StartOutcome = "cooldown" // flashcard: chưa tới hạn ôn lại
)

type QuizStartResult struct {
	Outcome StartOutcome
	Attempt *models.QuizSetAttempt
}

// QuizAttemptService quản lý vòng đời một lần làm quiz:
// in_progress -> completed | abandoned. Bất biến: mỗi (user, quiz set)
// chỉ có tối đa 1 attempt in_progress (do service đảm bảo, không phải DB).
type QuizAttemptService struct {
	db *gorm.DB
}

func NewQuizAttemptService(db *gorm.DB) *QuizAttemptService {
	return &QuizAttemptService{db: db}
}

// Start bắt đầu (hoặc tiếp tục) làm một quiz set.
//   - Có attempt in_progress: nếu không forceNew và bộ câu hỏi chưa tăng thêm
//     thì trả lại attempt cũ (resume idempotent); ngược lại abandon nó.
//   - Có attempt completed gần nhất, không forceNew, bộ chưa tăng: trả Locked
//     kèm attempt đó, không tạo mới.
//   - Còn lại: tạo attempt mới.
func (s *QuizAttemptService) Start(userID, setID uuid.UUID, forceNew bool, totalQuestions int) (*QuizStartResult, error) {
	var set models.QuizSet
	if err := s.db.Where("id = ? AND created_by = ?", setID, userID).First(&set).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var questionCount int64
	if err := s.db.Model(&models.QuizQuestion{}).
		Where("quiz_set_id = ?", setID).
		Count(&questionCount).Error; err != nil {
		return nil, err
	}

	var inProgress models.QuizSetAttempt
	err := s.db.
		Where("user_id = ? AND quiz_set_id = ? AND status = ?", userID, setID, models.AttemptInProgress).
		Order("attempted_at DESC").
		First(&inProgress).Error
	if err == nil {
		setGrew := inProgress.TotalQuestions > 0 && int(questionCount) > inProgress.TotalQuestions
		if !forceNew && !setGrew {
			return &QuizStartResult{Outcome: OutcomeResumed, Attempt: &inProgress}, nil
		}
		inProgress.Status = models.AttemptAbandoned
		if err := s.db.Save(&inProgress).Error; err != nil {
			return nil, err
		}
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if !forceNew {
		var completed models.QuizSetAttempt
		err := s.db.
			Where("user_id = ? AND quiz_set_id = ? AND status = ?", userID, setID, models.AttemptCompleted).
			Order("attempted_at DESC").
			First(&completed).Error
		if err == nil {
			setGrew := completed.TotalQuestions > 0 && int(questionCount) > completed.TotalQuestions
			if !setGrew {
				// Bộ coi như đã xong: chỉ làm lại khi forceNew hoặc bộ có thêm câu
				return &QuizStartResult{Outcome: OutcomeLocked, Attempt: &completed}, nil
			}
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	total := totalQuestions
	if total <= 0 {
		total = int(questionCount)
	}
	attempt := models.QuizSetAttempt{
		UserID:         userID,
		QuizSetID:      setID,
		Status:         models.AttemptInProgress,
		CurrentIndex:   0,
		TotalQuestions: total,
		Answers:        datatypes.NewJSONSlice([]models.AnswerRecord{}),
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		return nil, err
	}
	return &QuizStartResult{Outcome: OutcomeCreated, Attempt: &attempt}, nil
}

// Update ghi đè tiến độ do client gửi lên (last write wins). Attempt đã
// completed thì không làm gì và vẫn trả thành công. Score KHÔNG được tính
// lại ở đây, chỉ complete mới chốt điểm.
func (s *QuizAttemptService) Update(userID, attemptID uuid.UUID, answers []models.AnswerRecord, currentIndex, totalQuestions int) (*models.QuizSetAttempt, error) {
	attempt, err := s.loadAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptCompleted {
		return attempt, nil
	}

	attempt.Answers = datatypes.NewJSONSlice(answers)
	attempt.CurrentIndex = currentIndex
	if totalQuestions > 0 {
		attempt.TotalQuestions = totalQuestions
	}
	if err := s.db.Save(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

// Complete chốt một lần làm bài: tính lại điểm từ answers rồi đánh dấu
// completed. Gọi lại trên attempt đã completed là no-op thành công.
func (s *QuizAttemptService) Complete(userID, attemptID uuid.UUID, answers []models.AnswerRecord, totalQuestions int) (*models.QuizSetAttempt, error) {
	attempt, err := s.loadAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptCompleted {
		return attempt, nil
	}

	if len(answers) > 0 {
		attempt.Answers = datatypes.NewJSONSlice(answers)
	}
	if totalQuestions > 0 {
		attempt.TotalQuestions = totalQuestions
	}
	if attempt.TotalQuestions <= 0 {
		attempt.TotalQuestions = len(attempt.Answers)
	}

	correct := 0
	for _, a := range attempt.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	attempt.Score = scorePercent(correct, attempt.TotalQuestions)
	attempt.Status = models.AttemptCompleted
	now := time.Now()
	attempt.CompletedAt = &now

	if err := s.db.Save(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmittedAnswer là một câu trả lời nộp lên để chấm độc lập.
type SubmittedAnswer struct {
	QuestionIndex int      `json:"question_index"`
	Selected      []string `json:"selected"`
}

// Submit chấm một bài nộp trọn gói (không tham gia luồng resume/lock ở trên):
// so khớp đáp án theo tập hợp (không phụ thuộc thứ tự) với câu nhiều đáp án,
// so sánh scalar bỏ hoa thường/khoảng trắng với câu một đáp án, rồi tạo luôn
// một attempt completed.
func (s *QuizAttemptService) Submit(userID, setID uuid.UUID, answers []SubmittedAnswer) (*models.QuizSetAttempt, error) {
	var set models.QuizSet
	if err := s.db.Where("id = ? AND created_by = ?", setID, userID).First(&set).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var questions []models.QuizQuestion
	if err := s.db.
		Where("quiz_set_id = ?", setID).
		Order("position ASC, created_at ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNotFound
	}

	records := make([]models.AnswerRecord, 0, len(answers))
	correct := 0
	for _, ans := range answers {
		record := models.AnswerRecord{
			QuestionIndex: ans.QuestionIndex,
			Selected:      ans.Selected,
		}
		if ans.QuestionIndex >= 0 && ans.QuestionIndex < len(questions) {
			q := questions[ans.QuestionIndex]
			record.Correct = []string(q.CorrectAnswers)
			record.IsCorrect = answersMatch(ans.Selected, q.CorrectAnswers)
		}
		if record.IsCorrect {
			correct++
		}
		records = append(records, record)
	}

	now := time.Now()
	attempt := models.QuizSetAttempt{
		UserID:         userID,
		QuizSetID:      setID,
		Status:         models.AttemptCompleted,
		CurrentIndex:   len(questions),
		TotalQuestions: len(questions),
		Answers:        datatypes.NewJSONSlice(records),
		Score:          scorePercent(correct, len(questions)),
		CompletedAt:    &now,
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (s *QuizAttemptService) loadAttempt(userID, attemptID uuid.UUID) (*models.QuizSetAttempt, error) {
	var attempt models.QuizSetAttempt
	err := s.db.Where("id = ? AND user_id = ?", attemptID, userID).First(&attempt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// answersMatch: câu nhiều đáp án so theo tập hợp (đủ số lượng và mọi giá trị
// đã chuẩn hoá phải nằm trong tập đáp án đúng); câu một đáp án so sánh scalar
// sau khi trim + bỏ phân biệt hoa thường.
func answersMatch(selected, correct []string) bool {
	if len(correct) == 0 {
		return false
	}
	if len(correct) > 1 {
		if len(selected) != len(correct) {
			return false
		}
		set := make(map[string]bool, len(correct))
		for _, c := range correct {
			set[normalizeAnswerText(c)] = true
		}
		for _, sel := range selected {
			if !set[normalizeAnswerText(sel)] {
				return false
			}
		}
		return true
	}
	return len(selected) == 1 && normalizeAnswerText(selected[0]) == normalizeAnswerText(correct[0])
}

func normalizeAnswerText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// scorePercent quy ra điểm nguyên 0..100, làm tròn nửa lên (4/5 đúng -> 80).
func scorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*100 + total/2) / total
}
