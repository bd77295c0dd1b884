package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
	"github.com/vnkhanh/e-study-backend/services"
	"github.com/vnkhanh/e-study-backend/ws"
)

type GenerateQuizInput struct {
	ContextID  string `json:"context_id" binding:"required"`
	Count      int    `json:"count"`
	Title      string `json:"title"`
	Type       string `json:"type"`       // multiple_choice | single_choice | true_false | "" (trộn)
	Difficulty string `json:"difficulty"` // easy | medium | hard
	Language   string `json:"language"`
	Mode       string `json:"mode"` // ôn tập | kiểm tra
}

// GenerateQuiz sinh bộ câu hỏi trắc nghiệm từ một StudyContext đã cache.
func GenerateQuiz(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input GenerateQuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Usage.CheckGeneration(userUUID); err != nil {
		if err == services.ErrQuotaExceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không kiểm tra được hạn mức"})
		return
	}

	contextUUID, err := uuid.Parse(input.ContextID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "context_id không hợp lệ"})
		return
	}
	studyCtx, err := Contexts.GetByID(userUUID, contextUUID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tra cứu ngữ cảnh"})
		return
	}
	if studyCtx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy ngữ cảnh học tập"})
		return
	}

	count := input.Count
	if count <= 0 {
		count = 10
	}
	if count > 50 {
		count = 50
	}

	title := input.Title
	if title == "" {
		title = "Trắc nghiệm ôn tập"
	}

	params := services.QuizGenParams{
		Type:       models.QuestionType(input.Type),
		Difficulty: input.Difficulty,
		Language:   input.Language,
		Mode:       input.Mode,
	}

	questions, failures := Gen.GenerateQuestions(c.Request.Context(), studyCtx.Chunks, count, params)
	if len(questions) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không tạo được câu hỏi nào"})
		return
	}

	sourceID := sourceIDFromContext(studyCtx)
	quizSet := models.QuizSet{
		CreatedBy:   userUUID,
		SourceID:    sourceID,
		Title:       title,
		Slug:        slug.Make(title),
		Description: "Bộ câu hỏi trắc nghiệm sinh tự động từ nội dung tài liệu bằng Gemini",
		Difficulty:  defaultString(input.Difficulty, "easy"),
		Language:    defaultString(input.Language, "tiếng Việt"),
	}
	if err := db.Create(&quizSet).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo QuizSet mới"})
		return
	}

	saved := make([]models.QuizQuestion, 0, len(questions))
	for i, q := range questions {
		question := models.QuizQuestion{
			QuizSetID:      quizSet.ID,
			Type:           q.Type,
			Question:       q.Question,
			Options:        datatypes.NewJSONSlice(q.Options),
			CorrectAnswers: datatypes.NewJSONSlice(q.CorrectAnswers),
			Explanation:    q.Explanation,
			Position:       i,
		}
		if err := db.Create(&question).Error; err != nil {
			fmt.Printf("Lỗi khi tạo QuizQuestion: %v\n", err)
			continue
		}
		saved = append(saved, question)
	}

	status := "Hoàn thành"
	if len(saved) < count {
		status = "Hoàn thành một phần"
	}
	if studyCtx.SessionID != "" {
		ws.SendGenerationStatus(studyCtx.SessionID, ws.GenerationStatusUpdate{
			SetID:     quizSet.ID.String(),
			Kind:      "quiz",
			Status:    status,
			Generated: len(saved),
			Requested: count,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("Tạo quiz thành công (%d/%d câu hỏi)", len(saved), count),
		"quiz_set_id": quizSet.ID,
		"total":       len(saved),
		"requested":   count,
		"failures":    len(failures),
		"questions":   saved,
	})
}

// Lấy danh sách quiz set của user
func GetQuizSets(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var quizSets []models.QuizSet
	if err := db.
		Where("created_by = ?", userUUID).
		Order("created_at DESC").
		Find(&quizSets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách quiz sets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_sets": quizSets,
		"total":     len(quizSets),
	})
}

// Lấy danh sách câu hỏi trong 1 quiz set
func GetQuizQuestions(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	quizSetIDStr := c.Param("id")

	quizSetUUID, err := uuid.Parse(quizSetIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quiz_set_id không hợp lệ"})
		return
	}

	var quizSet models.QuizSet
	if err := db.First(&quizSet, "id = ?", quizSetUUID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy quiz set"})
		return
	}

	var questions []models.QuizQuestion
	err = db.
		Where("quiz_set_id = ?", quizSetUUID).
		Order("position ASC, created_at ASC").
		Find(&questions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể truy vấn câu hỏi"})
		return
	}

	if len(questions) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Bộ trắc nghiệm này chưa có câu hỏi nào"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_set":  quizSet,
		"questions": questions,
		"total":     len(questions),
	})
}

type StartAttemptInput struct {
	ForceNew       bool `json:"force_new"`
	TotalQuestions int  `json:"total_questions"`
}

// StartQuizAttempt bắt đầu hoặc tiếp tục làm một quiz set.
// Kết quả "locked" nghĩa là bộ đã hoàn thành và chưa được phép làm lại.
func StartQuizAttempt(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, setUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var input StartAttemptInput
	// body rỗng cũng hợp lệ
	_ = c.ShouldBindJSON(&input)

	svc := services.NewQuizAttemptService(db)
	result, err := svc.Start(userUUID, setUUID, input.ForceNew, input.TotalQuestions)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy quiz set"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể bắt đầu làm bài"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": result.Outcome,
		"attempt": result.Attempt,
	})
}

type UpdateAttemptInput struct {
	Answers        []models.AnswerRecord `json:"answers"`
	CurrentIndex   int                   `json:"current_index"`
	TotalQuestions int                   `json:"total_questions"`
}

// UpdateQuizAttempt lưu tiến độ client gửi lên (last write wins)
func UpdateQuizAttempt(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, attemptUUID, ok := parseUserAndParam(c, "attemptID")
	if !ok {
		return
	}

	var input UpdateAttemptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu gửi lên không hợp lệ"})
		return
	}

	svc := services.NewQuizAttemptService(db)
	attempt, err := svc.Update(userUUID, attemptUUID, input.Answers, input.CurrentIndex, input.TotalQuestions)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy lần làm bài"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật tiến độ"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

// CompleteQuizAttempt chốt bài và tính điểm
func CompleteQuizAttempt(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, attemptUUID, ok := parseUserAndParam(c, "attemptID")
	if !ok {
		return
	}

	var input UpdateAttemptInput
	_ = c.ShouldBindJSON(&input)

	svc := services.NewQuizAttemptService(db)
	attempt, err := svc.Complete(userUUID, attemptUUID, input.Answers, input.TotalQuestions)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy lần làm bài"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể hoàn thành bài làm"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Nộp quiz thành công",
		"score":   attempt.Score,
		"attempt": attempt,
	})
}

type SubmitQuizInput struct {
	Answers []services.SubmittedAnswer `json:"answers" binding:"required"`
}

// SubmitQuiz chấm trọn gói một bài nộp theo chỉ số câu hỏi (không qua
// luồng start/update/complete).
func SubmitQuiz(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, setUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var input SubmitQuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu gửi lên không hợp lệ"})
		return
	}
	if len(input.Answers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có câu trả lời nào"})
		return
	}

	svc := services.NewQuizAttemptService(db)
	attempt, err := svc.Submit(userUUID, setUUID, input.Answers)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy quiz set hoặc chưa có câu hỏi"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể chấm bài"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Nộp quiz thành công",
		"total":       attempt.TotalQuestions,
		"score":       attempt.Score,
		"attempt_id":  attempt.ID,
		"quiz_set_id": setUUID,
		"results":     attempt.Answers,
	})
}

// Lấy lịch sử làm quiz của user cho 1 bộ
func GetQuizAttemptsBySet(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, setUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var attempts []models.QuizSetAttempt
	err := db.
		Where("user_id = ? AND quiz_set_id = ?", userUUID, setUUID).
		Order("attempted_at DESC").
		Find(&attempts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy lịch sử làm quiz"})
		return
	}

	if len(attempts) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"attempts": []models.QuizSetAttempt{},
			"message":  "Bạn chưa làm bài trắc nghiệm này lần nào",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_set_id": setUUID,
		"attempts":    attempts,
		"total":       len(attempts),
	})
}

// Xóa 1 quiz set cùng câu hỏi và lịch sử làm bài
func DeleteQuizSet(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, setUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var quizSet models.QuizSet
	if err := db.Where("id = ? AND created_by = ?", setUUID, userUUID).First(&quizSet).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy quiz set"})
		return
	}

	if err := db.Where("quiz_set_id = ?", setUUID).Delete(&models.QuizQuestion{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa câu hỏi của quiz set"})
		return
	}
	if err := db.Where("quiz_set_id = ?", setUUID).Delete(&models.QuizSetAttempt{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa lịch sử làm bài"})
		return
	}
	if err := db.Delete(&quizSet).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa quiz set"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa quiz set"})
}

// ===== helpers dùng chung cho controllers =====

func parseUserAndParam(c *gin.Context, param string) (uuid.UUID, uuid.UUID, bool) {
	userIDStr := c.GetString("user_id")
	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return uuid.Nil, uuid.Nil, false
	}

	idUUID, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id không hợp lệ"})
		return uuid.Nil, uuid.Nil, false
	}
	return userUUID, idUUID, true
}

func sourceIDFromContext(studyCtx *models.StudyContext) *uuid.UUID {
	if studyCtx.Metadata == nil {
		return nil
	}
	raw, ok := studyCtx.Metadata["source_id"].(string)
	if !ok {
		return nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
