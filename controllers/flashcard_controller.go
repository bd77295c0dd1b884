package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
	"github.com/vnkhanh/e-study-backend/services"
	"github.com/vnkhanh/e-study-backend/ws"
)

type GenerateFlashcardsInput struct {
	ContextID  string `json:"context_id" binding:"required"`
	Count      int    `json:"count"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Language   string `json:"language"`
}

// GenerateFlashcards sinh bộ flashcard từ một StudyContext đã cache.
func GenerateFlashcards(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input GenerateFlashcardsInput
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
		count = 15
	}
	if count > 50 {
		count = 50
	}

	title := input.Title
	if title == "" {
		title = "Flashcard ôn tập"
	}

	params := services.CardGenParams{
		Difficulty: input.Difficulty,
		Language:   input.Language,
	}

	cards, failures := Gen.GenerateCards(c.Request.Context(), studyCtx.Chunks, count, params)
	if len(cards) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không tạo được flashcard nào"})
		return
	}

	sourceID := sourceIDFromContext(studyCtx)
	set := models.FlashcardSet{
		CreatedBy:   userUUID,
		SourceID:    sourceID,
		Title:       title,
		Slug:        slug.Make(title),
		Description: "Bộ flashcard sinh tự động từ nội dung tài liệu bằng Gemini",
		Difficulty:  defaultString(input.Difficulty, "easy"),
		Language:    defaultString(input.Language, "tiếng Việt"),
	}
	if err := db.Create(&set).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo bộ flashcard mới"})
		return
	}

	saved := make([]models.Flashcard, 0, len(cards))
	for i, card := range cards {
		fc := models.Flashcard{
			FlashcardSetID: set.ID,
			FrontText:      card.Front,
			BackText:       card.Back,
			Explanation:    card.Explanation,
			Position:       i,
		}
		if err := db.Create(&fc).Error; err != nil {
			fmt.Printf("Lỗi khi tạo Flashcard: %v\n", err)
			continue
		}
		saved = append(saved, fc)
	}

	status := "Hoàn thành"
	if len(saved) < count {
		status = "Hoàn thành một phần"
	}
	if studyCtx.SessionID != "" {
		ws.SendGenerationStatus(studyCtx.SessionID, ws.GenerationStatusUpdate{
			SetID:     set.ID.String(),
			Kind:      "flashcard",
			Status:    status,
			Generated: len(saved),
			Requested: count,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          fmt.Sprintf("Tạo flashcard thành công (%d/%d thẻ)", len(saved), count),
		"flashcard_set_id": set.ID,
		"total":            len(saved),
		"requested":        count,
		"failures":         len(failures),
		"cards":            saved,
	})
}

// Lấy danh sách bộ flashcard của user
func GetFlashcardSets(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var sets []models.FlashcardSet
	if err := db.
		Where("created_by = ?", userUUID).
		Order("created_at DESC").
		Find(&sets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách bộ flashcard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flashcard_sets": sets,
		"total":          len(sets),
	})
}

// Lấy danh sách thẻ trong 1 bộ
func GetFlashcards(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	setIDStr := c.Param("id")

	setUUID, err := uuid.Parse(setIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flashcard_set_id không hợp lệ"})
		return
	}

	var set models.FlashcardSet
	if err := db.First(&set, "id = ?", setUUID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bộ flashcard"})
		return
	}

	var cards []models.Flashcard
	err = db.
		Where("flashcard_set_id = ?", setUUID).
		Order("position ASC, created_at ASC").
		Find(&cards).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể truy vấn flashcard"})
		return
	}

	if len(cards) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Bộ này chưa có thẻ nào"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flashcard_set": set,
		"cards":         cards,
		"total":         len(cards),
	})
}

// Xóa 1 bộ flashcard cùng thẻ và lịch sử ôn tập
func DeleteFlashcardSet(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, setUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var set models.FlashcardSet
	if err := db.Where("id = ? AND created_by = ?", setUUID, userUUID).First(&set).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bộ flashcard"})
		return
	}

	if err := db.Where("flashcard_set_id = ?", setUUID).Delete(&models.Flashcard{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa thẻ của bộ flashcard"})
		return
	}
	if err := db.Where("flashcard_set_id = ?", setUUID).Delete(&models.FlashcardAttempt{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa lịch sử ôn tập"})
		return
	}
	if err := db.Delete(&set).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa bộ flashcard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa bộ flashcard"})
}

type StartFlashcardInput struct {
	ForceNew   bool `json:"force_new"`
	TotalCards int  `json:"total_cards"`
}

// StartFlashcardAttempt bắt đầu hoặc tiếp tục ôn một bộ thẻ.
// Kết quả "cooldown" kèm next_review_at nghĩa là chưa có thẻ nào tới hạn.
func StartFlashcardAttempt(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, setUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var input StartFlashcardInput
	_ = c.ShouldBindJSON(&input)

	svc := services.NewFlashcardAttemptService(db)
	result, err := svc.Start(userUUID, setUUID, input.ForceNew, input.TotalCards)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bộ flashcard"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể bắt đầu ôn tập"})
		return
	}

	resp := gin.H{
		"outcome": result.Outcome,
		"attempt": result.Attempt,
	}
	if result.NextReviewAt != nil {
		resp["next_review_at"] = result.NextReviewAt
	}
	c.JSON(http.StatusOK, resp)
}

type RateCardInput struct {
	CardIndex int    `json:"card_index"`
	Rating    string `json:"rating" binding:"required"` // again | hard | good | easy
}

// RateFlashcard ghi nhận đánh giá một thẻ và đặt lịch ôn lại
func RateFlashcard(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, attemptUUID, ok := parseUserAndParam(c, "attemptID")
	if !ok {
		return
	}

	var input RateCardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu gửi lên không hợp lệ"})
		return
	}

	svc := services.NewFlashcardAttemptService(db)
	attempt, err := svc.Rate(userUUID, attemptUUID, input.CardIndex, models.CardRating(input.Rating))
	if err != nil {
		switch err {
		case services.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy lần ôn tập"})
		case services.ErrInvalidRating:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Mức đánh giá không hợp lệ"})
		case services.ErrInvalidID:
			c.JSON(http.StatusBadRequest, gin.H{"error": "card_index không hợp lệ"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể ghi nhận đánh giá"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

// CompleteFlashcardAttempt đánh dấu hoàn thành cả bộ (cooldown 4 ngày)
func CompleteFlashcardAttempt(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, attemptUUID, ok := parseUserAndParam(c, "attemptID")
	if !ok {
		return
	}

	svc := services.NewFlashcardAttemptService(db)
	attempt, err := svc.Complete(userUUID, attemptUUID)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy lần ôn tập"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể hoàn thành ôn tập"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Hoàn thành bộ flashcard",
		"attempt": attempt,
	})
}
