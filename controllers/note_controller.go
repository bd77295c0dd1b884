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
	"github.com/vnkhanh/e-study-backend/utils"
)

type GenerateNoteInput struct {
	ContextID string `json:"context_id" binding:"required"`
	Title     string `json:"title"`
	Language  string `json:"language"`
}

// GenerateNote sinh ghi chú markdown từ một StudyContext đã cache.
func GenerateNote(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input GenerateNoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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

	content, err := services.SummarizeForNote(c.Request.Context(), AI, studyCtx.Chunks, input.Language)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể sinh ghi chú", "details": err.Error()})
		return
	}
	if content == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ghi chú sinh ra rỗng"})
		return
	}

	title := input.Title
	if title == "" {
		title = "Ghi chú ôn tập"
	}

	note := models.Note{
		UserID:    userUUID,
		ContextID: &studyCtx.ID,
		Title:     title,
		Slug:      slug.Make(title),
		Content:   content,
	}
	if err := db.Create(&note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lưu ghi chú"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tạo ghi chú thành công",
		"note":    note,
	})
}

// Lấy danh sách ghi chú của user
func GetNotes(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var notes []models.Note
	if err := db.
		Where("user_id = ?", userUUID).
		Order("updated_at DESC").
		Find(&notes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách ghi chú"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notes": notes,
		"total": len(notes),
	})
}

func GetNoteDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, noteUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var note models.Note
	if err := db.First(&note, "id = ? AND user_id = ?", noteUUID, userUUID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy ghi chú"})
		return
	}
	c.JSON(http.StatusOK, note)
}

type UpdateNoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func UpdateNote(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, noteUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var input UpdateNoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu gửi lên không hợp lệ"})
		return
	}

	var note models.Note
	if err := db.First(&note, "id = ? AND user_id = ?", noteUUID, userUUID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy ghi chú"})
		return
	}

	if input.Title != "" {
		note.Title = input.Title
		note.Slug = slug.Make(input.Title)
	}
	if input.Content != "" {
		note.Content = input.Content
	}
	if err := db.Save(&note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật ghi chú"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cập nhật thành công",
		"note":    note,
	})
}

func DeleteNote(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, noteUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	if err := db.Delete(&models.Note{}, "id = ? AND user_id = ?", noteUUID, userUUID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa ghi chú"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}

// GetNoteAudio chuyển nội dung ghi chú thành audio MP3 (Google TTS),
// upload lên Supabase và trả về URL kèm thời lượng.
func GetNoteAudio(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userUUID, noteUUID, ok := parseUserAndParam(c, "id")
	if !ok {
		return
	}

	var note models.Note
	if err := db.First(&note, "id = ? AND user_id = ?", noteUUID, userUUID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy ghi chú"})
		return
	}

	audio, err := services.SynthesizeText(c.Request.Context(), note.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo audio", "details": err.Error()})
		return
	}

	filename := fmt.Sprintf("note-%s.mp3", note.ID.String())
	audioURL, err := utils.UploadBytesToSupabase(audio, filename, "audio/mpeg")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể upload audio", "details": err.Error()})
		return
	}

	duration, _ := services.GetMP3Duration(audio)

	c.JSON(http.StatusOK, gin.H{
		"note_id":      note.ID,
		"audio_url":    audioURL,
		"duration_sec": duration,
	})
}
