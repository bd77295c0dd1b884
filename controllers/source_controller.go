package controllers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/config"
	"github.com/vnkhanh/e-study-backend/models"
	"github.com/vnkhanh/e-study-backend/services"
	"github.com/vnkhanh/e-study-backend/utils"
	"github.com/vnkhanh/e-study-backend/ws"
)

// UploadSource nhận file tài liệu (.pdf, .docx, .txt), upload lên Supabase,
// trích xuất + làm sạch nội dung, chia chunk rồi cache thành StudyContext.
func UploadSource(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có file đính kèm"})
		return
	}
	if file.Size > 20*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File vượt quá 20MB"})
		return
	}

	ext := filepath.Ext(file.Filename)
	inputType, err := utils.GetInputTypeFromExt(ext)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sourceID := uuid.New()

	publicURL, err := utils.UploadSourceToSupabase(file, sourceID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi upload Supabase", "details": err.Error()})
		return
	}

	source := models.SourceMaterial{
		ID:           sourceID,
		UserID:       uid,
		SourceType:   services.SourceTypeFromInput(inputType),
		SourceValue:  publicURL,
		OriginalName: file.Filename,
		FilePath:     publicURL,
		FileType:     strings.TrimPrefix(ext, "."),
		FileSize:     file.Size,
		Status:       "Đã tải lên",
	}
	if err := db.Create(&source).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không lưu được tài liệu", "details": err.Error()})
		return
	}

	ws.BroadcastSourceListChanged()
	db.Model(&source).Updates(map[string]interface{}{"status": "Đang trích xuất"})
	ws.SendSourceStatus(sourceID.String(), "Đang trích xuất", 0.2, "")

	// Trích xuất nội dung
	rawText, err := services.NormalizeInput(services.InputSource{
		Type:       inputType,
		FileHeader: file,
	})
	if err != nil {
		db.Model(&source).Updates(map[string]interface{}{"status": "Lỗi"})
		ws.SendSourceStatus(sourceID.String(), "Lỗi", 0, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể trích xuất nội dung", "details": err.Error()})
		return
	}

	// Làm sạch (pre-clean regex + model); lỗi model không chặn luồng
	cleaned := services.CleanTextPipeline(c.Request.Context(), AI, rawText)
	if cleaned == "" {
		db.Model(&source).Updates(map[string]interface{}{"status": "Lỗi"})
		ws.SendSourceStatus(sourceID.String(), "Lỗi", 0, "Tài liệu không có nội dung")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tài liệu không có nội dung"})
		return
	}

	db.Model(&source).Updates(map[string]interface{}{
		"status":         "Đã trích xuất",
		"extracted_text": cleaned,
	})
	ws.SendSourceStatus(sourceID.String(), "Đã trích xuất", 0.6, "")

	// Chia chunk và cache thành StudyContext
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = sourceID.String()
	}
	chunks := services.ChunksForContext(source.SourceType, source.SourceValue, cleaned)
	studyCtx, err := Contexts.Save(uid, sessionID, source.SourceType, source.SourceValue, chunks, map[string]interface{}{
		"source_id":     sourceID.String(),
		"original_name": file.Filename,
	})
	if err != nil {
		db.Model(&source).Updates(map[string]interface{}{"status": "Lỗi"})
		ws.SendSourceStatus(sourceID.String(), "Lỗi", 0, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lưu ngữ cảnh học tập", "details": err.Error()})
		return
	}
	if studyCtx == nil {
		db.Model(&source).Updates(map[string]interface{}{"status": "Lỗi"})
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tài liệu không có nội dung sau khi xử lý"})
		return
	}

	now := time.Now()
	db.Model(&source).Updates(map[string]interface{}{
		"status":       "Hoàn thành",
		"processed_at": &now,
	})
	ws.SendSourceStatus(sourceID.String(), "Hoàn thành", 1.0, "")
	ws.BroadcastSourceListChanged()

	db.First(&source, "id = ?", source.ID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Tải lên thành công",
		"source":     source,
		"context_id": studyCtx.ID,
		"chunks":     len(studyCtx.Chunks),
	})
}

type CreateSourceInput struct {
	Type      string `json:"type" binding:"required"` // text | link | subject
	Value     string `json:"value" binding:"required"`
	SessionID string `json:"session_id"`
}

// CreateTextSource nhận nguồn không phải file: văn bản dán tay, URL
// hoặc chủ đề trần, rồi tạo StudyContext tương ứng.
func CreateTextSource(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input CreateSourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sourceType models.SourceType
	switch input.Type {
	case "text":
		sourceType = models.SourceText
	case "link":
		sourceType = models.SourceLink
	case "subject":
		sourceType = models.SourceSubject
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Loại nguồn không được hỗ trợ"})
		return
	}

	sourceValue := input.Value
	text := ""
	if sourceType == models.SourceText {
		// Với text dán tay: giá trị nguồn là tiêu đề rút gọn, nội dung là text
		text = input.Value
		sourceValue = firstLine(input.Value, 100)
	}

	source := models.SourceMaterial{
		UserID:      uid,
		SourceType:  sourceType,
		SourceValue: sourceValue,
		Status:      "Đang trích xuất",
	}
	if err := db.Create(&source).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không lưu được nguồn", "details": err.Error()})
		return
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = source.ID.String()
	}

	chunks := services.ChunksForContext(sourceType, sourceValue, text)
	studyCtx, err := Contexts.Save(uid, sessionID, sourceType, sourceValue, chunks, map[string]interface{}{
		"source_id": source.ID.String(),
	})
	if err != nil {
		db.Model(&source).Updates(map[string]interface{}{"status": "Lỗi"})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lưu ngữ cảnh học tập", "details": err.Error()})
		return
	}
	if studyCtx == nil {
		db.Model(&source).Updates(map[string]interface{}{"status": "Lỗi"})
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nguồn không có nội dung"})
		return
	}

	now := time.Now()
	db.Model(&source).Updates(map[string]interface{}{
		"status":         "Hoàn thành",
		"extracted_text": text,
		"processed_at":   &now,
	})
	ws.BroadcastSourceListChanged()

	db.First(&source, "id = ?", source.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Tạo nguồn thành công",
		"source":     source,
		"context_id": studyCtx.ID,
		"chunks":     len(studyCtx.Chunks),
	})
}

func GetSources(c *gin.Context) {
	userIDStr := c.GetString("user_id")
	role := c.GetString("role")

	query := config.DB.Model(&models.SourceMaterial{})

	var userUUID *uuid.UUID
	if userIDStr != "" {
		parsed, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
			return
		}
		userUUID = &parsed
	}

	// Phân quyền: admin thấy tất cả, còn lại chỉ thấy của mình
	if role != string(models.RoleAdmin) {
		query = query.Where("user_id = ?", userUUID)
	}

	// lọc theo trạng thái
	if status := c.Query("status"); status != "" {
		switch status {
		case "Đang tải lên", "Đã tải lên", "Đang trích xuất", "Đã trích xuất", "Hoàn thành", "Lỗi":
			query = query.Where("status = ?", status)
		}
	}

	// tìm kiếm theo tên
	if search := c.Query("search"); search != "" {
		query = query.Where("original_name LIKE ? OR source_value LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	// phân trang
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đếm tổng số nguồn"})
		return
	}

	var sources []models.SourceMaterial
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&sources).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách nguồn"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  sources,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func GetSourceDetail(c *gin.Context) {
	id := c.Param("id")
	userIDStr := c.GetString("user_id")

	var source models.SourceMaterial
	if err := config.DB.First(&source, "id = ? AND user_id = ?", id, userIDStr).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy nguồn tài liệu"})
		return
	}
	c.JSON(http.StatusOK, source)
}

func DeleteSource(c *gin.Context) {
	id := c.Param("id")
	userIDStr := c.GetString("user_id")

	sourceID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var source models.SourceMaterial
	if err := config.DB.First(&source, "id = ? AND user_id = ?", sourceID, userIDStr).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy nguồn tài liệu"})
		return
	}

	// Xóa file trên Supabase trước (nếu có), lỗi không chặn việc xóa bản ghi
	if source.FilePath != "" {
		if err := utils.DeleteFileFromSupabase(source.FilePath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa file trên storage", "details": err.Error()})
			return
		}
	}

	if err := config.DB.Delete(&models.SourceMaterial{}, "id = ?", sourceID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa nguồn tài liệu"})
		return
	}

	ws.BroadcastSourceListChanged()
	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}

// firstLine lấy dòng đầu của văn bản, cắt tối đa maxLen ký tự (theo rune)
func firstLine(s string, maxLen int) string {
	line := s
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		line = s[:idx]
	}
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return line
}
