package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetLatestContext trả về StudyContext mới nhất của một phiên học
func GetLatestContext(c *gin.Context) {
	userIDStr := c.GetString("user_id")
	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu session_id"})
		return
	}

	studyCtx, err := Contexts.GetLatest(userUUID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tra cứu ngữ cảnh"})
		return
	}
	if studyCtx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Phiên này chưa có ngữ cảnh nào"})
		return
	}

	c.JSON(http.StatusOK, studyCtx)
}

// GetContextDetail tra cứu trực tiếp một StudyContext theo id
func GetContextDetail(c *gin.Context) {
	userUUID, contextUUID, ok := parseUserAndParam(c, "id")
	if !ok {
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

	c.JSON(http.StatusOK, studyCtx)
}
