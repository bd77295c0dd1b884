package utils

import (
	"log"
	"time"

	"github.com/vnkhanh/e-study-backend/config"
	"github.com/vnkhanh/e-study-backend/models"
)

// CleanupExpiredContexts xóa các ngữ cảnh học tập đã quá hạn cache (TTL 60 ngày)
func CleanupExpiredContexts() {
	db := config.DB

	result := db.Where("expires_at < ?", time.Now()).
		Delete(&models.StudyContext{})

	if result.Error != nil {
		log.Printf("Lỗi khi xóa study context hết hạn: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Đã xóa %d study context hết hạn", result.RowsAffected)
	}
}

// StartCleanupJob chạy cleanup job định kỳ
func StartCleanupJob() {
	// Chạy cleanup ngay lần đầu khi khởi động
	log.Println("Đang chạy cleanup lần đầu...")
	CleanupExpiredContexts()

	// Thiết lập ticker để chạy mỗi 6 giờ
	ticker := time.NewTicker(6 * time.Hour)

	go func() {
		defer ticker.Stop()
		for range ticker.C {
			log.Println("Cleanup job được kích hoạt...")
			CleanupExpiredContexts()
		}
	}()

	log.Println("Cleanup job đã được khởi động (chạy mỗi 6 giờ)")
}
