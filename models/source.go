package models

import (
	"time"

	"github.com/google/uuid"
)

// Loại nguồn tài liệu học tập
type SourceType string

const (
	SourceText    SourceType = "text"
	SourceLink    SourceType = "link"
	SourceImage   SourceType = "image"
	SourcePDF     SourceType = "pdf"
	SourceYoutube SourceType = "youtube"
	SourceSubject SourceType = "subject"
	SourceUnknown SourceType = "unknown"
)

type SourceMaterial struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;" json:"user"`

	SourceType  SourceType `gorm:"type:varchar(20);not null;default:'unknown'" json:"source_type"`
	SourceValue string     `gorm:"type:text" json:"source_value"` // URL hoặc tiêu đề/chủ đề

	OriginalName  string     `gorm:"size:255" json:"original_name"`
	FilePath      string     `gorm:"type:text" json:"file_path"` // đường dẫn trên Supabase (nếu upload file)
	FileType      string     `gorm:"size:50" json:"file_type"`
	FileSize      int64      `json:"file_size"` // bytes
	ExtractedText string     `gorm:"type:text" json:"extracted_text"`
	Status        string     `gorm:"size:30;default:'Đang tải lên'" json:"status"` // Đang tải lên|Đã tải lên|Đang trích xuất|Đã trích xuất|Hoàn thành|Lỗi
	ProcessedAt   *time.Time `json:"processed_at"`                                 // thời điểm trích xuất xong
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
