package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StudyContext lưu cache các đoạn văn (chunks) đã trích xuất cho một phiên học.
// Mỗi (user, session, content_hash) chỉ có đúng một bản ghi, save sẽ upsert.
type StudyContext struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_study_context_key" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	SessionID   string     `gorm:"size:100;not null;uniqueIndex:idx_study_context_key" json:"session_id"`
	SourceType  SourceType `gorm:"type:varchar(20);not null;default:'unknown'" json:"source_type"`
	SourceValue string     `gorm:"type:text" json:"source_value"`

	// SHA-256 trên (source_type|source_value|chunks đã chuẩn hoá)
	ContentHash string                         `gorm:"size:64;not null;uniqueIndex:idx_study_context_key" json:"content_hash"`
	Chunks      datatypes.JSONSlice[string]    `gorm:"not null" json:"chunks"`
	Metadata    datatypes.JSONMap              `json:"metadata"`

	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
