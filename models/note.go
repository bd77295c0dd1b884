package models

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	ContextID *uuid.UUID    `gorm:"type:uuid" json:"context_id"` // StudyContext dùng để sinh note (nếu có)
	Context   *StudyContext `gorm:"foreignKey:ContextID" json:"-"`

	Title     string    `gorm:"size:255;not null" json:"title"`
	Slug      string    `gorm:"size:255;index" json:"slug"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
