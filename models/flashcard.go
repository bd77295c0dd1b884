package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Trạng thái từng thẻ trong một attempt
type CardStatus string

const (
	CardNotStudied CardStatus = "not_studied"
	CardToReview   CardStatus = "to_review"
)

// Mức đánh giá khi ôn một thẻ (spaced repetition)
type CardRating string

const (
	RatingAgain CardRating = "again"
	RatingHard  CardRating = "hard"
	RatingGood  CardRating = "good"
	RatingEasy  CardRating = "easy"
)

type FlashcardSet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Creator   User      `gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	SourceID *uuid.UUID      `gorm:"type:uuid" json:"source_id"`
	Source   *SourceMaterial `gorm:"foreignKey:SourceID" json:"-"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Slug        string `gorm:"size:255;index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Difficulty  string `gorm:"size:20;default:'easy'" json:"difficulty"`
	Language    string `gorm:"size:30;default:'tiếng Việt'" json:"language"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Cards []Flashcard `gorm:"foreignKey:FlashcardSetID" json:"cards"`
}

type Flashcard struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	FlashcardSetID uuid.UUID    `gorm:"type:uuid;not null" json:"flashcard_set_id"`
	FlashcardSet   FlashcardSet `gorm:"foreignKey:FlashcardSetID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	FrontText   string `gorm:"type:text;not null" json:"front_text"`
	BackText    string `gorm:"type:text;not null" json:"back_text"`
	Explanation string `gorm:"type:text" json:"explanation"`
	Position    int    `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CardState là trạng thái ôn tập của một thẻ trong attempt (lưu JSON)
type CardState struct {
	Index          int         `json:"index"`
	Status         CardStatus  `json:"status"`
	LastReviewedAt *time.Time  `json:"lastReviewedAt,omitempty"`
	NextReviewAt   *time.Time  `json:"nextReviewAt,omitempty"`
	LastRating     *CardRating `json:"lastRating,omitempty"`
}

type FlashcardAttempt struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	FlashcardSetID uuid.UUID    `gorm:"type:uuid;not null;index" json:"flashcard_set_id"`
	FlashcardSet   FlashcardSet `gorm:"foreignKey:FlashcardSetID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	Status     AttemptStatus                  `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	TotalCards int                            `gorm:"not null;default:0" json:"total_cards"`
	CardsSeen  int                            `gorm:"not null;default:0" json:"cards_seen"`
	Cards      datatypes.JSONSlice[CardState] `json:"cards"`

	// NextReviewAt cấp attempt: chỉ set khi hoàn thành cả bộ (cooldown 4 ngày)
	NextReviewAt *time.Time `json:"next_review_at"`
	AttemptedAt  time.Time  `gorm:"autoCreateTime" json:"attempted_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}
