package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Loại câu hỏi trắc nghiệm
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Trạng thái một lần làm bài / ôn tập
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

type QuizSet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Creator   User      `gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	SourceID *uuid.UUID      `gorm:"type:uuid" json:"source_id"` // nguồn sinh quiz (nếu có)
	Source   *SourceMaterial `gorm:"foreignKey:SourceID" json:"-"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Slug        string `gorm:"size:255;index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Difficulty  string `gorm:"size:20;default:'easy'" json:"difficulty"`
	Language    string `gorm:"size:30;default:'tiếng Việt'" json:"language"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Questions []QuizQuestion `gorm:"foreignKey:QuizSetID" json:"questions"`
}

type QuizQuestion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuizSetID uuid.UUID `gorm:"type:uuid;not null" json:"quiz_set_id"`
	QuizSet   QuizSet   `gorm:"foreignKey:QuizSetID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	Type     QuestionType `gorm:"type:varchar(20);not null;default:'single_choice'" json:"type"`
	Question string       `gorm:"type:text;not null" json:"question"`

	// Các lựa chọn và đáp án đúng đều là text của option (không dùng ký tự a/b/c)
	Options        datatypes.JSONSlice[string] `gorm:"not null" json:"options"`
	CorrectAnswers datatypes.JSONSlice[string] `gorm:"not null" json:"correct_answers"`

	Explanation string    `gorm:"type:text" json:"explanation"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AnswerRecord là một câu trả lời trong attempt (lưu dạng JSON trong QuizSetAttempt)
type AnswerRecord struct {
	QuestionIndex int      `json:"questionIndex"`
	Selected      []string `json:"selected"`
	Correct       []string `json:"correct"`
	IsCorrect     bool     `json:"isCorrect"`
}

type QuizSetAttempt struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	QuizSetID uuid.UUID `gorm:"type:uuid;not null;index" json:"quiz_set_id"`
	QuizSet   QuizSet   `gorm:"foreignKey:QuizSetID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	Status         AttemptStatus                     `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	CurrentIndex   int                               `gorm:"not null;default:0" json:"current_index"`
	TotalQuestions int                               `gorm:"not null;default:0" json:"total_questions"`
	Answers        datatypes.JSONSlice[AnswerRecord] `json:"answers"`
	Score          int                               `gorm:"not null;default:0" json:"score"` // 0..100

	AttemptedAt time.Time  `gorm:"autoCreateTime" json:"attempted_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
