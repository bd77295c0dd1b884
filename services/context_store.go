package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-study-backend/models"
)

// TTL mặc định của một StudyContext: 60 ngày kể từ lần ghi cuối
const DefaultContextTTL = 60 * 24 * time.Hour

// ContextStore cache các chunk đã trích xuất theo (user, session, content hash).
type ContextStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewContextStore(db *gorm.DB) *ContextStore {
	return &ContextStore{db: db, ttl: DefaultContextTTL}
}

// HashContent băm SHA-256 trên (loại nguồn | giá trị nguồn | chunks đã nối).
// Nội dung đổi -> hash đổi -> bản ghi mới; nội dung y hệt -> cùng hash -> upsert.
func HashContent(sourceType models.SourceType, sourceValue string, chunks []string) string {
	h := sha256.New()
	h.Write([]byte(string(sourceType)))
	h.Write([]byte("|"))
	h.Write([]byte(sourceValue))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(chunks, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Save chuẩn hoá chunks (trim, bỏ rỗng) rồi upsert StudyContext.
// Chunks rỗng sau chuẩn hoá -> không lưu gì, trả (nil, nil); caller phải
// tự kiểm tra trước khi coi như đã có context.
func (s *ContextStore) Save(userID uuid.UUID, sessionID string, sourceType models.SourceType, sourceValue string, chunks []string, metadata map[string]interface{}) (*models.StudyContext, error) {
	normalized := trimEmptyChunks(chunks)
	if len(normalized) == 0 {
		return nil, nil
	}
	if sourceType == "" {
		sourceType = models.SourceUnknown
	}

	hash := HashContent(sourceType, sourceValue, normalized)
	expiresAt := time.Now().Add(s.ttl)

	var ctx models.StudyContext
	err := s.db.
		Where("user_id = ? AND session_id = ? AND content_hash = ?", userID, sessionID, hash).
		First(&ctx).Error
	if err == nil {
		// Đã có bản ghi cùng nội dung: chỉ làm mới metadata và hạn sử dụng
		ctx.Chunks = datatypes.NewJSONSlice(normalized)
		ctx.Metadata = datatypes.JSONMap(metadata)
		ctx.ExpiresAt = expiresAt
		if err := s.db.Save(&ctx).Error; err != nil {
			return nil, err
		}
		return &ctx, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	ctx = models.StudyContext{
		UserID:      userID,
		SessionID:   sessionID,
		SourceType:  sourceType,
		SourceValue: sourceValue,
		ContentHash: hash,
		Chunks:      datatypes.NewJSONSlice(normalized),
		Metadata:    datatypes.JSONMap(metadata),
		ExpiresAt:   expiresAt,
	}
	if err := s.db.Create(&ctx).Error; err != nil {
		return nil, err
	}
	return &ctx, nil
}

// GetLatest trả về StudyContext mới cập nhật nhất của phiên, nil nếu chưa có.
func (s *ContextStore) GetLatest(userID uuid.UUID, sessionID string) (*models.StudyContext, error) {
	var ctx models.StudyContext
	err := s.db.
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("updated_at DESC").
		First(&ctx).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ctx, nil
}

// GetByID tra cứu trực tiếp, chỉ trong phạm vi user sở hữu.
func (s *ContextStore) GetByID(userID, contextID uuid.UUID) (*models.StudyContext, error) {
	var ctx models.StudyContext
	err := s.db.
		Where("id = ? AND user_id = ?", contextID, userID).
		First(&ctx).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ctx, nil
}

// DeleteExpired xoá các context đã quá hạn (gọi từ cleanup job định kỳ).
func (s *ContextStore) DeleteExpired() (int64, error) {
	result := s.db.
		Where("expires_at < ?", time.Now()).
		Delete(&models.StudyContext{})
	return result.RowsAffected, result.Error
}
