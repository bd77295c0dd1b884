package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-study-backend/models"
)

func TestHashContent(t *testing.T) {
	chunks := []string{"đoạn 1", "đoạn 2"}

	h1 := HashContent(models.SourceText, "bài giảng", chunks)
	h2 := HashContent(models.SourceText, "bài giảng", chunks)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Đổi bất kỳ thành phần nào -> hash khác
	assert.NotEqual(t, h1, HashContent(models.SourcePDF, "bài giảng", chunks))
	assert.NotEqual(t, h1, HashContent(models.SourceText, "bài khác", chunks))
	assert.NotEqual(t, h1, HashContent(models.SourceText, "bài giảng", []string{"đoạn 1"}))
}

func TestContextStoreSaveAndUpsert(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	store := NewContextStore(db)

	chunks := []string{"đoạn 1", "đoạn 2"}
	ctx1, err := store.Save(user.ID, "phien-1", models.SourceText, "bài giảng", chunks, nil)
	require.NoError(t, err)
	require.NotNil(t, ctx1)
	assert.Equal(t, 2, len(ctx1.Chunks))
	assert.True(t, ctx1.ExpiresAt.After(time.Now().Add(59*24*time.Hour)))

	// Lưu lại cùng nội dung -> cùng bản ghi (upsert), không tạo mới
	ctx2, err := store.Save(user.ID, "phien-1", models.SourceText, "bài giảng", chunks, nil)
	require.NoError(t, err)
	require.NotNil(t, ctx2)
	assert.Equal(t, ctx1.ID, ctx2.ID)

	var count int64
	require.NoError(t, db.Model(&models.StudyContext{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Nội dung khác -> bản ghi mới
	ctx3, err := store.Save(user.ID, "phien-1", models.SourceText, "bài giảng", []string{"đoạn mới"}, nil)
	require.NoError(t, err)
	require.NotNil(t, ctx3)
	assert.NotEqual(t, ctx1.ID, ctx3.ID)
}

func TestContextStoreSaveNormalizesChunks(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	store := NewContextStore(db)

	ctx, err := store.Save(user.ID, "phien-1", models.SourceText, "x", []string{"  đoạn 1  ", "", "   "}, nil)
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, []string{"đoạn 1"}, []string(ctx.Chunks))
}

func TestContextStoreSaveEmpty(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	store := NewContextStore(db)

	ctx, err := store.Save(user.ID, "phien-1", models.SourceText, "x", []string{"", "  "}, nil)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestContextStoreGetLatest(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	store := NewContextStore(db)

	none, err := store.GetLatest(user.ID, "phien-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	older, err := store.Save(user.ID, "phien-1", models.SourceText, "cũ", []string{"đoạn cũ"}, nil)
	require.NoError(t, err)

	newer, err := store.Save(user.ID, "phien-1", models.SourceText, "mới", []string{"đoạn mới"}, nil)
	require.NoError(t, err)

	// Ép bản ghi cũ lùi hẳn về quá khứ để thứ tự updated_at rõ ràng
	require.NoError(t, db.Model(&models.StudyContext{}).
		Where("id = ?", older.ID).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	latest, err := store.GetLatest(user.ID, "phien-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
}

func TestContextStoreGetByID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	other := models.User{FullName: "Khác", Email: "other@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&other).Error)

	store := NewContextStore(db)
	ctx, err := store.Save(user.ID, "phien-1", models.SourceText, "x", []string{"đoạn"}, nil)
	require.NoError(t, err)

	found, err := store.GetByID(user.ID, ctx.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ctx.ID, found.ID)

	// User khác không thấy context của người khác
	hidden, err := store.GetByID(other.ID, ctx.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden)
}

func TestContextStoreDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	store := NewContextStore(db)

	ctx, err := store.Save(user.ID, "phien-1", models.SourceText, "x", []string{"đoạn"}, nil)
	require.NoError(t, err)

	// Ép bản ghi hết hạn
	require.NoError(t, db.Model(&models.StudyContext{}).
		Where("id = ?", ctx.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	deleted, err := store.DeleteExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var count int64
	require.NoError(t, db.Model(&models.StudyContext{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
