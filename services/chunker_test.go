package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText(""))
	assert.Nil(t, ChunkText("   \n\t  "))
}

func TestChunkTextShort(t *testing.T) {
	chunks := ChunkText("Go là một ngôn ngữ lập trình. Nó được tạo ra tại Google.")

	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), 10)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
	// Không rơi rớt ký tự nào (bỏ khoảng trắng vì có thể cắt cứng giữa từ)
	original := "Go là một ngôn ngữ lập trình. Nó được tạo ra tại Google."
	joined := strings.Join(chunks, "")
	assert.Equal(t,
		strings.ReplaceAll(original, " ", ""),
		strings.ReplaceAll(joined, " ", ""))
}

func TestChunkTextLong(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("Đây là một câu văn có độ dài trung bình để kiểm tra việc chia đoạn. ")
	}

	chunks := ChunkText(sb.String())

	require.NotEmpty(t, chunks)
	assert.GreaterOrEqual(t, len(chunks), 8)
	assert.LessOrEqual(t, len(chunks), 10)
}

func TestChunkTextNormalizesWhitespace(t *testing.T) {
	chunks := ChunkText("Câu  một.\n\nCâu\thai. Câu ba.")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotContains(t, c, "\n")
		assert.NotContains(t, c, "\t")
		assert.NotContains(t, c, "  ")
	}
}

func TestChunkTextSingleLongSentence(t *testing.T) {
	// Một "câu" dài không có dấu kết câu vẫn phải được chia (cắt cứng)
	text := strings.Repeat("abc ", 2000)

	chunks := ChunkText(text)

	require.NotEmpty(t, chunks)
	assert.GreaterOrEqual(t, len(chunks), 8)
	assert.LessOrEqual(t, len(chunks), 10)
}

func TestChunkTextMultiByteBalanced(t *testing.T) {
	// Văn bản tiếng Việt có nhiều ký tự multi-byte: kích thước chunk phải
	// được đo bằng rune, không chunk nào (kể cả chunk cuối) được phình to
	// quá mức so với kích thước mục tiêu.
	sentence := "Tiếng Việt dùng nhiều ký tự có dấu nên độ dài byte lớn hơn độ dài ký tự. "
	text := strings.Repeat(sentence, 150)

	chunks := ChunkText(text)

	require.NotEmpty(t, chunks)
	assert.GreaterOrEqual(t, len(chunks), 8)
	assert.LessOrEqual(t, len(chunks), 10)

	normalized := strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
	total := utf8.RuneCountInString(normalized)
	target := (total + chunkCharTarget - 1) / chunkCharTarget
	if target > maxChunkCount {
		target = maxChunkCount
	}
	size := (total + target - 1) / target
	limit := size + utf8.RuneCountInString(sentence)
	for i, c := range chunks {
		got := utf8.RuneCountInString(c)
		assert.LessOrEqualf(t, got, limit, "chunk %d quá lớn: %d rune", i, got)
	}
}

func TestChunkSubject(t *testing.T) {
	chunks := ChunkSubject("Hóa học hữu cơ")

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Contains(t, c, "Hóa học hữu cơ")
	}

	assert.Nil(t, ChunkSubject("  "))
}

func TestChunkURL(t *testing.T) {
	chunks := ChunkURL("https://example.com/bai-giang")

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "https://example.com/bai-giang")

	assert.Nil(t, ChunkURL(""))
}
