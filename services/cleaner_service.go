package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	reTOCLine    = regexp.MustCompile(`(?m)^.*\.{4,}\s*\d+\s*$`)
	rePageNumber = regexp.MustCompile(`(?m)^\s*(Trang|Page)?\s*\d+\s*$`)
	reManyBlank  = regexp.MustCompile(`\n{3,}`)
)

// PreCleanText lọc bớt rác trước khi đưa vào model: dòng mục lục
// (chuỗi dấu chấm + số trang), dòng chỉ có số trang, chuỗi dòng trống dài.
func PreCleanText(raw string) string {
	text := reTOCLine.ReplaceAllString(raw, "")
	text = rePageNumber.ReplaceAllString(text, "")
	text = reManyBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CleanWithModel nhờ model dọn văn bản đã trích xuất: bỏ header/footer lặp,
// sửa từ bị cắt dòng, giữ nguyên nội dung. Nếu gọi model thất bại thì trả
// về bản pre-clean để pipeline vẫn chạy tiếp.
func CleanWithModel(ctx context.Context, ai TextGenerator, text string) (string, error) {
	prompt := fmt.Sprintf(`Bạn là công cụ dọn dẹp văn bản trích xuất từ tài liệu.
Yêu cầu:
- Xoá header/footer lặp lại, số trang, ký tự rác do OCR.
- Nối lại các từ bị ngắt dòng giữa chừng.
- KHÔNG tóm tắt, KHÔNG thêm nội dung mới, giữ nguyên ngôn ngữ gốc.
- Chỉ trả về văn bản đã dọn, không giải thích.

Văn bản:
%s`, text)

	out, err := ai.GenerateText(ctx, prompt)
	if err != nil {
		return text, err
	}
	cleaned := strings.TrimSpace(out)
	if cleaned == "" {
		return text, nil
	}
	return cleaned, nil
}

// SummarizeForNote sinh nội dung ghi chú (markdown) từ các chunk của một
// ngữ cảnh học tập.
func SummarizeForNote(ctx context.Context, ai TextGenerator, chunks []string, language string) (string, error) {
	if language == "" {
		language = "vi"
	}
	prompt := fmt.Sprintf(`Từ tài liệu dưới đây, hãy viết một bản ghi chú học tập bằng ngôn ngữ "%s".
Yêu cầu:
- Dùng markdown: tiêu đề, gạch đầu dòng, in đậm thuật ngữ quan trọng.
- Bám sát tài liệu, không bịa thêm kiến thức ngoài.
- Ngắn gọn nhưng đủ ý chính để ôn tập.

Tài liệu:
%s`, language, strings.Join(chunks, "\n\n"))

	out, err := ai.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CleanTextPipeline: pre-clean bằng regex rồi dọn tiếp bằng model.
func CleanTextPipeline(ctx context.Context, ai TextGenerator, raw string) string {
	pre := PreCleanText(raw)
	if pre == "" {
		return ""
	}
	cleaned, err := CleanWithModel(ctx, ai, pre)
	if err != nil {
		return pre
	}
	return cleaned
}
