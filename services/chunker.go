package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Kích thước tham chiếu cho một chunk (ký tự)
	chunkCharTarget = 600
	minChunkCount   = 8
	maxChunkCount   = 10
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	// Tách câu ở mức regex: gom mọi thứ đến dấu kết câu (hoặc hết chuỗi)
	reSentence = regexp.MustCompile(`[^.!?]+[.!?]+[\)\]"']*|[^.!?]+$`)
)

// ChunkText chia văn bản thành tối đa 10 chunk theo ranh giới câu.
// Số chunk mục tiêu = clamp(ceil(len/600), 8, 10); kích thước mỗi chunk
// = len/số chunk. Nếu gom câu không đủ số chunk (ví dụ một câu quá dài)
// thì cắt cứng theo kích thước cố định.
func ChunkText(text string) []string {
	text = strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)

	target := (total + chunkCharTarget - 1) / chunkCharTarget
	if target < minChunkCount {
		target = minChunkCount
	}
	if target > maxChunkCount {
		target = maxChunkCount
	}

	// Kích thước mỗi chunk tính bằng rune, làm tròn lên để tổng số chunk
	// không bao giờ vượt target
	size := (total + target - 1) / target
	if size < 1 {
		size = 1
	}

	chunks := packSentences(text, size)
	if len(chunks) < target {
		chunks = sliceFixed(runes, size)
	}

	return trimEmptyChunks(chunks)
}

// ChunkSubject biến một chủ đề trần thành 3 chunk prompt hướng dẫn.
func ChunkSubject(subject string) []string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("Hãy giải thích các kiến thức nền tảng của chủ đề: %s", subject),
		fmt.Sprintf("Hãy trình bày các khái niệm then chốt, định nghĩa và ví dụ quan trọng của chủ đề: %s", subject),
		fmt.Sprintf("Hãy tổng hợp các câu hỏi thường gặp và những điểm dễ nhầm lẫn khi học chủ đề: %s", subject),
	}
}

// ChunkURL bọc một URL thành 1 chunk duy nhất (chỉ dùng làm fallback
// khi không trích xuất được nội dung ở bước trước).
func ChunkURL(url string) []string {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("Hãy dựa vào nội dung của trang %s để tạo nội dung học tập.", url),
	}
}

// packSentences gom câu theo kiểu greedy: thêm câu cho tới khi chunk đạt
// kích thước mục tiêu rồi chốt. Độ dài đo bằng rune (không phải byte) để
// văn bản tiếng Việt không bị lệch kích thước; mỗi chunk vượt size tối đa
// một câu, nên số chunk không bao giờ quá total/size.
func packSentences(text string, size int) []string {
	sentences := reSentence.FindAllString(text, -1)

	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(s)
		currentLen += utf8.RuneCountInString(s)
		if currentLen >= size {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// sliceFixed cắt cứng theo số ký tự (rune), không rơi rớt ký tự nào.
func sliceFixed(runes []rune, size int) []string {
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func trimEmptyChunks(chunks []string) []string {
	var out []string
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
