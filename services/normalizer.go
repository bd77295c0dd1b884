package services

import (
	"strings"

	"github.com/vnkhanh/e-study-backend/models"
)

// GeneratedQuestion là một câu hỏi đã chuẩn hoá từ output của model.
// Mọi giá trị trong CorrectAnswers phải trùng khớp (phân biệt hoa thường)
// với một phần tử trong Options.
type GeneratedQuestion struct {
	Type           models.QuestionType `json:"type"`
	Question       string              `json:"question"`
	Options        []string            `json:"options"`
	CorrectAnswers []string            `json:"correct_answers"`
	Explanation    string              `json:"explanation,omitempty"`
}

// GeneratedCard là một flashcard đã chuẩn hoá từ output của model.
type GeneratedCard struct {
	Front       string `json:"front"`
	Back        string `json:"back"`
	Explanation string `json:"explanation,omitempty"`
}

// NormalizeOptions trim từng option, bỏ chuỗi rỗng và loại trùng lặp (giữ thứ tự).
func NormalizeOptions(options []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		out = append(out, opt)
	}
	return out
}

// NormalizeAnswers đổi đáp án dạng chữ cái (a-f, không phân biệt hoa thường)
// thành text của option tương ứng. Giá trị không phải chữ cái (model đã trả
// nguyên văn option) được giữ nguyên.
func NormalizeAnswers(answers []string, options []string) []string {
	out := make([]string, 0, len(answers))
	for _, ans := range answers {
		idx := letterIndex(ans)
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
			continue
		}
		out = append(out, ans)
	}
	return out
}

// letterIndex trả về 0..5 nếu s là đúng một chữ cái a-f, ngược lại -1.
func letterIndex(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 1 {
		return -1
	}
	if s[0] < 'a' || s[0] > 'f' {
		return -1
	}
	return int(s[0] - 'a')
}

// answersWithinOptions kiểm tra bất biến: mọi đáp án đúng phải là một option.
func answersWithinOptions(answers []string, options []string) bool {
	if len(answers) == 0 {
		return false
	}
	set := make(map[string]bool, len(options))
	for _, opt := range options {
		set[opt] = true
	}
	for _, ans := range answers {
		if !set[ans] {
			return false
		}
	}
	return true
}

// EnsureMultiAnswerMajority áp chính sách "đa số nhiều đáp án": trong các câu
// multiple_choice của một bộ đã chốt, ít nhất floor(n/2)+1 câu phải có nhiều
// hơn 1 đáp án đúng. Nếu thiếu, duyệt các câu multiple_choice theo thứ tự và
// với mỗi câu đang có đúng 1 đáp án, bổ sung thêm 1 option chưa được đánh dấu
// đúng (option đầu tiên còn trống, thứ tự ổn định) cho tới khi đạt ngưỡng.
// Đây là bước hậu xử lý tất định: không xoá, không viết lại câu hỏi nào.
func EnsureMultiAnswerMajority(questions []GeneratedQuestion) {
	var multipleChoice []int
	for i, q := range questions {
		if q.Type == models.QuestionMultipleChoice {
			multipleChoice = append(multipleChoice, i)
		}
	}
	n := len(multipleChoice)
	if n == 0 {
		return
	}

	threshold := n/2 + 1
	multi := 0
	for _, i := range multipleChoice {
		if len(questions[i].CorrectAnswers) > 1 {
			multi++
		}
	}

	for _, i := range multipleChoice {
		if multi >= threshold {
			return
		}
		q := &questions[i]
		if len(q.CorrectAnswers) != 1 {
			continue
		}
		for _, opt := range q.Options {
			if opt != q.CorrectAnswers[0] {
				q.CorrectAnswers = append(q.CorrectAnswers, opt)
				multi++
				break
			}
		}
	}
}
