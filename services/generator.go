package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/vnkhanh/e-study-backend/models"
)

const (
	// Tối đa 3 worker gọi Gemini song song để không tự dính rate limit
	maxGenWorkers = 3
	// Sau khi pool chạy xong, tối đa 2 vòng bù tuần tự nếu còn thiếu
	topUpRounds = 2
)

// GenerationFailure ghi lại một lần gọi theo chunk bị hỏng. Lỗi kiểu này
// chỉ để log/quan sát, không bao giờ trả về cho caller như error; caller
// chỉ thấy tổng số item ít hơn yêu cầu.
type GenerationFailure struct {
	ChunkIndex int
	Stage      string // "request" | "parse"
	Err        error
}

type QuizGenParams struct {
	Type       models.QuestionType
	Difficulty string
	Language   string
	Mode       string // "ôn tập" | "kiểm tra"
}

type CardGenParams struct {
	Difficulty string
	Language   string
}

// Generator điều phối việc sinh câu hỏi/flashcard theo chunk: worker pool
// giới hạn, khử trùng lặp theo text, và các vòng bù khi thiếu.
type Generator struct {
	ai TextGenerator
}

func NewGenerator(ai TextGenerator) *Generator {
	return &Generator{ai: ai}
}

// GenerateQuestions sinh tối đa count câu hỏi từ dãy chunk. Có thể trả ít hơn
// count (chunk lỗi bị bỏ qua, nội dung trùng bị loại); đây là hành vi
// chấp nhận được, không phải lỗi.
func (g *Generator) GenerateQuestions(ctx context.Context, chunks []string, count int, p QuizGenParams) ([]GeneratedQuestion, []GenerationFailure) {
	chunks = trimEmptyChunks(chunks)
	if count <= 0 || len(chunks) == 0 {
		return nil, nil
	}

	perChunk := (count + len(chunks) - 1) / len(chunks)

	var (
		mu       sync.Mutex
		cursor   int
		results  []GeneratedQuestion
		seen     = make(map[string]bool)
		failures []GenerationFailure
	)

	// claim lấy chunk tiếp theo chưa xử lý cùng số item còn cần;
	// trả (-1, 0) khi hết việc.
	claim := func() (int, int) {
		mu.Lock()
		defer mu.Unlock()
		if cursor >= len(chunks) || len(results) >= count {
			return -1, 0
		}
		idx := cursor
		cursor++
		want := count - len(results)
		if want > perChunk {
			want = perChunk
		}
		return idx, want
	}

	collect := func(idx int, qs []GeneratedQuestion, fails []GenerationFailure) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, fails...)
		for _, q := range qs {
			if len(results) >= count {
				break
			}
			key := strings.ToLower(strings.TrimSpace(q.Question))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, q)
		}
	}

	workers := maxGenWorkers
	if len(chunks) < workers {
		workers = len(chunks)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx, want := claim()
				if idx < 0 {
					return
				}
				qs, fails := g.requestQuestions(ctx, chunks[idx], idx, want, p)
				collect(idx, qs, fails)
			}
		}()
	}
	wg.Wait()

	// Vòng bù tuần tự: mỗi vòng một request, xoay vòng theo thứ tự chunk
	for round := 0; round < topUpRounds && len(results) < count; round++ {
		idx := round % len(chunks)
		qs, fails := g.requestQuestions(ctx, chunks[idx], idx, count-len(results), p)
		collect(idx, qs, fails)
	}

	if len(results) > count {
		results = results[:count]
	}

	// Chính sách đa số nhiều đáp án chỉ áp cho quiz, chạy sau cùng
	EnsureMultiAnswerMajority(results)
	return results, failures
}

// GenerateCards sinh tối đa count flashcard từ dãy chunk, khử trùng lặp
// theo mặt trước của thẻ.
func (g *Generator) GenerateCards(ctx context.Context, chunks []string, count int, p CardGenParams) ([]GeneratedCard, []GenerationFailure) {
	chunks = trimEmptyChunks(chunks)
	if count <= 0 || len(chunks) == 0 {
		return nil, nil
	}

	perChunk := (count + len(chunks) - 1) / len(chunks)

	var (
		mu       sync.Mutex
		cursor   int
		results  []GeneratedCard
		seen     = make(map[string]bool)
		failures []GenerationFailure
	)

	claim := func() (int, int) {
		mu.Lock()
		defer mu.Unlock()
		if cursor >= len(chunks) || len(results) >= count {
			return -1, 0
		}
		idx := cursor
		cursor++
		want := count - len(results)
		if want > perChunk {
			want = perChunk
		}
		return idx, want
	}

	collect := func(cards []GeneratedCard, fails []GenerationFailure) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, fails...)
		for _, card := range cards {
			if len(results) >= count {
				break
			}
			key := strings.ToLower(strings.TrimSpace(card.Front))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, card)
		}
	}

	workers := maxGenWorkers
	if len(chunks) < workers {
		workers = len(chunks)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx, want := claim()
				if idx < 0 {
					return
				}
				cards, fails := g.requestCards(ctx, chunks[idx], idx, want, p)
				collect(cards, fails)
			}
		}()
	}
	wg.Wait()

	for round := 0; round < topUpRounds && len(results) < count; round++ {
		idx := round % len(chunks)
		cards, fails := g.requestCards(ctx, chunks[idx], idx, count-len(results), p)
		collect(cards, fails)
	}

	if len(results) > count {
		results = results[:count]
	}
	return results, failures
}

// ===== Gọi model và parse =====

type rawQuestion struct {
	Type          string          `json:"type"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
}

type rawCard struct {
	Front       string `json:"front"`
	Back        string `json:"back"`
	Explanation string `json:"explanation"`
}

func (g *Generator) requestQuestions(ctx context.Context, chunk string, chunkIdx, count int, p QuizGenParams) ([]GeneratedQuestion, []GenerationFailure) {
	prompt := buildQuizPrompt(chunk, count, p)

	raw, err := g.ai.GenerateText(ctx, prompt)
	if err != nil {
		log.Printf("Gemini lỗi ở đoạn %d: %v", chunkIdx+1, err)
		return nil, []GenerationFailure{{ChunkIndex: chunkIdx, Stage: "request", Err: err}}
	}

	var arr []rawQuestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &arr); err != nil {
		log.Printf("Parse JSON lỗi ở đoạn %d: %v", chunkIdx+1, err)
		return nil, []GenerationFailure{{ChunkIndex: chunkIdx, Stage: "parse", Err: err}}
	}

	var out []GeneratedQuestion
	for _, rq := range arr {
		if q, ok := normalizeRawQuestion(rq); ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (g *Generator) requestCards(ctx context.Context, chunk string, chunkIdx, count int, p CardGenParams) ([]GeneratedCard, []GenerationFailure) {
	prompt := buildCardPrompt(chunk, count, p)

	raw, err := g.ai.GenerateText(ctx, prompt)
	if err != nil {
		log.Printf("Gemini lỗi ở đoạn %d: %v", chunkIdx+1, err)
		return nil, []GenerationFailure{{ChunkIndex: chunkIdx, Stage: "request", Err: err}}
	}

	var arr []rawCard
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &arr); err != nil {
		log.Printf("Parse JSON lỗi ở đoạn %d: %v", chunkIdx+1, err)
		return nil, []GenerationFailure{{ChunkIndex: chunkIdx, Stage: "parse", Err: err}}
	}

	var out []GeneratedCard
	for _, rc := range arr {
		front := strings.TrimSpace(rc.Front)
		back := strings.TrimSpace(rc.Back)
		if front == "" || back == "" {
			continue
		}
		out = append(out, GeneratedCard{
			Front:       front,
			Back:        back,
			Explanation: strings.TrimSpace(rc.Explanation),
		})
	}
	return out, nil
}

// normalizeRawQuestion chuẩn hoá một câu hỏi thô: ép options, đổi đáp án
// dạng chữ cái sang text, và loại câu vi phạm bất biến đáp án/option.
func normalizeRawQuestion(rq rawQuestion) (GeneratedQuestion, bool) {
	question := strings.TrimSpace(rq.Question)
	if question == "" {
		return GeneratedQuestion{}, false
	}

	qType := models.QuestionType(strings.TrimSpace(rq.Type))
	switch qType {
	case models.QuestionMultipleChoice, models.QuestionSingleChoice, models.QuestionTrueFalse:
	case "":
		qType = models.QuestionSingleChoice
	default:
		return GeneratedQuestion{}, false
	}

	options := NormalizeOptions(rq.Options)
	if qType == models.QuestionTrueFalse {
		options = []string{"True", "False"}
	}
	if len(options) < 2 {
		return GeneratedQuestion{}, false
	}

	answers := NormalizeAnswers(decodeAnswerList(rq.CorrectAnswer), options)
	if qType == models.QuestionTrueFalse {
		answers = canonicalTrueFalse(answers)
	}

	switch qType {
	case models.QuestionMultipleChoice:
		if !answersWithinOptions(answers, options) {
			return GeneratedQuestion{}, false
		}
	default:
		// single_choice / true_false: đúng 1 đáp án
		if len(answers) != 1 || !answersWithinOptions(answers, options) {
			return GeneratedQuestion{}, false
		}
	}

	return GeneratedQuestion{
		Type:           qType,
		Question:       question,
		Options:        options,
		CorrectAnswers: answers,
		Explanation:    strings.TrimSpace(rq.Explanation),
	}, true
}

// decodeAnswerList chấp nhận cả "a" lẫn ["a","c"] từ model.
func decodeAnswerList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}

// canonicalTrueFalse đưa "true"/"false" mọi kiểu viết về đúng "True"/"False".
func canonicalTrueFalse(answers []string) []string {
	out := make([]string, 0, len(answers))
	for _, ans := range answers {
		switch strings.ToLower(strings.TrimSpace(ans)) {
		case "true", "đúng":
			out = append(out, "True")
		case "false", "sai":
			out = append(out, "False")
		default:
			out = append(out, ans)
		}
	}
	return out
}

// cleanModelJSON gỡ markdown fence quanh JSON mà Gemini hay thêm vào.
func cleanModelJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.Trim(clean, "`")
	clean = strings.TrimPrefix(clean, "json")
	return strings.TrimSpace(clean)
}

func buildQuizPrompt(chunk string, count int, p QuizGenParams) string {
	language := p.Language
	if language == "" {
		language = "tiếng Việt"
	}
	difficulty := p.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	mode := p.Mode
	if mode == "" {
		mode = "ôn tập"
	}

	typeLine := `- "type" là một trong: "multiple_choice" (nhiều đáp án đúng), "single_choice" (1 đáp án đúng), "true_false" (options đúng 2 giá trị "True", "False").`
	if p.Type != "" {
		typeLine = fmt.Sprintf(`- Tất cả câu hỏi có "type" = %q.`, string(p.Type))
	}

	return fmt.Sprintf(`
Bạn là AI tạo câu hỏi trắc nghiệm giáo dục cho mục đích %s.
Hãy tạo %d câu hỏi trắc nghiệm bằng %s, độ khó %s, từ đoạn văn sau.

Yêu cầu:
%s
- "options": danh sách các lựa chọn (text đầy đủ, không đánh số, không trùng nhau).
- "correct_answer": text đầy đủ của (các) lựa chọn đúng; với multiple_choice là mảng.
- Mỗi câu có "explanation" ngắn gọn giải thích đáp án.

Trả về JSON hợp lệ đúng cấu trúc:
[
  {
    "type": "single_choice",
    "question": "Câu hỏi là gì?",
    "options": ["Phương án A", "Phương án B", "Phương án C", "Phương án D"],
    "correct_answer": "Phương án A",
    "explanation": "Vì sao đáp án này đúng."
  }
]

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.

Đoạn văn:
%s
`, mode, count, language, difficulty, typeLine, chunk)
}

func buildCardPrompt(chunk string, count int, p CardGenParams) string {
	language := p.Language
	if language == "" {
		language = "tiếng Việt"
	}
	difficulty := p.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	return fmt.Sprintf(`
Bạn là AI hỗ trợ học tập.
Từ đoạn văn sau, hãy tạo ra %d flashcard bằng %s, độ khó %s.
Mỗi flashcard gồm:
- "front": câu hỏi, định nghĩa hoặc khái niệm
- "back": câu trả lời hoặc giải thích ngắn gọn
- "explanation": bổ sung ngữ cảnh (có thể bỏ trống)
Trả kết quả đúng **định dạng JSON** như ví dụ:
[
  {"front": "Câu hỏi 1?", "back": "Trả lời 1", "explanation": ""},
  {"front": "Câu hỏi 2?", "back": "Trả lời 2", "explanation": ""}
]

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.

Đoạn văn:
%s
`, count, language, difficulty, chunk)
}
