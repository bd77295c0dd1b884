package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrMissingAPIKey: không có API key thì không tạo được client, lỗi fatal,
// trả thẳng cho caller (khác với lỗi từng chunk, chỉ bị bỏ qua).
var ErrMissingAPIKey = errors.New("thiếu GEMINI_API_KEY")

// GeminiConfig là cấu hình tường minh cho client, truyền vào constructor
// thay vì đọc env rải rác trong code sinh nội dung.
type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int32
}

// GeminiConfigFromEnv đọc cấu hình từ biến môi trường (chỉ gọi ở tầng khởi tạo).
func GeminiConfigFromEnv() GeminiConfig {
	cfg := GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if v := os.Getenv("GEMINI_MAX_OUTPUT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxOutputTokens = int32(n)
		}
	}
	return cfg
}

// TextGenerator trừu tượng hoá backend sinh nội dung (Gemini thật hoặc fake trong test).
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
}

// NewGeminiClient tạo Gemini client từ cấu hình tường minh.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("không thể tạo Gemini client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

// GenerateText gửi prompt và trả về text từ Gemini.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if g.maxOutputTokens > 0 {
		model.SetMaxOutputTokens(g.maxOutputTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("lỗi Gemini xử lý: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini không trả kết quả hợp lệ")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}
