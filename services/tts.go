package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Giới hạn an toàn dưới mức 5000 byte của API
const ttsMaxChunkBytes = 4500

// SynthesizeText chuyển nội dung ghi chú thành audio MP3 tiếng Việt.
// Văn bản dài được cắt thành nhiều đoạn và ghép kết quả lại.
func SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	credPath := os.Getenv("GOOGLE_CREDENTIALS_JSON")
	if credPath == "" {
		return nil, fmt.Errorf("thiếu GOOGLE_CREDENTIALS_JSON")
	}

	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("không tạo được TTS client: %w", err)
	}
	defer client.Close()

	var audio []byte
	for _, chunk := range splitTextToChunksByByte(text, ttsMaxChunkBytes) {
		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: "vi-VN",
				SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			},
		}
		resp, err := client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("lỗi synthesize: %w", err)
		}
		audio = append(audio, resp.AudioContent...)
	}
	return audio, nil
}

// splitTextToChunksByByte cắt văn bản theo giới hạn byte, ưu tiên cắt tại
// dấu câu và không bao giờ cắt giữa một ký tự UTF-8.
func splitTextToChunksByByte(text string, maxBytes int) []string {
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxBytes {
			chunks = append(chunks, text)
			break
		}

		cut := maxBytes
		// Lùi về dấu câu gần nhất nếu có
		if idx := strings.LastIndexAny(text[:cut], ".!?\n"); idx > maxBytes/2 {
			cut = idx + 1
		}
		// Không cắt giữa ký tự nhiều byte
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxBytes
		}

		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}
