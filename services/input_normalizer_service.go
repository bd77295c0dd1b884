package services

import (
	"errors"
	"mime/multipart"

	"github.com/vnkhanh/e-study-backend/models"
)

// Định nghĩa loại input
type InputType string

const (
	InputText    InputType = "text"
	InputTXT     InputType = "txt"
	InputDOCX    InputType = "docx"
	InputPDF     InputType = "pdf"
	InputLink    InputType = "link"
	InputSubject InputType = "subject"
)

// Struct đại diện cho nguồn input của người học
type InputSource struct {
	Type       InputType
	FileHeader *multipart.FileHeader // Nếu là file (txt, docx, pdf)
	Text       string                // Nếu người dùng nhập tay / URL / chủ đề
}

// NormalizeInput xử lý input thành plain text.
// Link và subject giữ nguyên giá trị, việc mở rộng thành chunk
// nằm ở ChunksForContext.
func NormalizeInput(input InputSource) (string, error) {
	switch input.Type {
	case InputText, InputLink, InputSubject:
		return input.Text, nil

	case InputTXT:
		return ExtractTextFromTXT(input.FileHeader)

	case InputPDF:
		f, err := input.FileHeader.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		return ExtractTextFromPDF(f)

	case InputDOCX:
		return ExtractTextFromDOCX(input.FileHeader)

	default:
		return "", errors.New("loại input không được hỗ trợ")
	}
}

// ChunksForContext chia nội dung thành chunks theo loại nguồn:
// subject trần -> 3 prompt hướng dẫn; link không có text -> 1 chunk bọc URL;
// còn lại chia văn bản theo câu. Input rỗng -> slice rỗng, không lỗi.
func ChunksForContext(sourceType models.SourceType, sourceValue, text string) []string {
	switch sourceType {
	case models.SourceSubject:
		return ChunkSubject(sourceValue)
	case models.SourceLink, models.SourceYoutube:
		if text == "" {
			return ChunkURL(sourceValue)
		}
		return ChunkText(text)
	default:
		return ChunkText(text)
	}
}

// SourceTypeFromInput ánh xạ loại input sang loại nguồn lưu trong DB.
func SourceTypeFromInput(t InputType) models.SourceType {
	switch t {
	case InputText, InputTXT, InputDOCX:
		return models.SourceText
	case InputPDF:
		return models.SourcePDF
	case InputLink:
		return models.SourceLink
	case InputSubject:
		return models.SourceSubject
	default:
		return models.SourceUnknown
	}
}
