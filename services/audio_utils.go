package services

import (
	"bytes"
	"io"
	"time"

	"github.com/tcolgate/mp3"
)

// GetMP3Duration tính thời lượng (giây) của dữ liệu MP3 bằng cách duyệt
// từng frame. Frame hỏng ở cuối stream được bỏ qua.
func GetMP3Duration(data []byte) (float64, error) {
	decoder := mp3.NewDecoder(bytes.NewReader(data))

	var total time.Duration
	var frame mp3.Frame
	skipped := 0
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			break
		}
		total += frame.Duration()
	}
	return total.Seconds(), nil
}
