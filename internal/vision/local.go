//go:build vision

package vision

import "plate-service/internal/config"

// Local объединяет поиск контуров и Tesseract в один бэкенд.
type Local struct {
	*ContourDetector
	*TesseractReader
}

func NewLocal(cfg config.VisionConfig, maxContours int) (*Local, error) {
	reader, err := NewTesseractReader(cfg.OCRLanguage)
	if err != nil {
		return nil, err
	}
	return &Local{
		ContourDetector: NewContourDetector(maxContours),
		TesseractReader: reader,
	}, nil
}
