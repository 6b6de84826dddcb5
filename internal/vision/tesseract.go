//go:build vision

package vision

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"plate-service/internal/recognition"
)

// TesseractReader: OCR через Tesseract. Клиент gosseract не потокобезопасен,
// поэтому вызовы сериализуются.
type TesseractReader struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseractReader(language string) (*TesseractReader, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// номер не слово из словаря
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &TesseractReader{client: client}, nil
}

func (r *TesseractReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

func (r *TesseractReader) ReadRegion(ctx context.Context, region recognition.Region) (string, error) {
	if len(region.Raster) == 0 {
		return "", recognition.ErrNoPlateDetected
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.prepare(region.Raster, gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", err
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

func (r *TesseractReader) ReadFrame(ctx context.Context, frame []byte) ([]recognition.Text, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.prepare(frame, gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, err
	}
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	texts := make([]recognition.Text, 0, len(boxes))
	for _, box := range boxes {
		value := strings.Join(strings.Fields(box.Word), " ")
		if value == "" {
			continue
		}
		texts = append(texts, recognition.Text{Value: value, Confidence: box.Confidence / 100})
	}
	return texts, nil
}

func (r *TesseractReader) prepare(img []byte, mode gosseract.PageSegMode) error {
	if err := r.client.SetPageSegMode(mode); err != nil {
		return fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := r.client.SetWhitelist(plateChars); err != nil {
		return fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := r.client.SetImageFromBytes(img); err != nil {
		return fmt.Errorf("failed to set image: %w", err)
	}
	return nil
}
