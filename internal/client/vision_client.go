package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"plate-service/internal/config"
	"plate-service/internal/recognition"
)

const (
	regionsPath = "/internal/vision/regions"
	ocrPath     = "/internal/vision/ocr"

	ocrModeRegion = "region"
	ocrModeFrame  = "frame"
)

type visionBounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type visionRegion struct {
	Index  int          `json:"index"`
	Area   float64      `json:"area"`
	Bounds visionBounds `json:"bounds"`
	Image  []byte       `json:"image"`
}

type regionsPayload struct {
	Regions []visionRegion `json:"regions"`
	Frame   []byte         `json:"frame"`
}

type ocrPayload struct {
	Texts []recognition.Text `json:"texts"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// VisionClient обращается к внешнему сервису компьютерного зрения:
// поиск областей номера и OCR.
type VisionClient struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
	maxRetries    int
	retryDelay    time.Duration
}

func NewVisionClient(cfg *config.Config) *VisionClient {
	timeout := cfg.Vision.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VisionClient{
		baseURL:       cfg.Vision.ServiceURL,
		internalToken: cfg.Vision.InternalToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

// Regions возвращает кандидатов в порядке убывания площади.
func (c *VisionClient) Regions(ctx context.Context, frame []byte) (*recognition.Scan, error) {
	var payload regionsPayload
	if err := c.post(ctx, regionsPath, frame, nil, &payload); err != nil {
		return nil, err
	}

	scan := &recognition.Scan{Frame: payload.Frame}
	for _, r := range payload.Regions {
		scan.Regions = append(scan.Regions, recognition.Region{
			Index:  r.Index,
			Area:   r.Area,
			Bounds: image.Rect(r.Bounds.X, r.Bounds.Y, r.Bounds.X+r.Bounds.Width, r.Bounds.Y+r.Bounds.Height),
			Raster: r.Image,
		})
	}
	return scan, nil
}

// ReadRegion возвращает первую строку, прочитанную в области.
func (c *VisionClient) ReadRegion(ctx context.Context, region recognition.Region) (string, error) {
	if len(region.Raster) == 0 {
		return "", recognition.ErrNoPlateDetected
	}
	texts, err := c.ocr(ctx, region.Raster, ocrModeRegion)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", recognition.ErrNoPlateDetected
	}
	return texts[0].Value, nil
}

func (c *VisionClient) ReadFrame(ctx context.Context, frame []byte) ([]recognition.Text, error) {
	return c.ocr(ctx, frame, ocrModeFrame)
}

func (c *VisionClient) ocr(ctx context.Context, img []byte, mode string) ([]recognition.Text, error) {
	var payload ocrPayload
	if err := c.post(ctx, ocrPath, img, map[string]string{"mode": mode}, &payload); err != nil {
		return nil, err
	}
	return payload.Texts, nil
}

func (c *VisionClient) post(ctx context.Context, path string, img []byte, fields map[string]string, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("vision service URL is not configured")
	}

	body, contentType, err := multipartBody(img, fields)
	if err != nil {
		return err
	}

	newRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		if c.internalToken != "" {
			req.Header.Set("X-Internal-Token", c.internalToken)
		}
		return req, nil
	}

	// повтор только при сетевых ошибках
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := newRequest()
		if err != nil {
			return err
		}
		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if attempt == c.maxRetries-1 {
			return fmt.Errorf("failed to execute request after %d attempts: %w", c.maxRetries, lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.retryDelay):
		}
	}
	if resp == nil {
		return fmt.Errorf("failed to execute request: %w", lastErr)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound, http.StatusUnprocessableEntity:
		return recognition.ErrNoPlateDetected
	default:
		return fmt.Errorf("vision service returned status %d: %s", resp.StatusCode, string(raw))
	}

	response := envelope[json.RawMessage]{}
	if err := json.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Data) == 0 || string(response.Data) == "null" {
		return recognition.ErrNoPlateDetected
	}
	if err := json.Unmarshal(response.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

func multipartBody(img []byte, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", "frame")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
