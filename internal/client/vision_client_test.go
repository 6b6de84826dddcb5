package client

import (
	"context"
	"errors"
	"image"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-service/internal/config"
	"plate-service/internal/recognition"
)

const testBaseURL = "http://vision.local"

func newTestClient(t *testing.T) (*VisionClient, *httpmock.MockTransport) {
	t.Helper()
	cfg := &config.Config{Vision: config.VisionConfig{
		ServiceURL:    testBaseURL,
		InternalToken: "internal-token",
		Timeout:       time.Second,
	}}
	c := NewVisionClient(cfg)
	c.retryDelay = time.Millisecond

	mock := httpmock.NewMockTransport()
	c.httpClient.Transport = mock
	return c, mock
}

func TestVisionClient_Regions(t *testing.T) {
	c, mock := newTestClient(t)

	mock.RegisterResponder(http.MethodPost, testBaseURL+regionsPath,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "internal-token", req.Header.Get("X-Internal-Token"))
			require.NoError(t, req.ParseMultipartForm(1<<20))
			file, _, err := req.FormFile("image")
			require.NoError(t, err)
			defer file.Close()

			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"data": map[string]any{
					"regions": []map[string]any{
						{"index": 0, "area": 5400.5, "bounds": map[string]int{"x": 10, "y": 20, "width": 120, "height": 45}, "image": []byte("crop-0")},
						{"index": 1, "area": 900, "bounds": map[string]int{"x": 0, "y": 0, "width": 30, "height": 30}, "image": []byte("crop-1")},
					},
					"frame": []byte("prepared"),
				},
			})
		})

	scan, err := c.Regions(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	require.Len(t, scan.Regions, 2)
	assert.Equal(t, image.Rect(10, 20, 130, 65), scan.Regions[0].Bounds)
	assert.Equal(t, 5400.5, scan.Regions[0].Area)
	assert.Equal(t, []byte("crop-0"), scan.Regions[0].Raster)
	assert.Equal(t, []byte("prepared"), scan.Frame)
}

func TestVisionClient_ReadRegion(t *testing.T) {
	c, mock := newTestClient(t)

	mock.RegisterResponder(http.MethodPost, testBaseURL+ocrPath,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			assert.Equal(t, ocrModeRegion, req.FormValue("mode"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"data": map[string]any{"texts": []map[string]any{
					{"value": "ABC-123", "confidence": 0.91},
					{"value": "BOGOTA", "confidence": 0.4},
				}},
			})
		})

	text, err := c.ReadRegion(context.Background(), recognition.Region{Raster: []byte("crop")})
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", text)
}

func TestVisionClient_ReadRegionWithoutRaster(t *testing.T) {
	c, mock := newTestClient(t)

	_, err := c.ReadRegion(context.Background(), recognition.Region{})
	assert.ErrorIs(t, err, recognition.ErrNoPlateDetected)
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestVisionClient_ReadFrame(t *testing.T) {
	c, mock := newTestClient(t)

	mock.RegisterResponder(http.MethodPost, testBaseURL+ocrPath,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			assert.Equal(t, ocrModeFrame, req.FormValue("mode"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"data": map[string]any{"texts": []map[string]any{
					{"value": "[TL:885", "confidence": 0.5},
				}},
			})
		})

	texts, err := c.ReadFrame(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, []recognition.Text{{Value: "[TL:885", Confidence: 0.5}}, texts)
}

func TestVisionClient_NoPlateStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusUnprocessableEntity} {
		c, mock := newTestClient(t)
		mock.RegisterResponder(http.MethodPost, testBaseURL+regionsPath, httpmock.NewStringResponder(status, ""))

		_, err := c.Regions(context.Background(), []byte("jpeg"))
		assert.ErrorIs(t, err, recognition.ErrNoPlateDetected, "status %d", status)
	}
}

func TestVisionClient_NullData(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodPost, testBaseURL+ocrPath, httpmock.NewStringResponder(http.StatusOK, `{"data":null}`))

	_, err := c.ReadFrame(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, recognition.ErrNoPlateDetected)
}

func TestVisionClient_ServerError(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodPost, testBaseURL+ocrPath, httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	_, err := c.ReadFrame(context.Background(), []byte("frame"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.NotErrorIs(t, err, recognition.ErrNoPlateDetected)
	// на ответ сервера не повторяем
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestVisionClient_RetriesNetworkErrors(t *testing.T) {
	c, mock := newTestClient(t)

	calls := 0
	mock.RegisterResponder(http.MethodPost, testBaseURL+ocrPath,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection reset")
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"data": map[string]any{"texts": []map[string]any{{"value": "XYZ987"}}},
			})
		})

	texts, err := c.ReadFrame(context.Background(), []byte("frame"))
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, 3, calls)
}

func TestVisionClient_GivesUpAfterRetries(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodPost, testBaseURL+regionsPath, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Regions(context.Background(), []byte("jpeg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, mock.GetTotalCallCount())
}

func TestVisionClient_NotConfigured(t *testing.T) {
	c := NewVisionClient(&config.Config{})

	_, err := c.ReadFrame(context.Background(), []byte("frame"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
