package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/plateflow/plateflow-backend/internal/recognition/cache"
	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
	"github.com/plateflow/plateflow-backend/internal/recognition/handler"
	"github.com/plateflow/plateflow-backend/internal/recognition/pipeline"
	"github.com/plateflow/plateflow-backend/internal/recognition/quality"
	"github.com/plateflow/plateflow-backend/internal/recognition/ratelimit"
	"github.com/plateflow/plateflow-backend/internal/recognition/suppress"
	"github.com/plateflow/plateflow-backend/pkg/httputil"
	"github.com/plateflow/plateflow-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer struct {
	plate *domain.PlateResult
	err   error
}

func (s *stubRecognizer) Recognize(context.Context, []byte) (*domain.PlateResult, error) {
	return s.plate, s.err
}

func newTestRouter(t *testing.T, rec *stubRecognizer) *chi.Mux {
	t.Helper()
	log := logger.New("test", "test")

	// Lenient gate so small synthetic frames pass; the gate itself is
	// covered by its own tests.
	deps := pipeline.Deps{
		Gate: quality.NewGate(quality.Thresholds{
			MinWidth: 1, MinHeight: 1,
			MinLaplacianVariance: 0,
			MaxAngleDeg:          180,
			MinBrightness:        0,
			MaxBrightness:        255,
		}),
		Cache:      cache.New(5*time.Minute, 100),
		Limiter:    ratelimit.New(3, time.Minute, 100),
		Suppressor: suppress.New(5*time.Second, 100),
		Recognizer: rec,
		Logger:     log,
	}

	singleShot := pipeline.New(pipeline.Config{Mode: pipeline.ModeSingleShot}, deps)
	realtime := pipeline.New(pipeline.Config{Mode: pipeline.ModeRealtime}, deps)

	r := chi.NewRouter()
	r.Route("/api/v1", handler.NewHandler(singleShot, realtime, log).Routes)
	return r
}

func pngUpload(t *testing.T, mode string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if mode != "" {
		require.NoError(t, writer.WriteField("mode", mode))
	}
	part, err := writer.CreateFormFile("file", "frame.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func doRequest(router *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Recognize_Success(t *testing.T) {
	rec := &stubRecognizer{plate: &domain.PlateResult{
		Region:     "品川",
		Serial:     "12-34",
		FullText:   "品川 12-34",
		Confidence: 88,
		Category:   domain.CategoryRegular,
	}}
	router := newTestRouter(t, rec)

	body, contentType := pngUpload(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    pipeline.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data.Plate)
	assert.Equal(t, "品川 12-34", resp.Data.Plate.FullText)
	assert.NotEmpty(t, resp.Data.ImageHash)
	assert.False(t, resp.Data.Suppressed)
}

func TestHandler_Recognize_RealtimeMode(t *testing.T) {
	rec := &stubRecognizer{plate: &domain.PlateResult{
		Region: "品川", FullText: "品川", Confidence: 80, Category: domain.CategoryRegular,
	}}
	router := newTestRouter(t, rec)

	body, contentType := pngUpload(t, "realtime")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data pipeline.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.OccurrenceCount, "realtime mode tracks occurrences")
}

func TestHandler_Recognize_InvalidMode(t *testing.T) {
	router := newTestRouter(t, &stubRecognizer{})

	body, contentType := pngUpload(t, "burst")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestHandler_Recognize_MissingFile(t *testing.T) {
	router := newTestRouter(t, &stubRecognizer{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("mode", "single_shot"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "missing file")
}

func TestHandler_Recognize_UndecodableFile(t *testing.T) {
	router := newTestRouter(t, &stubRecognizer{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("this is not an image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Recognize_NotMultipart(t *testing.T) {
	router := newTestRouter(t, &stubRecognizer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions",
		bytes.NewBufferString(`{"mode": "single_shot"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Stats(t *testing.T) {
	router := newTestRouter(t, &stubRecognizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recognitions/stats", nil)
	rr := doRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Cache     cache.Stats     `json:"cache"`
			RateLimit ratelimit.Stats `json:"rate_limit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.RateLimit.MaxConcurrent)
}
