// Package recognizer is the HTTP client for the external vision
// service. The service is a black box: image bytes in, a parsed plate
// or a tagged error out.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
)

// JPEG and PNG magic bytes for image detection
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// Recognizer is the collaborator boundary the pipeline calls through.
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte) (*domain.PlateResult, error)
}

// Client calls the vision service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a recognizer client for the given vision service URL.
// The HTTP client carries no timeout of its own; deadlines are owned by
// the caller's context so the retry orchestrator stays in charge.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Recognize sends the image to the vision service and parses the plate.
func (c *Client) Recognize(ctx context.Context, imageData []byte) (*domain.PlateResult, error) {
	if !isImageData(imageData) {
		return nil, invalidResponse("data is not a JPEG or PNG image")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.bin")
	if err != nil {
		return nil, parseError("create form file", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, parseError("write image data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, parseError("close multipart writer", err)
	}

	url := c.baseURL + "/api/v1/recognize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, parseError("create request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, timeout("vision service request timed out", err)
		}
		return nil, connectionFailed("vision service request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionFailed("read response body", err)
	}

	// 5xx responses are transient service trouble; anything else
	// non-OK means this request cannot succeed as sent.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, connectionFailed(fmt.Sprintf("vision service returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, invalidResponse(fmt.Sprintf("vision service returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var visionResp visionRecognizeResponse
	if err := json.Unmarshal(respBody, &visionResp); err != nil {
		return nil, parseError("parse response", err)
	}

	if visionResp.Plate == nil {
		return nil, noPlateDetected("no plate found in frame")
	}

	return visionResp.Plate.toDomain(visionResp.Confidence), nil
}

// isImageData checks for JPEG or PNG magic bytes at the start of the data.
func isImageData(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, pngMagic)
}

// visionRecognizeResponse mirrors the vision service response model.
type visionRecognizeResponse struct {
	RawText    string       `json:"raw_text"`
	Plate      *visionPlate `json:"plate"`
	Confidence int          `json:"confidence"`
}

type visionPlate struct {
	Region         string `json:"region"`
	Classification string `json:"classification"`
	Kana           string `json:"kana"`
	Serial         string `json:"serial"`
	Category       string `json:"category"`
}

func (p *visionPlate) toDomain(confidence int) *domain.PlateResult {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return &domain.PlateResult{
		Region:         p.Region,
		Classification: p.Classification,
		Kana:           p.Kana,
		Serial:         p.Serial,
		FullText:       domain.ComposeFullText(p.Region, p.Classification, p.Kana, p.Serial),
		Confidence:     confidence,
		Category:       categoryFromString(p.Category),
		RecognizedAt:   time.Now().UTC(),
	}
}

func categoryFromString(s string) domain.PlateCategory {
	switch domain.PlateCategory(s) {
	case domain.CategoryLight, domain.CategoryCommercial,
		domain.CategoryRentalOrShared, domain.CategoryDiplomatic:
		return domain.PlateCategory(s)
	default:
		return domain.CategoryRegular
	}
}
