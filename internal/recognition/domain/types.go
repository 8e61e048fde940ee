package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// PlateCategory classifies the plate by its registration class
type PlateCategory string

const (
	CategoryRegular        PlateCategory = "regular"
	CategoryLight          PlateCategory = "light"
	CategoryCommercial     PlateCategory = "commercial"
	CategoryRentalOrShared PlateCategory = "rental_or_shared"
	CategoryDiplomatic     PlateCategory = "diplomatic"
)

// PlateResult is the structured recognition result for a license plate.
// FullText is always the deterministic concatenation of the component
// fields; use ComposeFullText to build it.
type PlateResult struct {
	Region         string        `json:"region"`
	Classification string        `json:"classification"`
	Kana           string        `json:"kana"`
	Serial         string        `json:"serial"`
	FullText       string        `json:"full_text"`
	Confidence     int           `json:"confidence"`
	Category       PlateCategory `json:"category"`
	RecognizedAt   time.Time     `json:"recognized_at"`
}

// ComposeFullText builds the canonical full plate text from its parts.
// Empty parts are skipped so partial reads still produce a stable key.
func ComposeFullText(region, classification, kana, serial string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{region, classification, kana, serial} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// CapturedImage is a frame produced by the camera collaborator.
// Img holds the decoded pixels, Raw the original encoded bytes as
// uploaded. Immutable once created.
type CapturedImage struct {
	Img        image.Image
	Raw        []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// NewCapturedImage wraps a decoded image and its encoded bytes.
func NewCapturedImage(img image.Image, raw []byte, capturedAt time.Time) CapturedImage {
	b := img.Bounds()
	return CapturedImage{
		Img:        img,
		Raw:        raw,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: capturedAt,
	}
}

// Hash returns the hex SHA-256 of the decoded pixel data, normalized to
// an NRGBA plane. Two different encodings of the same pixels hash
// identically, so the hash is a stable cache key for the frame content.
func (c CapturedImage) Hash() string {
	nrgba := imaging.Clone(c.Img)
	sum := sha256.Sum256(nrgba.Pix)
	return hex.EncodeToString(sum[:])
}

// ImageQualityMetrics holds the per-frame quality measurements used by
// the quality gate. Computed once per request, never stored.
type ImageQualityMetrics struct {
	LaplacianVariance float64 `json:"laplacian_variance"`
	EstimatedAngleDeg float64 `json:"estimated_angle_deg"`
	AverageBrightness float64 `json:"average_brightness"`
}

// ValidationCode identifies a quality gate failure
type ValidationCode string

const (
	ValidationResolution    ValidationCode = "Resolution"
	ValidationBlur          ValidationCode = "Blur"
	ValidationAngleTooSteep ValidationCode = "AngleTooSteep"
	ValidationTooDark       ValidationCode = "TooDark"
	ValidationTooBright     ValidationCode = "TooBright"
)

// ValidationError describes a single quality gate failure with a
// remediation suggestion for the person holding the camera.
type ValidationError struct {
	Code       ValidationCode `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// AttemptOutcome classifies how a pipeline request ended
type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "success"
	OutcomeValidationFailed AttemptOutcome = "validation_failed"
	OutcomeRateLimited      AttemptOutcome = "rate_limited"
	OutcomeFailed           AttemptOutcome = "failed"
	OutcomeSuppressed       AttemptOutcome = "suppressed"
)

// RecognitionAttempt is the audit record of one pipeline request.
// It carries the image hash for traceability, never raw pixels.
type RecognitionAttempt struct {
	ImageHash   string         `json:"image_hash" db:"image_hash"`
	Outcome     AttemptOutcome `json:"outcome" db:"outcome"`
	ErrorCode   string         `json:"error_code,omitempty" db:"error_code"`
	Confidence  int            `json:"confidence" db:"confidence"`
	FromCache   bool           `json:"from_cache" db:"from_cache"`
	DurationMs  int64          `json:"duration_ms" db:"duration_ms"`
	AttemptedAt time.Time      `json:"attempted_at" db:"attempted_at"`
}
