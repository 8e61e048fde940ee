package quality

import (
	"fmt"

	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
	"github.com/plateflow/plateflow-backend/pkg/config"
)

// Thresholds holds the quality gate limits. All five checks are
// independently tunable; DefaultThresholds matches the values the
// capture flow was calibrated against.
type Thresholds struct {
	MinWidth             int
	MinHeight            int
	MinLaplacianVariance float64
	MaxAngleDeg          float64
	MinBrightness        float64
	MaxBrightness        float64
}

// DefaultThresholds returns the calibrated default limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWidth:             640,
		MinHeight:            480,
		MinLaplacianVariance: 100,
		MaxAngleDeg:          45,
		MinBrightness:        50,
		MaxBrightness:        200,
	}
}

// ThresholdsFromConfig builds gate thresholds from service configuration.
func ThresholdsFromConfig(cfg *config.QualityConfig) Thresholds {
	return Thresholds{
		MinWidth:             cfg.MinWidth,
		MinHeight:            cfg.MinHeight,
		MinLaplacianVariance: cfg.MinLaplacianVariance,
		MaxAngleDeg:          cfg.MaxAngleDeg,
		MinBrightness:        cfg.MinBrightness,
		MaxBrightness:        cfg.MaxBrightness,
	}
}

// Gate scores captured frames against the thresholds before any network
// call is made. Pure and stateless; safe for concurrent use.
type Gate struct {
	thresholds Thresholds
}

// NewGate creates a quality gate with the given thresholds.
func NewGate(thresholds Thresholds) *Gate {
	return &Gate{thresholds: thresholds}
}

// Validate evaluates every check and returns the full list of failures.
// Checks are independent and never short-circuit: the caller needs all
// remediation suggestions, not just the first.
func (g *Gate) Validate(img domain.CapturedImage, metrics domain.ImageQualityMetrics) []domain.ValidationError {
	var errs []domain.ValidationError
	t := g.thresholds

	if img.Width < t.MinWidth || img.Height < t.MinHeight {
		errs = append(errs, domain.ValidationError{
			Code: domain.ValidationResolution,
			Message: fmt.Sprintf("image resolution %dx%d is below the %dx%d minimum",
				img.Width, img.Height, t.MinWidth, t.MinHeight),
			Suggestion: "move closer to the plate or increase the camera resolution",
		})
	}

	if metrics.LaplacianVariance < t.MinLaplacianVariance {
		errs = append(errs, domain.ValidationError{
			Code: domain.ValidationBlur,
			Message: fmt.Sprintf("image is too blurry (sharpness %.1f, minimum %.1f)",
				metrics.LaplacianVariance, t.MinLaplacianVariance),
			Suggestion: "hold the camera steady and let it focus before capturing",
		})
	}

	if metrics.EstimatedAngleDeg > t.MaxAngleDeg {
		errs = append(errs, domain.ValidationError{
			Code: domain.ValidationAngleTooSteep,
			Message: fmt.Sprintf("capture angle %.1f degrees exceeds the %.1f degree limit",
				metrics.EstimatedAngleDeg, t.MaxAngleDeg),
			Suggestion: "face the plate straight on so it is not skewed in the frame",
		})
	}

	if metrics.AverageBrightness < t.MinBrightness {
		errs = append(errs, domain.ValidationError{
			Code: domain.ValidationTooDark,
			Message: fmt.Sprintf("image is too dark (brightness %.1f, minimum %.1f)",
				metrics.AverageBrightness, t.MinBrightness),
			Suggestion: "move to better lighting or enable the camera flash",
		})
	}

	if metrics.AverageBrightness > t.MaxBrightness {
		errs = append(errs, domain.ValidationError{
			Code: domain.ValidationTooBright,
			Message: fmt.Sprintf("image is overexposed (brightness %.1f, maximum %.1f)",
				metrics.AverageBrightness, t.MaxBrightness),
			Suggestion: "avoid direct light sources and glare on the plate",
		})
	}

	return errs
}
