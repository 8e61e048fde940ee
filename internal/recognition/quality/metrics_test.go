package quality_test

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/plateflow/plateflow-backend/internal/recognition/quality"
	"github.com/stretchr/testify/assert"
)

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func noiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestComputeMetrics_UniformImage(t *testing.T) {
	tests := []struct {
		name           string
		pixel          color.NRGBA
		wantBrightness float64
	}{
		{"black", color.NRGBA{0, 0, 0, 255}, 0},
		{"white", color.NRGBA{255, 255, 255, 255}, 255},
		{"mid gray", color.NRGBA{128, 128, 128, 255}, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quality.ComputeMetrics(uniformImage(32, 32, tt.pixel))

			// A flat image has no edges at all.
			assert.InDelta(t, 0, m.LaplacianVariance, 0.001)
			assert.InDelta(t, 0, m.EstimatedAngleDeg, 0.001)
			assert.InDelta(t, tt.wantBrightness, m.AverageBrightness, 0.5)
		})
	}
}

func TestComputeMetrics_BrightnessUsesLuminanceWeights(t *testing.T) {
	// Pure red: 0.299 * 255 ~= 76.2
	m := quality.ComputeMetrics(uniformImage(16, 16, color.NRGBA{R: 255, A: 255}))
	assert.InDelta(t, 76.2, m.AverageBrightness, 1.0)

	// Pure green: 0.587 * 255 ~= 149.7
	m = quality.ComputeMetrics(uniformImage(16, 16, color.NRGBA{G: 255, A: 255}))
	assert.InDelta(t, 149.7, m.AverageBrightness, 1.0)
}

func TestComputeMetrics_NoiseIsSharperThanFlat(t *testing.T) {
	flat := quality.ComputeMetrics(uniformImage(64, 64, color.NRGBA{128, 128, 128, 255}))
	noisy := quality.ComputeMetrics(noiseImage(64, 64, 42))

	assert.Greater(t, noisy.LaplacianVariance, flat.LaplacianVariance)
	assert.Greater(t, noisy.LaplacianVariance, 100.0,
		"pixel noise should score well above the blur threshold")
}

func TestComputeMetrics_VerticalEdgesAreAxisAligned(t *testing.T) {
	// Alternating vertical black/white stripes: all strong gradients
	// are horizontal, so the dominant orientation sits on an axis.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(0)
			if (x/4)%2 == 0 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	m := quality.ComputeMetrics(img)
	assert.LessOrEqual(t, m.EstimatedAngleDeg, 5.0)
}

func TestComputeMetrics_TinyImage(t *testing.T) {
	// A 2x2 frame has no interior pixels for the convolutions.
	m := quality.ComputeMetrics(uniformImage(2, 2, color.NRGBA{128, 128, 128, 255}))
	assert.Zero(t, m.LaplacianVariance)
	assert.Zero(t, m.EstimatedAngleDeg)
	assert.InDelta(t, 128, m.AverageBrightness, 0.5)
}
