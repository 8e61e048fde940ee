package domain_test

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
	"github.com/stretchr/testify/assert"
)

func TestComposeFullText(t *testing.T) {
	tests := []struct {
		name                                 string
		region, classification, kana, serial string
		want                                 string
	}{
		{"all parts", "品川", "330", "あ", "12-34", "品川 330 あ 12-34"},
		{"missing kana", "品川", "330", "", "12-34", "品川 330 12-34"},
		{"region only", "品川", "", "", "", "品川"},
		{"all empty", "", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ComposeFullText(tt.region, tt.classification, tt.kana, tt.serial)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCapturedImage_Dimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 640, 480))
	captured := domain.NewCapturedImage(img, []byte{0x89}, time.Now())

	assert.Equal(t, 640, captured.Width)
	assert.Equal(t, 480, captured.Height)
}

func TestCapturedImage_HashIsContentAddressed(t *testing.T) {
	fill := func(img interface {
		Set(x, y int, c color.Color)
	}, c color.Color) {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				img.Set(x, y, c)
			}
		}
	}

	red := color.NRGBA{R: 200, G: 10, B: 10, A: 255}

	nrgba := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	fill(nrgba, red)
	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fill(rgba, red)

	a := domain.NewCapturedImage(nrgba, nil, time.Now())
	b := domain.NewCapturedImage(rgba, nil, time.Now())
	assert.Equal(t, a.Hash(), b.Hash(),
		"same pixels hash identically regardless of the in-memory format")

	blue := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	fill(blue, color.NRGBA{R: 10, G: 10, B: 200, A: 255})
	c := domain.NewCapturedImage(blue, nil, time.Now())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestCapturedImage_HashIsStable(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	captured := domain.NewCapturedImage(img, nil, time.Now())

	assert.Equal(t, captured.Hash(), captured.Hash())
	assert.Len(t, captured.Hash(), 64, "hex-encoded SHA-256")
}

func TestValidationError_Error(t *testing.T) {
	err := domain.ValidationError{
		Code:    domain.ValidationBlur,
		Message: "image is too blurry",
	}
	assert.Equal(t, "Blur: image is too blurry", err.Error())
}
