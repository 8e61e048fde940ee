package quality

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
)

// gradientMagnitudeFloor ignores weak Sobel responses when estimating
// the dominant edge orientation.
const gradientMagnitudeFloor = 50.0

// angleBinWidthDeg is the width of the orientation histogram buckets.
const angleBinWidthDeg = 5.0

// ComputeMetrics derives the quality measurements for a captured frame.
// One grayscale pass plus one 3x3 convolution pass each for the
// Laplacian and Sobel operators; no iterative refinement.
func ComputeMetrics(img image.Image) domain.ImageQualityMetrics {
	gray, w, h := grayscale(img)

	return domain.ImageQualityMetrics{
		LaplacianVariance: laplacianVariance(gray, w, h),
		EstimatedAngleDeg: dominantAngleDeviation(gray, w, h),
		AverageBrightness: meanBrightness(gray),
	}
}

// grayscale converts the image to a luminance plane using the ITU-R
// BT.601 weights 0.299R + 0.587G + 0.114B.
func grayscale(img image.Image) ([]float64, int, int) {
	// Normalize to NRGBA first so pixel access is a flat byte scan
	// regardless of the source color model.
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := y * nrgba.Stride
		for x := 0; x < w; x++ {
			i := row + x*4
			r := float64(nrgba.Pix[i])
			g := float64(nrgba.Pix[i+1])
			bl := float64(nrgba.Pix[i+2])
			gray[y*w+x] = 0.299*r + 0.587*g + 0.114*bl
		}
	}
	return gray, w, h
}

// meanBrightness returns the average luminance over all pixels.
func meanBrightness(gray []float64) float64 {
	if len(gray) == 0 {
		return 0
	}
	var sum float64
	for _, v := range gray {
		sum += v
	}
	return sum / float64(len(gray))
}

// laplacianVariance applies the discrete Laplacian kernel
// [[0,1,0],[1,-4,1],[0,1,0]] and returns the variance of the response.
// Low variance means few sharp edges, which indicates blur.
func laplacianVariance(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}

	n := (w - 2) * (h - 2)
	responses := make([]float64, 0, n)
	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			lap := gray[i-w] + gray[i+w] + gray[i-1] + gray[i+1] - 4*gray[i]
			responses = append(responses, lap)
			sum += lap
		}
	}

	mean := sum / float64(n)
	var variance float64
	for _, v := range responses {
		d := v - mean
		variance += d * d
	}
	return variance / float64(n)
}

// dominantAngleDeviation estimates how far the dominant edge orientation
// deviates from an axis-aligned plate. It applies a 3x3 Sobel operator,
// buckets strong gradient orientations into 5 degree bins, and measures
// the dominant bucket's distance from the nearest of 0, 90 and 180
// degrees. A frame with no strong gradients reports 0: there is nothing
// to misalign.
func dominantAngleDeviation(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}

	bins := make([]int, int(180/angleBinWidthDeg))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			gx := -gray[i-w-1] + gray[i-w+1] +
				-2*gray[i-1] + 2*gray[i+1] +
				-gray[i+w-1] + gray[i+w+1]
			gy := -gray[i-w-1] - 2*gray[i-w] - gray[i-w+1] +
				gray[i+w-1] + 2*gray[i+w] + gray[i+w+1]

			if math.Hypot(gx, gy) <= gradientMagnitudeFloor {
				continue
			}

			deg := math.Atan2(gy, gx) * 180 / math.Pi
			// Orientation is direction-agnostic: fold into [0, 180)
			for deg < 0 {
				deg += 180
			}
			for deg >= 180 {
				deg -= 180
			}
			bins[int(deg/angleBinWidthDeg)]++
		}
	}

	best, bestCount := -1, 0
	for i, c := range bins {
		if c > bestCount {
			best, bestCount = i, c
		}
	}
	if best < 0 {
		return 0
	}

	angle := float64(best) * angleBinWidthDeg
	return math.Min(math.Min(math.Abs(angle), math.Abs(angle-90)), math.Abs(angle-180))
}
