package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
)

// Page geometry and image constraints. The page is US Letter with fixed
// margins; embedded images are capped both by the page content width and by
// the editor's on-screen 200px CSS box, converted to the embed DPI.
const (
	// PageWidthInch is the page width in inches (US Letter)
	PageWidthInch = 8.5
	// MarginMM is the page margin in millimetres
	MarginMM = 10.0
	// ImageDPI is the resolution images are embedded at
	ImageDPI = 150.0
	// CSSMaxWidthPx is the editor's maximum on-screen image width in CSS pixels
	CSSMaxWidthPx = 200.0
	// CSSMaxHeightPx is the editor's maximum on-screen image height in CSS pixels
	CSSMaxHeightPx = 200.0
	// cssDPI is the CSS reference pixel density
	cssDPI = 96.0
)

// scaleFactor returns the factor an image of the given native pixel size is
// scaled by before embedding. Each constraint ratio is clamped to 1.0, so
// images are never upscaled.
func scaleFactor(width, height int) float64 {
	w := float64(width)
	h := float64(height)

	marginIn := MarginMM / 25.4
	contentTargetPx := (PageWidthInch - 2*marginIn) * ImageDPI

	cssToPx := ImageDPI / cssDPI
	maxWidthPx := CSSMaxWidthPx * cssToPx
	maxHeightPx := CSSMaxHeightPx * cssToPx

	scale := math.Min(contentTargetPx/w, 1.0)
	scale = math.Min(scale, math.Min(maxWidthPx/w, 1.0))
	scale = math.Min(scale, math.Min(maxHeightPx/h, 1.0))
	return scale
}

// prepareImage decodes raw image bytes, rescales them to fit the page and
// CSS constraints, flattens any alpha channel over opaque white, and encodes
// the result as an 8-bit RGB PNG in a transient file under dir. It returns
// the file path and the final pixel width used to size the embed.
func prepareImage(data []byte, dir string) (string, int, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	scale := scaleFactor(bounds.Dx(), bounds.Dy())
	if scale < 1.0 {
		newW := int(math.Max(1, math.Round(float64(bounds.Dx())*scale)))
		newH := int(math.Max(1, math.Round(float64(bounds.Dy())*scale)))
		img = imaging.Resize(img, newW, newH, imaging.Lanczos)
	}

	// Flatten transparency over a white background. The flattened image is
	// fully opaque, so the PNG encoder emits 8-bit truecolor without alpha.
	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	tmp, err := os.CreateTemp(dir, "templify-img-*.png")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(tmp, flat); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, err
	}

	return tmp.Name(), flat.Bounds().Dx(), nil
}
