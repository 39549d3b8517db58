package warp

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// SupportedExtensions lists the file extensions accepted for input and output.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".gif"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageError wraps a failed image operation.
type ImageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Load opens and decodes an image file.
func Load(path string) (image.Image, error) {
	if path == "" {
		return nil, &ImageError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, &ImageError{Operation: "load", Path: path, Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &ImageError{Operation: "load", Path: path, Err: err}
	}
	return img, nil
}

// Save encodes img to path; the format follows the extension.
func Save(img image.Image, path string) error {
	if !IsSupportedImage(path) {
		return &ImageError{Operation: "save", Path: path, Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}
	if err := imaging.Save(img, path); err != nil {
		return &ImageError{Operation: "save", Path: path, Err: err}
	}
	return nil
}

// FileOptions configures RenderFile.
type FileOptions struct {
	// Corners are the destination corners in top-left, top-right,
	// bottom-left, bottom-right order, normalized to [0,1] unless Pixels.
	Corners [4]utils.Point
	Pixels  bool
	// Width and Height of the output; zero keeps the input size.
	Width  int
	Height int
	Solver homography.Solver
}

// RenderFile loads input, solves the homography for the given corners against
// the unit square and writes the warped image to output.
func RenderFile(input, output string, opts FileOptions) (homography.Coefficients, error) {
	src, err := Load(input)
	if err != nil {
		return homography.Coefficients{}, err
	}

	b := src.Bounds()
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = b.Dx()
	}
	if h <= 0 {
		h = b.Dy()
	}

	corr := make([]homography.Correspondence, 4)
	for i, c := range projection.SourceCorners() {
		dst := opts.Corners[i]
		if opts.Pixels {
			dst = dst.Scale(float64(w), float64(h))
		}
		corr[i] = homography.Correspondence{Src: c, Dst: dst}
	}

	coeffs, err := homography.ComputeWith(opts.Solver, corr)
	if err != nil {
		return homography.Coefficients{}, fmt.Errorf("solve homography: %w", err)
	}

	out, err := Render(src, coeffs, w, h)
	if err != nil {
		return homography.Coefficients{}, err
	}
	if err := Save(out, output); err != nil {
		return homography.Coefficients{}, err
	}
	return coeffs, nil
}
