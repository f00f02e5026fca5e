// Package preprocess converts arbitrary images into the fixed-size letterboxed
// pixel tensors the inference service expects on its tensor endpoint. The
// transform mirrors what the service applies to JPEG uploads internally, so
// tensor-mode callers see equivalent detections.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/BaSui01/detectflow/types"
)

// Tensor is an 8-bit interleaved RGB pixel buffer of exact shape
// (Height, Width, 3), row-major. Pix holds Height*Width*3 bytes.
type Tensor struct {
	Width  int
	Height int
	Pix    []uint8
}

// Validate checks the tensor invariants the wire protocol requires:
// positive dimensions and a buffer of exactly Width*Height*3 samples.
func (t *Tensor) Validate() error {
	if t == nil {
		return types.NewError(types.ErrInvalidInput, "nil tensor")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("invalid tensor dimensions %dx%d", t.Width, t.Height))
	}
	if want := t.Width * t.Height * 3; len(t.Pix) != want {
		return types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("tensor buffer is %d bytes, expected %d (3 channels, 8-bit)", len(t.Pix), want))
	}
	return nil
}

// At returns the RGB sample at (x, y). Test helper, not on any hot path.
func (t *Tensor) At(x, y int) (r, g, b uint8) {
	i := (y*t.Width + x) * 3
	return t.Pix[i], t.Pix[i+1], t.Pix[i+2]
}

// Letterbox scales img to fit (tw, th) preserving aspect ratio, pastes it
// centered on a black canvas and returns the interleaved RGB tensor.
//
// scale = min(tw/iw, th/ih); the resized image is (round(iw*scale),
// round(ih*scale)) with a bilinear filter; the unused canvas area keeps the
// black fill. Pure and deterministic.
func Letterbox(img image.Image, tw, th int) (*Tensor, error) {
	if tw <= 0 || th <= 0 {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("invalid target size %dx%d", tw, th))
	}
	bounds := img.Bounds()
	iw, ih := bounds.Dx(), bounds.Dy()
	if iw <= 0 || ih <= 0 {
		return nil, types.NewError(types.ErrInvalidInput, "empty source image")
	}

	rw, rh := fitDimensions(iw, ih, tw, th)

	var resized image.Image = img
	if rw != iw || rh != ih {
		resized = imaging.Resize(img, rw, rh, imaging.Linear)
	}

	canvas := imaging.New(tw, th, color.NRGBA{0, 0, 0, 255})
	canvas = imaging.Paste(canvas, resized, image.Pt((tw-rw)/2, (th-rh)/2))

	return fromNRGBA(canvas), nil
}

// fitDimensions computes the aspect-preserving extent of the source inside
// the target: scale = min(tw/iw, th/ih), each side rounded. Sides are
// clamped to 1 because extreme aspect ratios can round down to zero.
func fitDimensions(iw, ih, tw, th int) (rw, rh int) {
	scale := math.Min(float64(tw)/float64(iw), float64(th)/float64(ih))
	rw = int(math.Round(float64(iw) * scale))
	rh = int(math.Round(float64(ih) * scale))
	if rw < 1 {
		rw = 1
	}
	if rh < 1 {
		rh = 1
	}
	return rw, rh
}

// fromNRGBA drops the alpha channel, packing the canvas into the
// interleaved RGB layout the service consumes.
func fromNRGBA(img *image.NRGBA) *Tensor {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		dst := pix[y*w*3:]
		for x := 0; x < w; x++ {
			s := x * 4
			d := x * 3
			dst[d+0] = src[s+0]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s+2]
		}
	}
	return &Tensor{Width: w, Height: h, Pix: pix}
}

// LetterboxFile loads the image at path and letterboxes it to (tw, th).
// Unreadable or undecodable files fail with INVALID_INPUT before any
// network activity.
func LetterboxFile(path string, tw, th int) (*Tensor, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("cannot read image %s", path)).WithCause(err)
	}
	return Letterbox(img, tw, th)
}
