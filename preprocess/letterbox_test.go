package preprocess

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/detectflow/types"
)

// patternImage fills an NRGBA image with a position-dependent pattern so
// resampling mistakes show up as byte differences.
func patternImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 7) % 251),
				G: uint8((y * 13) % 239),
				B: uint8((x + y) % 227),
				A: 255,
			})
		}
	}
	return img
}

// tensorImage reconstructs an opaque NRGBA image from a tensor.
func tensorImage(t *Tensor) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			r, g, b := t.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func TestLetterbox_ExactFitIdempotent(t *testing.T) {
	src := patternImage(64, 64)

	first, err := Letterbox(src, 64, 64)
	require.NoError(t, err)

	second, err := Letterbox(tensorImage(first), 64, 64)
	require.NoError(t, err)

	assert.Equal(t, first.Pix, second.Pix, "letterboxing an exact-fit image must be byte-stable")
}

func TestLetterbox_CentersAndPadsBlack(t *testing.T) {
	// solid white 320x640 into 640x640: occupies columns [160, 480)
	src := imagingSolid(320, 640, color.NRGBA{255, 255, 255, 255})

	tensor, err := Letterbox(src, 640, 640)
	require.NoError(t, err)
	require.NoError(t, tensor.Validate())

	r, g, b := tensor.At(160, 0)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b}, "content starts at the centered offset")

	r, g, b = tensor.At(159, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "left padding stays black")

	r, g, b = tensor.At(480, 320)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "right padding stays black")
}

func TestLetterbox_InterleavedChannelOrder(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	src.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})

	tensor, err := Letterbox(src, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, []uint8{255, 0, 0, 0, 255, 0}, tensor.Pix, "layout must be RGB interleaved")
}

func TestLetterbox_GrayscaleFlattensToRGB(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 128
	}

	tensor, err := Letterbox(src, 8, 8)
	require.NoError(t, err)

	r, g, b := tensor.At(3, 3)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
	assert.Equal(t, uint8(128), r)
}

func TestLetterbox_DownscaleMatchesTargetSide(t *testing.T) {
	src := patternImage(1280, 720)

	tensor, err := Letterbox(src, 640, 640)
	require.NoError(t, err)
	require.Equal(t, 640, tensor.Width)
	require.Equal(t, 640, tensor.Height)

	// 1280x720 scales by 0.5 to 640x360, vertically centered: rows
	// [0,140) and [500,640) stay black
	r, g, b := tensor.At(320, 100)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})
	r, g, b = tensor.At(320, 560)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})
}

func TestLetterbox_RejectsBadTargets(t *testing.T) {
	src := patternImage(4, 4)
	_, err := Letterbox(src, 0, 640)
	assert.Equal(t, types.ErrInvalidInput, types.GetErrorCode(err))
}

func TestLetterboxFile_Unreadable(t *testing.T) {
	_, err := LetterboxFile(filepath.Join(t.TempDir(), "missing.jpg"), 640, 640)
	assert.Equal(t, types.ErrInvalidInput, types.GetErrorCode(err))
}

func TestTensor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tensor  *Tensor
		wantErr bool
	}{
		{"valid", &Tensor{Width: 2, Height: 2, Pix: make([]uint8, 12)}, false},
		{"nil", nil, true},
		{"zero width", &Tensor{Width: 0, Height: 2, Pix: []uint8{}}, true},
		{"short buffer", &Tensor{Width: 2, Height: 2, Pix: make([]uint8, 11)}, true},
		{"long buffer", &Tensor{Width: 2, Height: 2, Pix: make([]uint8, 16)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tensor.Validate()
			if tt.wantErr {
				assert.Equal(t, types.ErrInvalidInput, types.GetErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// imagingSolid builds a uniformly colored image without pulling the imaging
// helpers into test assertions.
func imagingSolid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}
