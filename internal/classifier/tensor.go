package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnsupportedFormat means the image type has no decoder path
	// (GIF among others). Callers skip classification.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("decode image")
)

// Tensor is a dense height x width x 3 RGB grid, row major.
type Tensor struct {
	Height int
	Width  int
	Data   []int32
}

const Channels = 3

// DefaultMaxPixels bounds width x height for images handed to the model.
const DefaultMaxPixels = 4096 * 4096

// liveTensors counts tensors acquired and not yet released.
var liveTensors atomic.Int64

var tensorPool = sync.Pool{
	New: func() any { return new(Tensor) },
}

func acquireTensor(h, w int) *Tensor {
	t := tensorPool.Get().(*Tensor)
	n := h * w * Channels
	if cap(t.Data) < n {
		t.Data = make([]int32, n)
	}
	t.Data = t.Data[:n]
	t.Height, t.Width = h, w
	liveTensors.Add(1)
	return t
}

// Release returns the tensor's buffer for reuse. The tensor must not be
// used afterwards. Release on nil is a no-op.
func (t *Tensor) Release() {
	if t == nil {
		return
	}
	t.Height, t.Width = 0, 0
	t.Data = t.Data[:0]
	liveTensors.Add(-1)
	tensorPool.Put(t)
}

func (t *Tensor) Shape() [3]int {
	return [3]int{t.Height, t.Width, Channels}
}

// At returns the RGB triple at row y, column x.
func (t *Tensor) At(y, x int) (r, g, b int32) {
	i := (y*t.Width + x) * Channels
	return t.Data[i], t.Data[i+1], t.Data[i+2]
}

// Supported reports whether Decode has a decoder path for mime.
func Supported(mime string) bool {
	switch normalizeMIME(mime) {
	case "image/jpeg", "image/png":
		return true
	}
	return false
}

// Decode turns JPEG or PNG bytes into a pooled Tensor, dropping alpha.
// Images above DefaultMaxPixels fail with ErrDecode. The caller owns the
// result and must Release it.
func Decode(data []byte, mime string) (*Tensor, error) {
	return decode(data, mime, DefaultMaxPixels)
}

func decode(data []byte, mime string, maxPixels int64) (*Tensor, error) {
	var (
		decodeConfig func(io.Reader) (image.Config, error)
		decodeImage  func(io.Reader) (image.Image, error)
	)
	switch normalizeMIME(mime) {
	case "image/jpeg":
		decodeConfig, decodeImage = jpeg.DecodeConfig, jpeg.Decode
	case "image/png":
		decodeConfig, decodeImage = png.DecodeConfig, png.Decode
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}

	// The header is enough to refuse images whose bitmap would not fit.
	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	t := acquireTensor(bounds.Dy(), bounds.Dx())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			t.Data[i] = int32(c.R)
			t.Data[i+1] = int32(c.G)
			t.Data[i+2] = int32(c.B)
			i += Channels
		}
	}
	return t, nil
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return "image/jpeg"
	}
	return mime
}
