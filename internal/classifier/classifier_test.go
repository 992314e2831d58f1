package classifier

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/confessional/internal/model"
)

type fakeModel struct {
	loadErr  error
	preds    []model.Prediction
	err      error
	calls    atomic.Int32
	lastSize atomic.Int32
}

func (f *fakeModel) Load(context.Context) error { return f.loadErr }

func (f *fakeModel) Predict(_ context.Context, t *Tensor) ([]model.Prediction, error) {
	f.calls.Add(1)
	f.lastSize.Store(int32(len(t.Data)))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Prediction, len(f.preds))
	copy(out, f.preds)
	return out, nil
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(2, 2), nil))
	return buf.Bytes()
}

func TestDecodePNGDropsAlpha(t *testing.T) {
	tensor, err := Decode(encodePNG(t, 4, 3), "image/png")
	require.NoError(t, err)
	defer tensor.Release()

	assert.Equal(t, [3]int{3, 4, 3}, tensor.Shape())
	assert.Len(t, tensor.Data, 3*4*3)
	r, g, b := tensor.At(2, 3)
	assert.Equal(t, []int32{200, 100, 50}, []int32{r, g, b})
}

func TestDecodeJPEG(t *testing.T) {
	for _, mime := range []string{"image/jpeg", "image/jpg", "IMAGE/JPEG; charset=binary"} {
		tensor, err := Decode(encodeJPEG(t, 8, 8), mime)
		require.NoError(t, err, mime)
		assert.Equal(t, [3]int{8, 8, 3}, tensor.Shape())
		tensor.Release()
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode(encodeGIF(t), "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// pngHeader returns a PNG holding only a signature and an IHDR chunk for
// a w x h grayscale image. It is enough for DecodeConfig.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // 8-bit gray, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRefusesOversizedImages(t *testing.T) {
	data := pngHeader(60000, 60000)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	tensor, err := Decode(data, "image/png")
	runtime.ReadMemStats(&after)

	assert.Nil(t, tensor)
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorContains(t, err, "60000x60000")
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestAdapterPixelBudget(t *testing.T) {
	m := &fakeModel{preds: []model.Prediction{{Label: "Neutral", Probability: 0.9}}}
	a := NewAdapter(m, Options{MaxPixels: 100})
	require.NoError(t, a.Load(context.Background()))

	_, err := a.Classify(context.Background(), encodePNG(t, 20, 20), "image/png")
	assert.ErrorIs(t, err, ErrDecode)
	assert.Zero(t, m.calls.Load())

	_, err = a.Classify(context.Background(), encodePNG(t, 10, 10), "image/png")
	assert.NoError(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("image/png"))
	assert.True(t, Supported("image/jpg"))
	assert.True(t, Supported("IMAGE/JPEG; q=1"))
	assert.False(t, Supported("image/gif"))
	assert.False(t, Supported(""))
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte("not an image"), "image/png")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestAdapterUnavailableUntilLoaded(t *testing.T) {
	m := &fakeModel{preds: []model.Prediction{{Label: "Neutral", Probability: 0.9}}}
	a := NewAdapter(m, Options{})

	assert.False(t, a.Available())
	_, err := a.Classify(context.Background(), encodePNG(t, 2, 2), "image/png")
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, a.Load(context.Background()))
	assert.True(t, a.Available())
}

func TestAdapterLoadFailureIsPermanent(t *testing.T) {
	m := &fakeModel{loadErr: errors.New("no weights")}
	a := NewAdapter(m, Options{})

	assert.Error(t, a.Load(context.Background()))
	assert.Error(t, a.Load(context.Background()))
	assert.False(t, a.Available())

	_, err := a.Classify(context.Background(), encodePNG(t, 2, 2), "image/png")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, m.calls.Load())
}

type countingModel struct {
	fakeModel
	loads atomic.Int32
}

func (c *countingModel) Load(ctx context.Context) error {
	c.loads.Add(1)
	time.Sleep(10 * time.Millisecond)
	return c.fakeModel.Load(ctx)
}

func TestAdapterConcurrentLoadsShareOneLoad(t *testing.T) {
	m := &countingModel{}
	a := NewAdapter(m, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Load(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), m.loads.Load())
	assert.True(t, a.Available())
}

func TestAdapterSortsPredictions(t *testing.T) {
	m := &fakeModel{preds: []model.Prediction{
		{Label: "Neutral", Probability: 0.1},
		{Label: "Porn", Probability: 0.7},
		{Label: "Sexy", Probability: 0.2},
	}}
	a := NewAdapter(m, Options{})
	require.NoError(t, a.Load(context.Background()))

	preds, err := a.Classify(context.Background(), encodePNG(t, 5, 5), "image/png")
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, "Porn", preds[0].Label)
	assert.Equal(t, int32(5*5*3), m.lastSize.Load())
}

func TestAdapterSkipsModelForGIF(t *testing.T) {
	m := &fakeModel{}
	a := NewAdapter(m, Options{})
	require.NoError(t, a.Load(context.Background()))

	_, err := a.Classify(context.Background(), encodeGIF(t), "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Zero(t, m.calls.Load())
}

func TestAdapterReportsUnsupportedWhileUnavailable(t *testing.T) {
	a := NewAdapter(&fakeModel{}, Options{})
	_, err := a.Classify(context.Background(), encodeGIF(t), "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAdapterReleasesTensors(t *testing.T) {
	img := encodePNG(t, 3, 3)
	base := liveTensors.Load()

	ok := NewAdapter(&fakeModel{preds: []model.Prediction{{Label: "Neutral", Probability: 1}}}, Options{})
	require.NoError(t, ok.Load(context.Background()))
	_, err := ok.Classify(context.Background(), img, "image/png")
	require.NoError(t, err)
	assert.Equal(t, base, liveTensors.Load(), "after success")

	failing := &fakeModel{err: errors.New("boom")}
	a := NewAdapter(failing, Options{BreakerFailures: 1, BreakerCooldown: time.Minute})
	require.NoError(t, a.Load(context.Background()))

	_, err = a.Classify(context.Background(), img, "image/png")
	require.Error(t, err)
	assert.Equal(t, base, liveTensors.Load(), "after predict error")

	_, err = a.Classify(context.Background(), img, "image/png")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, base, liveTensors.Load(), "after breaker open")
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestAdapterBreakerOpens(t *testing.T) {
	m := &fakeModel{err: errors.New("boom")}
	a := NewAdapter(m, Options{BreakerFailures: 2, BreakerCooldown: time.Minute})
	require.NoError(t, a.Load(context.Background()))
	img := encodePNG(t, 2, 2)

	for i := 0; i < 2; i++ {
		_, err := a.Classify(context.Background(), img, "image/png")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.False(t, a.Available())

	_, err := a.Classify(context.Background(), img, "image/png")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), m.calls.Load())
}

func TestPolicyTopLabelOnly(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name  string
		preds []model.Prediction
		block bool
	}{
		{"empty", nil, false},
		{"neutral", []model.Prediction{{Label: "Neutral", Probability: 0.99}}, false},
		{"porn above", []model.Prediction{{Label: "Porn", Probability: 0.61}}, true},
		{"porn at threshold", []model.Prediction{{Label: "Porn", Probability: 0.60}}, false},
		{"hentai above", []model.Prediction{{Label: "Hentai", Probability: 0.75}}, true},
		{"sexy below", []model.Prediction{{Label: "Sexy", Probability: 0.79}}, false},
		{"sexy above", []model.Prediction{{Label: "Sexy", Probability: 0.81}}, true},
		{"second label ignored", []model.Prediction{{Label: "Neutral", Probability: 0.5}, {Label: "Porn", Probability: 0.49}}, false},
		{"drawing", []model.Prediction{{Label: "Drawing", Probability: 0.95}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, _ := p.Blocks(tt.preds)
			assert.Equal(t, tt.block, block)
		})
	}
}

func TestRemoteModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/v1/classify":
			var req classifyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shape != [3]int{2, 2, 3} || len(req.Data) != 12 {
				http.Error(w, "bad tensor", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode([]classifyResult{
				{ClassName: "Neutral", Probability: 0.2},
				{ClassName: "Sexy", Probability: 0.8},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := NewAdapter(NewRemoteModel(srv.URL+"/"), Options{Timeout: time.Second})
	require.NoError(t, a.Load(context.Background()))

	preds, err := a.Classify(context.Background(), encodePNG(t, 2, 2), "image/png")
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Sexy", preds[0].Label)
	assert.InDelta(t, 0.8, preds[0].Probability, 1e-9)
}

func TestRemoteModelHealthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewRemoteModel(srv.URL).Load(context.Background())
	assert.ErrorContains(t, err, "status 503")
}
