// Package classifier adapts an NSFW image model for the admission pipeline.
//
// The model is loaded once; the supervisor runs Load in the background.
// Until it is ready, after a failed load, and while the circuit breaker is
// open, Classify returns ErrUnavailable and the caller decides whether to
// admit. Unsupported formats are reported before availability is checked.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/metrics"
	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/rate"
)

var ErrUnavailable = errors.New("image classifier unavailable")

type state int32

const (
	stateLoading state = iota
	stateReady
	stateFailed
)

type Options struct {
	// Name keys the rate limiter and labels the breaker.
	Name            string
	Timeout         time.Duration
	LoadTimeout     time.Duration
	Limiter         rate.Limiter
	BreakerFailures uint32
	BreakerCooldown time.Duration
	// MaxPixels bounds decoded image size; zero means DefaultMaxPixels.
	MaxPixels int64
}

type Adapter struct {
	model   Model
	opts    Options
	breaker *gobreaker.CircuitBreaker[[]model.Prediction]
	log     zerolog.Logger

	state    atomic.Int32
	loadOnce sync.Once
	loaded   chan struct{}
	loadErr  error
}

func NewAdapter(m Model, opts Options) *Adapter {
	if opts.Name == "" {
		opts.Name = "nsfw"
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.Unlimited{}
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	a := &Adapter{
		model:  m,
		opts:   opts,
		log:    logging.WithComponent("classifier"),
		loaded: make(chan struct{}),
	}
	a.breaker = gobreaker.NewCircuitBreaker[[]model.Prediction](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			a.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("classifier breaker state changed")
		},
	})
	return a
}

// Load loads the model once. Later calls wait for and return the first result.
func (a *Adapter) Load(ctx context.Context) error {
	a.loadOnce.Do(func() {
		defer close(a.loaded)
		if a.opts.LoadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.opts.LoadTimeout)
			defer cancel()
		}
		start := time.Now()
		if err := a.model.Load(ctx); err != nil {
			a.loadErr = err
			a.state.Store(int32(stateFailed))
			a.log.Error().Err(err).Msg("classifier model failed to load; image checks disabled")
			return
		}
		a.state.Store(int32(stateReady))
		a.log.Info().Dur("took", time.Since(start)).Msg("classifier model loaded")
	})
	<-a.loaded
	return a.loadErr
}

// Available reports whether the model is loaded and the breaker is not open.
func (a *Adapter) Available() bool {
	return state(a.state.Load()) == stateReady && a.breaker.State() != gobreaker.StateOpen
}

// Classify decodes data and returns predictions, highest probability first.
func (a *Adapter) Classify(ctx context.Context, data []byte, mime string) (preds []model.Prediction, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordClassifierCall(resultLabel(err), time.Since(start))
	}()

	if !Supported(mime) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
	if state(a.state.Load()) != stateReady {
		return nil, ErrUnavailable
	}

	tensor, err := decode(data, mime, a.opts.MaxPixels)
	if err != nil {
		return nil, err
	}
	defer tensor.Release()

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	if err := a.opts.Limiter.Wait(ctx, a.opts.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	preds, err = a.breaker.Execute(func() ([]model.Prediction, error) {
		return a.model.Predict(ctx, tensor)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	sortPredictions(preds)
	return preds, nil
}

func sortPredictions(preds []model.Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "error"
	}
}
