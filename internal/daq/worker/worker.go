// Package worker drives the DAQ read loop. One goroutine paces reads off the
// device at the task sample rate and fans every frame out to the registered
// subscribers. A subscriber that falls behind loses frames rather than
// stalling the read loop; drops are counted so an operator can see them.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/daq"
	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/pkg/metric"
)

var (
	// ErrAlreadySampling is returned when Start is called on a running worker.
	ErrAlreadySampling = errors.New("worker: already sampling")
	// ErrNotSampling is returned when Stop is called on an idle worker.
	ErrNotSampling = errors.New("worker: not sampling")
	// ErrDuplicateTag is returned when a subscriber tag is already in use.
	ErrDuplicateTag = errors.New("worker: subscriber tag already registered")
)

// Worker reads frames from a device and broadcasts them.
type Worker struct {
	dev    daq.Device
	bufCap int

	mu      sync.Mutex
	subs    map[string]chan platform.Frame
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New returns a worker for the given device. bufCap is the channel buffer
// handed to each subscriber; at 1 kHz a capacity of a few seconds of frames
// keeps a busy HTTP consumer from dropping.
func New(dev daq.Device, bufCap int) *Worker {
	if bufCap <= 0 {
		bufCap = 1024
	}
	return &Worker{
		dev:    dev,
		bufCap: bufCap,
		subs:   make(map[string]chan platform.Frame),
	}
}

// Running reports whether the read loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start begins the read loop. The device task must be created and started.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadySampling
	}

	rate := w.dev.Rate()
	if rate <= 0 {
		return daq.ErrNoTask
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	interval := time.Duration(float64(time.Second) / rate)
	go w.loop(ctx, interval)

	log.Info().Msgf("Sampling started on %s at %.0f Hz", w.dev.Name(), rate)
	return nil
}

// Stop halts the read loop and waits for it to exit. Subscriptions survive a
// stop; their channels simply go quiet.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotSampling
	}
	cancel, done := w.cancel, w.done
	w.running = false
	w.mu.Unlock()

	cancel()
	<-done
	log.Info().Msgf("Sampling stopped on %s", w.dev.Name())
	return nil
}

// Subscribe registers a consumer under a unique tag and returns its channel.
func (w *Worker) Subscribe(tag string) (<-chan platform.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.subs[tag]; ok {
		return nil, ErrDuplicateTag
	}
	ch := make(chan platform.Frame, w.bufCap)
	w.subs[tag] = ch
	return ch, nil
}

// Unsubscribe removes a consumer and closes its channel.
func (w *Worker) Unsubscribe(tag string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ch, ok := w.subs[tag]; ok {
		delete(w.subs, tag)
		close(ch)
	}
}

func (w *Worker) loop(ctx context.Context, interval time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deviceTag := metric.BuildTag(metric.NewTag(metric.TagDevice, w.dev.Name()))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			frame, err := w.dev.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				metric.Incr(metric.DaqReadErrorCount, deviceTag)
				log.Error().Err(err).Msg("DAQ read failed, stopping sampling")
				w.mu.Lock()
				w.running = false
				w.mu.Unlock()
				return
			}
			metric.Timing(metric.DaqReadLatency, time.Since(start), deviceTag)
			metric.Incr(metric.DaqReadCount, deviceTag)
			w.broadcast(frame, deviceTag)
		}
	}
}

func (w *Worker) broadcast(frame platform.Frame, deviceTag []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for tag, ch := range w.subs {
		select {
		case ch <- frame:
		default:
			metric.Incr(metric.FramesDropped, append(deviceTag, metric.TagAsString(metric.TagStage, tag)))
		}
	}
}
