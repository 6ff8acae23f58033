package daq

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
)

// Script produces the frame for a given sample index. It lets tests and the
// bench configuration drive the simulated subject through quiet stance and a
// step without any hardware attached.
type Script func(i int) platform.Frame

// QuietStance returns a script of a subject standing still: body weight on
// the vertical axis, small zero-mean noise elsewhere.
func QuietStance(bodyWeight float64, seed int64) Script {
	rng := rand.New(rand.NewSource(seed))
	return func(i int) platform.Frame {
		var f platform.Frame
		f[platform.FX] = rng.NormFloat64() * 0.5
		f[platform.FY] = rng.NormFloat64() * 0.5
		f[platform.FZ] = bodyWeight + rng.NormFloat64()*2
		f[platform.MX] = rng.NormFloat64() * 0.2
		f[platform.MY] = rng.NormFloat64() * 0.2
		f[platform.MZ] = rng.NormFloat64() * 0.1
		f[platform.EMG1] = rng.NormFloat64() * 0.05
		f[platform.EMG2] = rng.NormFloat64() * 0.05
		return f
	}
}

// StepAfter wraps a script with a mediolateral force excursion beginning at
// the given sample: a half-sine burst of the given amplitude and width, the
// shape of an anticipatory postural adjustment before a step.
func StepAfter(base Script, start, width int, amplitude float64) Script {
	return func(i int) platform.Frame {
		f := base(i)
		if i >= start && i < start+width {
			phase := float64(i-start) / float64(width)
			f[platform.FX] += amplitude * math.Sin(phase*math.Pi)
		}
		return f
	}
}

// Simulated is the software stand-in for the USB-6210. It honors the same
// task lifecycle as the hardware driver and produces scripted frames.
type Simulated struct {
	mu     sync.Mutex
	name   string
	state  taskState
	rate   float64
	script Script
	index  int
}

// NewSimulated returns a simulated device producing quiet stance frames.
func NewSimulated(name string) *Simulated {
	return &Simulated{
		name:   name,
		script: QuietStance(700, 1),
	}
}

// SetScript replaces the frame source. Takes effect on the next read.
func (s *Simulated) SetScript(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = script
	s.index = 0
}

func (s *Simulated) Name() string { return s.name }

func (s *Simulated) SelfTest() error { return nil }

func (s *Simulated) CreateTask(channels string, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channels == "" {
		return ErrInvalidChannels
	}
	if err := s.state.create(); err != nil {
		return err
	}
	s.rate = rate
	s.index = 0
	return nil
}

func (s *Simulated) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.start()
}

func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stop()
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.close()
	s.rate = 0
	return nil
}

func (s *Simulated) Read(ctx context.Context) (platform.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return platform.Frame{}, err
	}
	if err := s.state.readable(); err != nil {
		return platform.Frame{}, err
	}
	f := s.script(s.index)
	s.index++
	return f, nil
}

func (s *Simulated) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.hasTask {
		return 0
	}
	return s.rate
}
