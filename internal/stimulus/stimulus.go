// Package stimulus drives the nerve stimulator trigger line. The stimulators
// (DS8R, NATUS) hang off a delay box; which BNC port carries the trigger
// depends on the configured setup, so the setup travels with every trial
// record even though the service only ever raises one trigger edge.
package stimulus

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/pkg/metric"
)

// Setup names the stimulator cabling for a trial.
type Setup string

const (
	SetupNone        Setup = "None"
	SetupTest        Setup = "Test"
	SetupConditioned Setup = "Conditioned"
)

// Valid reports whether s is a known setup.
func (s Setup) Valid() bool {
	switch s {
	case SetupNone, SetupTest, SetupConditioned:
		return true
	}
	return false
}

// Enabled reports whether this setup delivers a stimulus at all.
func (s Setup) Enabled() bool {
	return s == SetupTest || s == SetupConditioned
}

// Trigger raises the stimulator trigger line.
type Trigger interface {
	Fire(setup Setup)
}

// LineTrigger is the production trigger. The counter/digital-output edge is
// raised by the DAQ driver build; with the sim driver the fire is log-only.
type LineTrigger struct{}

func (LineTrigger) Fire(setup Setup) {
	metric.Incr(metric.StimulusCount, metric.BuildTag(metric.NewTag(metric.TagStimSetup, string(setup))))
	log.Info().Msgf("Stimulus fired (setup=%s)", setup)
}

// Recorder is a Trigger that remembers every fire, for tests.
type Recorder struct {
	mu    sync.Mutex
	fires []Setup
}

func (r *Recorder) Fire(setup Setup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fires = append(r.fires, setup)
}

// Fires returns a copy of the recorded fires.
func (r *Recorder) Fires() []Setup {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Setup, len(r.fires))
	copy(out, r.fires)
	return out
}
