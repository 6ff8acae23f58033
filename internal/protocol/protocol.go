// Package protocol implements the step-initiation experiment: baseline step
// collection, the anticipatory postural adjustment (APA) threshold derived
// from it, and the stepping and standing trials that fire the stimulator off
// the live force signal.
package protocol

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	"github.com/william-ls-liu/evaluating-psi/internal/daq/worker"
	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/session"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
)

// State is the current stage of the experiment.
type State string

const (
	StateIdle           State = "Idle"
	StateBaseline       State = "Baseline"
	StateBaselineStep   State = "BaselineStep"
	StateBaselineReview State = "BaselineReview"
	StateTrialRunning   State = "TrialRunning"
	StateTrialReview    State = "TrialReview"
)

// Trial type names, recorded verbatim in exports and the database.
const (
	TrialTypeStep     = "Step Trial"
	TrialTypeStanding = "Standing Trial"
)

var (
	ErrNoSession        = errors.New("protocol: patient info has not been stored")
	ErrNotStreaming     = errors.New("protocol: data is not streaming from the device")
	ErrNoThreshold      = errors.New("protocol: no baseline threshold has been set")
	ErrInvalidState     = errors.New("protocol: operation not valid in the current state")
	ErrInvalidPercent   = errors.New("protocol: threshold percentage must be a multiple of 5 between 5 and 100")
	ErrInvalidSetup     = errors.New("protocol: unknown stimulator setup")
	ErrInvalidTrialType = errors.New("protocol: unknown trial type")
	ErrNoAPA            = errors.New("protocol: no peak or valley found in the baseline step")
)

const subscriberTag = "protocol"

// Engine owns the experiment state machine. All operations are safe for
// concurrent use; collection itself runs on a single goroutine fed by the
// DAQ worker.
type Engine struct {
	w        *worker.Worker
	trigger  stimulus.Trigger
	sessions session.Repository
	trials   trial.Repository

	sampleRate      float64
	quietSamples    int
	pauseSamples    int
	standingSamples int
	stimInterval    int
	compressExports bool

	mu      sync.Mutex
	state   State
	current *session.Session

	thresholdPercent int
	threshold        *float64
	baselineMax      []float64
	baselineCount    int
	trialCount       int

	trialType string
	setup     stimulus.Setup
	stimFired bool

	quietStance []platform.Frame
	trialData   []platform.Frame
	analysis    *BaselineAnalysis

	stop chan struct{}
	done chan struct{}

	// stopping is set by the stop request that claims the stop channel, so a
	// concurrent second request cannot close it again.
	stopping bool
}

// New builds an engine wired to the DAQ worker and the stimulator trigger.
// Durations from the config are converted to sample counts at the configured
// sample rate, so collection progress is driven by frames, not wall clocks.
func New(config configs.Configs, w *worker.Worker, trigger stimulus.Trigger,
	sessions session.Repository, trials trial.Repository) *Engine {
	rate := config.DaqSampleRate
	return &Engine{
		w:                w,
		trigger:          trigger,
		sessions:         sessions,
		trials:           trials,
		sampleRate:       rate,
		quietSamples:     samplesFor(config.QuietStanceMs, rate),
		pauseSamples:     samplesFor(config.TrialStartDelayMs, rate),
		standingSamples:  samplesFor(config.StandingTrialMs, rate),
		stimInterval:     config.StimulusInterval,
		compressExports:  config.CompressExports,
		state:            StateIdle,
		thresholdPercent: 5,
	}
}

func samplesFor(ms int, rate float64) int {
	return int(float64(ms) * rate / 1000.0)
}

// State returns the current stage.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot is a point-in-time view of the experiment, for status endpoints.
type Snapshot struct {
	State            State    `json:"state"`
	SessionID        string   `json:"session_id,omitempty"`
	PatientID        string   `json:"patient_id,omitempty"`
	BaselineCount    int      `json:"baseline_count"`
	TrialCount       int      `json:"trial_count"`
	ThresholdPercent int      `json:"threshold_percent"`
	Threshold        *float64 `json:"threshold,omitempty"`
}

// Snapshot returns the current experiment status.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		State:            e.state,
		BaselineCount:    e.baselineCount,
		TrialCount:       e.trialCount,
		ThresholdPercent: e.thresholdPercent,
		Threshold:        e.threshold,
	}
	if e.current != nil {
		s.SessionID = e.current.ID
		s.PatientID = e.current.PatientID
	}
	return s
}

// StartSession stores the patient info and export location. Nothing can be
// collected before this succeeds. PatientID and footMeasurement must both be
// non-empty.
func (e *Engine) StartSession(patientID, footMeasurement, exportDirectory string, vibrotactile bool) (*session.Session, error) {
	if patientID == "" || footMeasurement == "" {
		return nil, errors.New("protocol: patient id and foot measurement are both required")
	}
	if exportDirectory == "" {
		return nil, errors.New("protocol: export directory is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return nil, ErrInvalidState
	}

	s := &session.Session{
		ID:              uuid.NewString(),
		PatientID:       patientID,
		FootMeasurement: footMeasurement,
		Vibrotactile:    vibrotactile,
		ExportDirectory: exportDirectory,
	}
	if err := e.sessions.Create(s); err != nil {
		return nil, err
	}

	e.current = s
	e.baselineMax = nil
	e.baselineCount = 0
	e.trialCount = 0
	e.threshold = nil

	log.Info().Msgf("Session started for patient %s", patientID)
	return s, nil
}

// SetThresholdPercent changes the APA threshold percentage. Valid values are
// multiples of 5 from 5 to 100. The threshold is recomputed immediately when
// baseline steps have been collected.
func (e *Engine) SetThresholdPercent(pct int) error {
	if pct < 5 || pct > 100 || pct%5 != 0 {
		return ErrInvalidPercent
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholdPercent = pct
	e.recomputeThreshold()
	return nil
}

// recomputeThreshold derives the APA threshold from the collected baseline
// steps: the mean of each step's peak mediolateral force, scaled by the
// threshold percentage. Caller holds the lock.
func (e *Engine) recomputeThreshold() {
	if len(e.baselineMax) == 0 {
		return
	}
	var sum float64
	for _, f := range e.baselineMax {
		sum += f
	}
	t := float64(e.thresholdPercent) * (sum / float64(len(e.baselineMax))) / 100.0
	e.threshold = &t
	log.Info().Msgf("APA threshold set to %.4f (%d%% of %d baseline steps)", t, e.thresholdPercent, len(e.baselineMax))
}

// ReviewData returns the quiet stance and trial frames held for review.
func (e *Engine) ReviewData() (quietStance, trialData []platform.Frame, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateTrialReview {
		return nil, nil, ErrInvalidState
	}
	return e.quietStance, e.trialData, nil
}

// ReviewAnalysis returns the baseline step analysis held for review.
func (e *Engine) ReviewAnalysis() (*BaselineAnalysis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateBaselineReview || e.analysis == nil {
		return nil, ErrInvalidState
	}
	return e.analysis, nil
}

func (e *Engine) requireSession() error {
	if e.current == nil {
		return ErrNoSession
	}
	return nil
}

func (e *Engine) requireStreaming() error {
	if !e.w.Running() {
		return ErrNotStreaming
	}
	return nil
}
