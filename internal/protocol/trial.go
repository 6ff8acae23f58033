package protocol

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/export"
	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
	"github.com/william-ls-liu/evaluating-psi/internal/signal"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
	"github.com/william-ls-liu/evaluating-psi/pkg/metric"

	"github.com/google/uuid"
)

// StartTrial begins a stepping or standing trial. Both open with a quiet
// stance window and a short delay before the trial proper; a stepping trial
// then watches the mediolateral force for the APA threshold crossing, while
// a standing trial delivers a stimulus at a fixed sample interval and stops
// itself after the configured duration.
func (e *Engine) StartTrial(trialType string, setup stimulus.Setup) error {
	if trialType != TrialTypeStep && trialType != TrialTypeStanding {
		return ErrInvalidTrialType
	}
	if !setup.Valid() {
		return ErrInvalidSetup
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireSession(); err != nil {
		return err
	}
	if err := e.requireStreaming(); err != nil {
		return err
	}
	if e.state != StateIdle {
		return ErrInvalidState
	}
	if trialType == TrialTypeStep && e.threshold == nil {
		return ErrNoThreshold
	}

	ch, err := e.w.Subscribe(subscriberTag)
	if err != nil {
		return err
	}

	e.state = StateTrialRunning
	e.trialType = trialType
	e.setup = setup
	e.stimFired = false
	e.quietStance = nil
	e.trialData = nil
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.stopping = false

	var threshold float64
	if e.threshold != nil {
		threshold = *e.threshold
	}

	if trialType == TrialTypeStep {
		go e.runStepTrial(ch, threshold)
	} else {
		go e.runStandingTrial(ch)
	}

	log.Info().Msgf("%s started (setup=%s)", trialType, setup)
	return nil
}

// collectQuietStance gathers the quiet stance window and returns the mean
// mediolateral force across it. The false return means collection was
// interrupted before the window completed.
func (e *Engine) collectQuietStance(ch <-chan platform.Frame) (float64, bool) {
	frames := make([]platform.Frame, 0, e.quietSamples)
	for len(frames) < e.quietSamples {
		select {
		case <-e.stop:
			return 0, false
		case frame, ok := <-ch:
			if !ok {
				return 0, false
			}
			frame[platform.Stim] = 0
			frames = append(frames, frame)
		}
	}

	e.mu.Lock()
	e.quietStance = frames
	e.mu.Unlock()
	return signal.Mean(platform.MediolateralForce(frames)), true
}

// discardPause drains the short settling window between quiet stance and the
// trial proper.
func (e *Engine) discardPause(ch <-chan platform.Frame) bool {
	for i := 0; i < e.pauseSamples; i++ {
		select {
		case <-e.stop:
			return false
		case _, ok := <-ch:
			if !ok {
				return false
			}
		}
	}
	return true
}

func (e *Engine) runStepTrial(ch <-chan platform.Frame, threshold float64) {
	defer close(e.done)

	quietMean, ok := e.collectQuietStance(ch)
	if !ok || !e.discardPause(ch) {
		e.abortTrial()
		return
	}

	apaDetected := false
	for {
		select {
		case <-e.stop:
			e.finishTrial()
			return
		case frame, ok := <-ch:
			if !ok {
				e.abortTrial()
				return
			}
			frame[platform.Stim] = 0
			if !apaDetected && abs(frame[platform.FX]-quietMean) > abs(threshold) {
				apaDetected = true
				if e.setup.Enabled() {
					e.trigger.Fire(e.setup)
					frame[platform.Stim] = 1
					e.mu.Lock()
					e.stimFired = true
					e.mu.Unlock()
				}
			}
			e.mu.Lock()
			e.trialData = append(e.trialData, frame)
			e.mu.Unlock()
		}
	}
}

func (e *Engine) runStandingTrial(ch <-chan platform.Frame) {
	defer close(e.done)

	if _, ok := e.collectQuietStance(ch); !ok || !e.discardPause(ch) {
		e.abortTrial()
		return
	}

	collected := 0
	for collected < e.standingSamples {
		select {
		case <-e.stop:
			e.finishTrial()
			return
		case frame, ok := <-ch:
			if !ok {
				e.abortTrial()
				return
			}
			frame[platform.Stim] = 0
			if collected%e.stimInterval == 0 {
				e.trigger.Fire(e.setup)
				frame[platform.Stim] = 1
				e.mu.Lock()
				e.stimFired = true
				e.mu.Unlock()
			}
			e.mu.Lock()
			e.trialData = append(e.trialData, frame)
			e.mu.Unlock()
			collected++
		}
	}

	e.finishTrial()
}

// finishTrial moves the collected data into review.
func (e *Engine) finishTrial() {
	e.w.Unsubscribe(subscriberTag)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateTrialReview
	log.Info().Msgf("%s finished with %d samples", e.trialType, len(e.trialData))
}

// abortTrial throws away a trial that ended before the quiet stance window
// completed, or whose data stream closed underneath it.
func (e *Engine) abortTrial() {
	e.w.Unsubscribe(subscriberTag)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quietStance = nil
	e.trialData = nil
	e.state = StateIdle
	metric.Incr(metric.TrialDiscarded, metric.BuildTag(metric.NewTag(metric.TagStage, "aborted")))
	log.Warn().Msgf("%s aborted before completion", e.trialType)
}

// StopTrial ends a running trial. A trial stopped during quiet stance is
// aborted; otherwise the data moves to review for SaveTrial.
func (e *Engine) StopTrial() error {
	e.mu.Lock()
	if e.state != StateTrialRunning || e.stopping {
		e.mu.Unlock()
		return ErrInvalidState
	}
	e.stopping = true
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
	return nil
}

// WaitForTrial blocks until a running trial leaves the running state, for a
// standing trial that stops itself. Returns immediately in any other state.
func (e *Engine) WaitForTrial() {
	e.mu.Lock()
	done := e.done
	running := e.state == StateTrialRunning
	e.mu.Unlock()
	if running && done != nil {
		<-done
	}
}

// SaveTrial exports the trial under review and records it, or discards it.
// Returns the saved record, nil when discarded.
func (e *Engine) SaveTrial(accept bool, notes string) (*trial.Trial, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateTrialReview {
		return nil, ErrInvalidState
	}

	defer func() {
		e.quietStance = nil
		e.trialData = nil
		e.state = StateIdle
	}()

	if !accept {
		metric.Incr(metric.TrialDiscarded, metric.BuildTag(metric.NewTag(metric.TagTrialType, e.trialType)))
		return nil, nil
	}

	var threshold float64
	if e.threshold != nil {
		threshold = *e.threshold
	}

	meta := export.Metadata{
		ExportedAt:       time.Now(),
		PatientID:        e.current.PatientID,
		FootMeasurement:  e.current.FootMeasurement,
		TrialType:        e.trialType,
		TrialNumber:      e.trialCount + 1,
		Threshold:        threshold,
		ThresholdPercent: e.thresholdPercent,
		StimulusEnabled:  e.setup.Enabled(),
		StimulatorSetup:  e.setup,
		Notes:            notes,
	}

	writer := export.NewWriter(e.current.ExportDirectory, e.compressExports)
	path, err := writer.Write(meta, e.quietStance, e.trialData)
	if err != nil {
		return nil, err
	}

	record := &trial.Trial{
		ID:               uuid.NewString(),
		SessionID:        e.current.ID,
		TrialType:        e.trialType,
		StimulatorSetup:  string(e.setup),
		StimulusEnabled:  e.setup.Enabled(),
		StimulusFired:    e.stimFired,
		Threshold:        threshold,
		ThresholdPercent: e.thresholdPercent,
		FilePath:         path,
		Notes:            notes,
	}
	if err := e.trials.Create(record); err != nil {
		return nil, err
	}

	e.trialCount++
	metric.Incr(metric.TrialSavedCount, metric.BuildTag(
		metric.NewTag(metric.TagTrialType, e.trialType),
		metric.NewTag(metric.TagStimSetup, string(e.setup)),
	))
	log.Info().Msgf("Trial %d saved to %s", e.trialCount, path)
	return record, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
