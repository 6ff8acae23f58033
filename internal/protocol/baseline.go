package protocol

import (
	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/signal"
	"github.com/william-ls-liu/evaluating-psi/pkg/metric"
)

// Peak detection parameters for the baseline mediolateral force trace.
const (
	peakHeight     = 10.0
	peakProminence = 10.0
)

// BaselineAnalysis is the result of a finished baseline step: the quiet
// stance corrected mediolateral force and the peaks and valleys found in it.
type BaselineAnalysis struct {
	Delta   []float64     `json:"delta"`
	Peaks   []signal.Peak `json:"peaks"`
	Valleys []signal.Peak `json:"valleys"`

	// APAForce is the corrected force at whichever of the first peak or
	// first valley occurs earlier. During a step the mediolateral force
	// swings toward the swing leg and then the stance leg; taking the
	// earlier extremum keeps this correct for either stepping foot.
	APAForce float64 `json:"apa_force"`
	Found    bool    `json:"found"`
}

// StartBaseline arms baseline collection. The operator should instruct the
// patient to step off the platform and auto-zero the amplifier before the
// first step is collected.
func (e *Engine) StartBaseline() error {
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
	e.state = StateBaseline
	return nil
}

// StopBaseline leaves baseline mode. When save is set the pending baseline
// steps are kept and the threshold is finalized; otherwise the steps and any
// previously set threshold are discarded.
func (e *Engine) StopBaseline(save bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateBaseline {
		return ErrInvalidState
	}

	steps := e.baselineCount
	if save {
		e.recomputeThreshold()
	} else {
		e.baselineMax = nil
		e.baselineCount = 0
		e.threshold = nil
	}

	e.state = StateIdle
	log.Info().Msgf("Baseline collection stopped (saved=%t, steps=%d)", save, steps)
	return nil
}

// CollectBaselineStep starts recording a single baseline step. Recording
// continues until FinishBaselineStep is called.
func (e *Engine) CollectBaselineStep() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateBaseline {
		return ErrInvalidState
	}
	if err := e.requireStreaming(); err != nil {
		return err
	}

	ch, err := e.w.Subscribe(subscriberTag)
	if err != nil {
		return err
	}

	e.state = StateBaselineStep
	e.trialData = nil
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.stopping = false

	go e.collectBaseline(ch)
	return nil
}

func (e *Engine) collectBaseline(ch <-chan platform.Frame) {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			frame[platform.Stim] = 0
			e.mu.Lock()
			e.trialData = append(e.trialData, frame)
			e.mu.Unlock()
		}
	}
}

// FinishBaselineStep ends the recording and analyzes the step: the
// mediolateral force is corrected for quiet stance and searched for peaks
// and valleys. The analysis is held for review until SaveBaselineStep.
func (e *Engine) FinishBaselineStep() (*BaselineAnalysis, error) {
	e.mu.Lock()
	if e.state != StateBaselineStep || e.stopping {
		e.mu.Unlock()
		return nil, ErrInvalidState
	}
	e.stopping = true
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
	e.w.Unsubscribe(subscriberTag)

	e.mu.Lock()
	defer e.mu.Unlock()

	force := platform.MediolateralForce(e.trialData)
	delta := platform.ForceDelta(force, e.quietSamples)
	peaks := signal.FindPeaks(delta, peakHeight, peakProminence)
	valleys := signal.FindValleys(delta, peakHeight, peakProminence)

	a := &BaselineAnalysis{Delta: delta, Peaks: peaks, Valleys: valleys}
	switch {
	case len(peaks) > 0 && len(valleys) > 0:
		if peaks[0].Index < valleys[0].Index {
			a.APAForce = delta[peaks[0].Index]
		} else {
			a.APAForce = delta[valleys[0].Index]
		}
		a.Found = true
	case len(peaks) > 0:
		a.APAForce = delta[peaks[0].Index]
		a.Found = true
	case len(valleys) > 0:
		a.APAForce = delta[valleys[0].Index]
		a.Found = true
	}

	e.analysis = a
	e.state = StateBaselineReview
	return a, nil
}

// SaveBaselineStep accepts or discards the step under review. Accepting a
// step with no detectable peak or valley is an error; discard it instead.
func (e *Engine) SaveBaselineStep(accept bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateBaselineReview {
		return ErrInvalidState
	}

	if accept {
		if e.analysis == nil || !e.analysis.Found {
			return ErrNoAPA
		}
		e.baselineMax = append(e.baselineMax, e.analysis.APAForce)
		e.baselineCount++
		e.recomputeThreshold()
		metric.Incr(metric.BaselineSaved, nil)
		log.Info().Msgf("Baseline step %d saved (APA force %.4f)", e.baselineCount, e.analysis.APAForce)
	} else {
		metric.Incr(metric.TrialDiscarded, metric.BuildTag(metric.NewTag(metric.TagStage, "baseline")))
	}

	e.trialData = nil
	e.analysis = nil
	e.state = StateBaseline
	return nil
}
