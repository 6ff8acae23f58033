package protocol

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	"github.com/william-ls-liu/evaluating-psi/internal/daq"
	"github.com/william-ls-liu/evaluating-psi/internal/daq/worker"
	sqlrepo "github.com/william-ls-liu/evaluating-psi/internal/repositories/sql"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/session"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

// Short windows keep the collection goroutines fast in tests: a 25 ms quiet
// stance at 2 kHz is 50 samples.
func testConfig() configs.Configs {
	return configs.Configs{
		DaqSampleRate:     2000,
		QuietStanceMs:     25,
		TrialStartDelayMs: 5,
		StandingTrialMs:   50,
		StimulusInterval:  40,
	}
}

type fixture struct {
	dev      *daq.Simulated
	w        *worker.Worker
	trigger  *stimulus.Recorder
	engine   *Engine
	sessions session.Repository
	trials   trial.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := infra.CreateSqliteConnection(":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlrepo.Migrate(db))
	conn := &infra.SQLConnection{DB: db}

	sessions, err := session.NewRepository(conn)
	require.NoError(t, err)
	trials, err := trial.NewRepository(conn)
	require.NoError(t, err)

	dev := daq.NewSimulated("Dev1")
	require.NoError(t, dev.CreateTask("ai1:8", 2000))
	require.NoError(t, dev.Start())

	w := worker.New(dev, 4096)
	trigger := &stimulus.Recorder{}
	engine := New(testConfig(), w, trigger, sessions, trials)

	t.Cleanup(func() {
		if w.Running() {
			_ = w.Stop()
		}
	})

	return &fixture{dev: dev, w: w, trigger: trigger, engine: engine, sessions: sessions, trials: trials}
}

func (f *fixture) startSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.engine.StartSession("P001", "26.5", t.TempDir(), true)
	require.NoError(t, err)
	return s
}

func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return e.State() == want },
		5*time.Second, 5*time.Millisecond, "never reached state %s", want)
}

func TestStartSessionValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.StartSession("", "26.5", t.TempDir(), false)
	assert.Error(t, err)
	_, err = f.engine.StartSession("P001", "", t.TempDir(), false)
	assert.Error(t, err)
	_, err = f.engine.StartSession("P001", "26.5", "", false)
	assert.Error(t, err)

	s := f.startSession(t)
	assert.Equal(t, "P001", s.PatientID)

	stored, err := f.sessions.GetByID(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "26.5", stored.FootMeasurement)
}

func TestGatingBeforeSessionAndStreaming(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.StartBaseline(), ErrNoSession)
	assert.ErrorIs(t, f.engine.StartTrial(TrialTypeStanding, stimulus.SetupNone), ErrNoSession)

	f.startSession(t)
	assert.ErrorIs(t, f.engine.StartBaseline(), ErrNotStreaming)
	assert.ErrorIs(t, f.engine.StartTrial(TrialTypeStanding, stimulus.SetupNone), ErrNotStreaming)
}

func TestSetThresholdPercent(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.SetThresholdPercent(0), ErrInvalidPercent)
	assert.ErrorIs(t, f.engine.SetThresholdPercent(3), ErrInvalidPercent)
	assert.ErrorIs(t, f.engine.SetThresholdPercent(105), ErrInvalidPercent)
	assert.NoError(t, f.engine.SetThresholdPercent(40))
	assert.Equal(t, 40, f.engine.Snapshot().ThresholdPercent)
}

func TestBaselineFlow(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)

	// A scripted step: quiet stance baseline then a clear mediolateral burst.
	f.dev.SetScript(daq.StepAfter(daq.QuietStance(700, 1), 150, 100, 50))
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartBaseline())
	assert.ErrorIs(t, f.engine.StartBaseline(), ErrInvalidState)

	require.NoError(t, f.engine.CollectBaselineStep())
	assert.Equal(t, StateBaselineStep, f.engine.State())

	// Let the burst play out before finishing the step.
	time.Sleep(400 * time.Millisecond)
	analysis, err := f.engine.FinishBaselineStep()
	require.NoError(t, err)
	require.True(t, analysis.Found)
	assert.Greater(t, analysis.APAForce, 10.0)

	require.NoError(t, f.engine.SaveBaselineStep(true))
	snap := f.engine.Snapshot()
	assert.Equal(t, 1, snap.BaselineCount)
	require.NotNil(t, snap.Threshold)
	assert.InDelta(t, float64(snap.ThresholdPercent)*analysis.APAForce/100, *snap.Threshold, 1e-9)

	require.NoError(t, f.engine.StopBaseline(true))
	assert.Equal(t, StateIdle, f.engine.State())
	assert.NotNil(t, f.engine.Snapshot().Threshold)
}

func TestBaselineDiscardClearsThreshold(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.dev.SetScript(daq.StepAfter(daq.QuietStance(700, 1), 150, 100, 50))
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartBaseline())
	require.NoError(t, f.engine.CollectBaselineStep())
	time.Sleep(400 * time.Millisecond)
	_, err := f.engine.FinishBaselineStep()
	require.NoError(t, err)
	require.NoError(t, f.engine.SaveBaselineStep(true))

	require.NoError(t, f.engine.StopBaseline(false))
	snap := f.engine.Snapshot()
	assert.Equal(t, 0, snap.BaselineCount)
	assert.Nil(t, snap.Threshold)
}

func TestStopBaselineDiscardLogsCollectedSteps(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.dev.SetScript(daq.StepAfter(daq.QuietStance(700, 1), 150, 100, 50))
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartBaseline())
	require.NoError(t, f.engine.CollectBaselineStep())
	time.Sleep(400 * time.Millisecond)
	_, err := f.engine.FinishBaselineStep()
	require.NoError(t, err)
	require.NoError(t, f.engine.SaveBaselineStep(true))

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	require.NoError(t, f.engine.StopBaseline(false))
	assert.Contains(t, buf.String(), "steps=1")
}

func TestFinishBaselineStepConcurrent(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartBaseline())
	require.NoError(t, f.engine.CollectBaselineStep())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.FinishBaselineStep()
		}(i)
	}
	wg.Wait()

	finished := 0
	for _, err := range errs {
		if err == nil {
			finished++
		} else {
			assert.ErrorIs(t, err, ErrInvalidState)
		}
	}
	assert.Equal(t, 1, finished)
	assert.Equal(t, StateBaselineReview, f.engine.State())
}

func TestBaselineStepWithoutAPA(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)

	// Pure quiet stance: no burst, nothing to detect.
	f.dev.SetScript(daq.QuietStance(700, 1))
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartBaseline())
	require.NoError(t, f.engine.CollectBaselineStep())
	time.Sleep(50 * time.Millisecond)
	analysis, err := f.engine.FinishBaselineStep()
	require.NoError(t, err)
	assert.False(t, analysis.Found)

	assert.ErrorIs(t, f.engine.SaveBaselineStep(true), ErrNoAPA)
	require.NoError(t, f.engine.SaveBaselineStep(false))
	assert.Equal(t, 0, f.engine.Snapshot().BaselineCount)
}

func TestStepTrialRequiresThreshold(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.w.Start())

	assert.ErrorIs(t, f.engine.StartTrial(TrialTypeStep, stimulus.SetupTest), ErrNoThreshold)
	assert.ErrorIs(t, f.engine.StartTrial("Walking Trial", stimulus.SetupTest), ErrInvalidTrialType)
	assert.ErrorIs(t, f.engine.StartTrial(TrialTypeStep, stimulus.Setup("Bogus")), ErrInvalidSetup)
}

// setThreshold seeds an APA threshold directly, standing in for a full
// baseline collection.
func setThreshold(e *Engine, v float64) {
	e.mu.Lock()
	e.baselineMax = []float64{v}
	e.baselineCount = 1
	e.recomputeThreshold()
	e.mu.Unlock()
}

func TestStepTrialFiresStimulusOnce(t *testing.T) {
	f := newFixture(t)
	s := f.startSession(t)

	// Burst starts well after the quiet stance window (50) plus the pause
	// (10); amplitude 50 N crosses any reasonable threshold.
	f.dev.SetScript(daq.StepAfter(daq.QuietStance(700, 1), 120, 400, 50))
	require.NoError(t, f.w.Start())

	setThreshold(f.engine, 100) // 5% of 100 N -> 5 N threshold

	require.NoError(t, f.engine.StartTrial(TrialTypeStep, stimulus.SetupTest))
	assert.Equal(t, StateTrialRunning, f.engine.State())

	// Give the burst time to cross the threshold, then stop.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, f.engine.StopTrial())
	assert.Equal(t, StateTrialReview, f.engine.State())

	fires := f.trigger.Fires()
	require.Len(t, fires, 1)
	assert.Equal(t, stimulus.SetupTest, fires[0])

	record, err := f.engine.SaveTrial(true, "clean step")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, s.ID, record.SessionID)
	assert.True(t, record.StimulusFired)
	assert.Equal(t, "clean step", record.Notes)
	assert.FileExists(t, record.FilePath)

	data, err := os.ReadFile(record.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Patient ID:,P001")

	assert.Equal(t, 1, f.engine.Snapshot().TrialCount)
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestStepTrialNoStimulusSetup(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.dev.SetScript(daq.StepAfter(daq.QuietStance(700, 1), 120, 400, 50))
	require.NoError(t, f.w.Start())
	setThreshold(f.engine, 100)

	require.NoError(t, f.engine.StartTrial(TrialTypeStep, stimulus.SetupNone))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, f.engine.StopTrial())

	assert.Empty(t, f.trigger.Fires())

	record, err := f.engine.SaveTrial(true, "")
	require.NoError(t, err)
	assert.False(t, record.StimulusEnabled)
	assert.False(t, record.StimulusFired)
}

func TestStepTrialStoppedDuringQuietStanceAborts(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.w.Start())
	setThreshold(f.engine, 100)

	require.NoError(t, f.engine.StartTrial(TrialTypeStep, stimulus.SetupNone))
	require.NoError(t, f.engine.StopTrial())
	waitState(t, f.engine, StateIdle)

	_, err := f.engine.SaveTrial(true, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStopTrialConcurrent(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartTrial(TrialTypeStanding, stimulus.SetupNone))

	// Exactly one stop request may win; the rest must bounce off the state
	// check instead of closing the stop channel a second time.
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.engine.StopTrial()
		}(i)
	}
	wg.Wait()

	stopped := 0
	for _, err := range errs {
		if err == nil {
			stopped++
		} else {
			assert.ErrorIs(t, err, ErrInvalidState)
		}
	}
	assert.Equal(t, 1, stopped)
}

func TestStandingTrialStopsItself(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartTrial(TrialTypeStanding, stimulus.SetupConditioned))
	f.engine.WaitForTrial()
	assert.Equal(t, StateTrialReview, f.engine.State())

	// 100 trial samples with a stimulus every 40: fires at 0, 40 and 80.
	assert.Len(t, f.trigger.Fires(), 3)

	record, err := f.engine.SaveTrial(true, "")
	require.NoError(t, err)
	assert.Equal(t, TrialTypeStanding, record.TrialType)
	assert.True(t, record.StimulusFired)
	assert.Zero(t, record.Threshold)
}

func TestDiscardTrial(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.w.Start())

	require.NoError(t, f.engine.StartTrial(TrialTypeStanding, stimulus.SetupNone))
	f.engine.WaitForTrial()

	record, err := f.engine.SaveTrial(false, "")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 0, f.engine.Snapshot().TrialCount)

	count, err := f.trials.CountBySession(f.engine.Snapshot().SessionID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
