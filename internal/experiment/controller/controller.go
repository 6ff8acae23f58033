package controller

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/experiment/handler"
	"github.com/william-ls-liu/evaluating-psi/internal/graph"
	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/protocol"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
	"github.com/william-ls-liu/evaluating-psi/pkg/api"
)

type Experiment interface {
	Status(ctx *gin.Context)
	StartSession(ctx *gin.Context)
	SetThreshold(ctx *gin.Context)
	StartBaseline(ctx *gin.Context)
	StopBaseline(ctx *gin.Context)
	CollectBaselineStep(ctx *gin.Context)
	FinishBaselineStep(ctx *gin.Context)
	BaselineGraph(ctx *gin.Context)
	SaveBaselineStep(ctx *gin.Context)
	StartTrial(ctx *gin.Context)
	StopTrial(ctx *gin.Context)
	SaveTrial(ctx *gin.Context)
	TrialGraph(ctx *gin.Context)
	CoPGraph(ctx *gin.Context)
}

var (
	experiment Experiment
	once       sync.Once
)

type ExperimentController struct {
	Engine *protocol.Engine
}

func NewController() Experiment {
	if experiment == nil {
		once.Do(func() {
			experiment = &ExperimentController{
				Engine: handler.Instance(),
			}
		})
	}
	return experiment
}

func (e *ExperimentController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, e.Engine.Snapshot())
}

func (e *ExperimentController) StartSession(ctx *gin.Context) {
	var request handler.StartSession
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		respondError(ctx, api.NewBadRequestError(err.Error()))
		return
	}
	s, err := e.Engine.StartSession(request.PatientID, request.FootMeasurement,
		request.ExportDirectory, request.Vibrotactile)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s)
}

func (e *ExperimentController) SetThreshold(ctx *gin.Context) {
	var request handler.SetThreshold
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		respondError(ctx, api.NewBadRequestError(err.Error()))
		return
	}
	if err := e.Engine.SetThresholdPercent(request.Percent); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, e.Engine.Snapshot())
}

func (e *ExperimentController) StartBaseline(ctx *gin.Context) {
	if err := e.Engine.StartBaseline(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Baseline collection started"})
}

func (e *ExperimentController) StopBaseline(ctx *gin.Context) {
	var request handler.StopBaseline
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		respondError(ctx, api.NewBadRequestError(err.Error()))
		return
	}
	if err := e.Engine.StopBaseline(request.Save); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, e.Engine.Snapshot())
}

func (e *ExperimentController) CollectBaselineStep(ctx *gin.Context) {
	if err := e.Engine.CollectBaselineStep(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Collecting baseline step"})
}

func (e *ExperimentController) FinishBaselineStep(ctx *gin.Context) {
	analysis, err := e.Engine.FinishBaselineStep()
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, analysis)
}

func (e *ExperimentController) BaselineGraph(ctx *gin.Context) {
	analysis, err := e.Engine.ReviewAnalysis()
	if err != nil {
		respondError(ctx, err)
		return
	}
	png, err := graph.Baseline(analysis.Delta, analysis.Peaks, analysis.Valleys)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

func (e *ExperimentController) SaveBaselineStep(ctx *gin.Context) {
	var request handler.ReviewDecision
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		respondError(ctx, api.NewBadRequestError(err.Error()))
		return
	}
	if err := e.Engine.SaveBaselineStep(request.Accept); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, e.Engine.Snapshot())
}

func (e *ExperimentController) StartTrial(ctx *gin.Context) {
	var request handler.StartTrial
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		respondError(ctx, api.NewBadRequestError(err.Error()))
		return
	}
	err := e.Engine.StartTrial(request.TrialType, stimulus.Setup(request.StimulatorSetup))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Trial started"})
}

func (e *ExperimentController) StopTrial(ctx *gin.Context) {
	if err := e.Engine.StopTrial(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, e.Engine.Snapshot())
}

func (e *ExperimentController) SaveTrial(ctx *gin.Context) {
	var request handler.ReviewDecision
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		respondError(ctx, api.NewBadRequestError(err.Error()))
		return
	}
	record, err := e.Engine.SaveTrial(request.Accept, request.Notes)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if record == nil {
		ctx.JSON(http.StatusOK, gin.H{"message": "Trial discarded"})
		return
	}
	ctx.JSON(http.StatusOK, record)
}

func (e *ExperimentController) TrialGraph(ctx *gin.Context) {
	quietStance, trialData, err := e.Engine.ReviewData()
	if err != nil {
		respondError(ctx, err)
		return
	}
	frames := append(append([]platform.Frame{}, quietStance...), trialData...)
	png, err := graph.Trial(frames)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

func (e *ExperimentController) CoPGraph(ctx *gin.Context) {
	quietStance, trialData, err := e.Engine.ReviewData()
	if err != nil {
		respondError(ctx, err)
		return
	}
	frames := append(append([]platform.Frame{}, quietStance...), trialData...)
	png, err := graph.CoPPath(frames)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

// respondError maps protocol errors to the HTTP statuses the bench UI keys
// off: state conflicts to 409, unmet preconditions to 412, bad input to 400.
func respondError(ctx *gin.Context, err error) {
	apiErr := apiError(err)
	ctx.Error(apiErr)
	ctx.JSON(api.StatusOf(apiErr), apiErr)
}

func apiError(err error) *api.Error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, protocol.ErrInvalidState):
		return api.NewConflictError(err.Error())
	case errors.Is(err, protocol.ErrNoSession),
		errors.Is(err, protocol.ErrNotStreaming),
		errors.Is(err, protocol.ErrNoThreshold):
		return api.NewPreconditionError(err.Error())
	case errors.Is(err, protocol.ErrInvalidPercent),
		errors.Is(err, protocol.ErrInvalidSetup),
		errors.Is(err, protocol.ErrInvalidTrialType),
		errors.Is(err, protocol.ErrNoAPA):
		return api.NewBadRequestError(err.Error())
	}
	return api.NewInternalError(err.Error())
}
