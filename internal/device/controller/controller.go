package controller

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/william-ls-liu/evaluating-psi/internal/daq"
	"github.com/william-ls-liu/evaluating-psi/internal/daq/worker"
	"github.com/william-ls-liu/evaluating-psi/internal/device/handler"
	"github.com/william-ls-liu/evaluating-psi/pkg/api"
)

type Device interface {
	Status(ctx *gin.Context)
	CreateTask(ctx *gin.Context)
	CloseTask(ctx *gin.Context)
	StartSampling(ctx *gin.Context)
	StopSampling(ctx *gin.Context)
	SelfTest(ctx *gin.Context)
}

var (
	device Device
	once   sync.Once
)

type DeviceController struct {
	Sampler handler.Sampler
}

func NewController() Device {
	if device == nil {
		once.Do(func() {
			device = &DeviceController{
				Sampler: handler.Instance(),
			}
		})
	}
	return device
}

func (d *DeviceController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, d.Sampler.Status())
}

func (d *DeviceController) CreateTask(ctx *gin.Context) {
	if err := d.Sampler.CreateTask(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Task created"})
}

func (d *DeviceController) CloseTask(ctx *gin.Context) {
	if err := d.Sampler.CloseTask(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Task closed"})
}

func (d *DeviceController) StartSampling(ctx *gin.Context) {
	if err := d.Sampler.StartSampling(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Sampling started"})
}

func (d *DeviceController) StopSampling(ctx *gin.Context) {
	if err := d.Sampler.StopSampling(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Sampling stopped"})
}

func (d *DeviceController) SelfTest(ctx *gin.Context) {
	if err := d.Sampler.SelfTest(); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Self test passed"})
}

// respondError maps task lifecycle errors to conflicts, a missing task to an
// unmet precondition, bad arguments to 400 and everything else to an internal
// error.
func respondError(ctx *gin.Context, err error) {
	apiErr := apiError(err)
	ctx.Error(apiErr)
	ctx.JSON(api.StatusOf(apiErr), apiErr)
}

func apiError(err error) *api.Error {
	switch {
	case errors.Is(err, daq.ErrTaskExists),
		errors.Is(err, daq.ErrAlreadyRunning),
		errors.Is(err, daq.ErrNotRunning),
		errors.Is(err, worker.ErrAlreadySampling),
		errors.Is(err, worker.ErrNotSampling):
		return api.NewConflictError(err.Error())
	case errors.Is(err, daq.ErrNoTask):
		return api.NewPreconditionError(err.Error())
	case errors.Is(err, daq.ErrInvalidChannels):
		return api.NewBadRequestError(err.Error())
	}
	return api.NewInternalError(err.Error())
}
