package handler

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	"github.com/william-ls-liu/evaluating-psi/internal/daq"
	"github.com/william-ls-liu/evaluating-psi/internal/daq/worker"
)

var (
	sampler Sampler
	once    sync.Once
)

// Sampler manages the DAQ task lifecycle and the sampling worker.
type Sampler interface {
	Status() Status
	CreateTask() error
	CloseTask() error
	StartSampling() error
	StopSampling() error
	SelfTest() error
	Worker() *worker.Worker
	Device() daq.Device
}

// Status describes the device and whether data is streaming.
type Status struct {
	Device   string  `json:"device"`
	Driver   string  `json:"driver"`
	Rate     float64 `json:"rate"`
	HasTask  bool    `json:"has_task"`
	Sampling bool    `json:"sampling"`
}

// Init opens the configured device and builds the sampling worker. Panics on
// an unknown driver since nothing works without a device.
func Init(config configs.Configs) {
	once.Do(func() {
		dev, err := daq.Open(config.DaqDriver, config.DaqDeviceName)
		if err != nil {
			log.Panic().Err(err).Msgf("Failed to open DAQ driver %s", config.DaqDriver)
		}
		if err := dev.SelfTest(); err != nil {
			log.Panic().Err(err).Msgf("Device %s failed self test", dev.Name())
		}
		sampler = &daqSampler{
			dev:      dev,
			w:        worker.New(dev, config.DaqSubscriberCap),
			driver:   config.DaqDriver,
			channels: config.DaqChannels,
			rate:     config.DaqSampleRate,
		}
		log.Info().Msgf("DAQ device %s ready (driver=%s)", dev.Name(), config.DaqDriver)
	})
}

// Instance returns the initialized sampler.
func Instance() Sampler {
	if sampler == nil {
		log.Panic().Msg("Device handler not initialized, call Init first")
	}
	return sampler
}

type daqSampler struct {
	dev      daq.Device
	w        *worker.Worker
	driver   string
	channels string
	rate     float64
}

func (s *daqSampler) Status() Status {
	return Status{
		Device:   s.dev.Name(),
		Driver:   s.driver,
		Rate:     s.dev.Rate(),
		HasTask:  s.dev.Rate() > 0,
		Sampling: s.w.Running(),
	}
}

// CreateTask configures the analog input task at the configured channels and
// rate and starts acquisition, leaving the device ready for sampling.
func (s *daqSampler) CreateTask() error {
	if err := s.dev.CreateTask(s.channels, s.rate); err != nil {
		return err
	}
	return s.dev.Start()
}

// CloseTask tears the task down. Sampling is stopped first when running.
func (s *daqSampler) CloseTask() error {
	if s.w.Running() {
		if err := s.w.Stop(); err != nil {
			return err
		}
	}
	return s.dev.Close()
}

func (s *daqSampler) StartSampling() error {
	return s.w.Start()
}

func (s *daqSampler) StopSampling() error {
	return s.w.Stop()
}

func (s *daqSampler) SelfTest() error {
	return s.dev.SelfTest()
}

func (s *daqSampler) Worker() *worker.Worker {
	return s.w
}

func (s *daqSampler) Device() daq.Device {
	return s.dev
}
