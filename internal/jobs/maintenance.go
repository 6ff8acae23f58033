// Package jobs holds the scheduled maintenance tasks: a periodic device self
// test and a sweep of the export directory for files no saved trial owns.
package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	deviceHandler "github.com/william-ls-liu/evaluating-psi/internal/device/handler"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
	"github.com/william-ls-liu/evaluating-psi/pkg/metric"
)

type Task interface {
	SelfTest()
	CleanupExports()
}

var (
	maintenanceOnce sync.Once
	task            Task
)

type TaskImpl struct {
	trialRepo trial.Repository
	sampler   deviceHandler.Sampler
	exportDir string
}

func InitMaintenanceTask(config configs.Configs) Task {
	maintenanceOnce.Do(func() {
		connection, err := infra.SQL.GetConnection()
		if err != nil {
			log.Panic().Err(err).Msg("Failed to get SQL connection")
		}
		sqlConn, ok := connection.(*infra.SQLConnection)
		if !ok {
			log.Panic().Msg("Failed to cast connection to SQLConnection")
		}
		trialRepo, err := trial.NewRepository(sqlConn)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create trial repository")
			return
		}
		task = &TaskImpl{
			trialRepo: trialRepo,
			sampler:   deviceHandler.Instance(),
			exportDir: config.ExportDirectory,
		}
	})

	return task
}

// SelfTest exercises the device self test. Skipped while sampling is active
// so a running trial is never disturbed.
func (t *TaskImpl) SelfTest() {
	if t.sampler.Worker().Running() {
		log.Debug().Msg("Skipping self test, sampling is active")
		return
	}
	if err := t.sampler.SelfTest(); err != nil {
		metric.Incr(metric.SelfTestFailures, metric.BuildTag(
			metric.NewTag(metric.TagDevice, t.sampler.Device().Name())))
		log.Error().Err(err).Msg("Device self test failed")
		return
	}
	log.Debug().Msg("Device self test passed")
}

// CleanupExports removes exported files under the export root that no saved
// trial references. Interrupted saves can leave these behind.
func (t *TaskImpl) CleanupExports() {
	if t.exportDir == "" {
		return
	}

	paths, err := t.trialRepo.ListFilePaths()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list trial file paths")
		return
	}
	known := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		known[filepath.Clean(p)] = struct{}{}
	}

	removed := 0
	err = filepath.Walk(t.exportDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !strings.HasSuffix(path, ".csv") && !strings.HasSuffix(path, ".csv.zst") {
			return nil
		}
		if _, ok := known[filepath.Clean(path)]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Error().Err(err).Msgf("Failed to remove orphaned export %s", path)
			return nil
		}
		removed++
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Msg("Export cleanup walk failed")
		return
	}
	if removed > 0 {
		log.Info().Msgf("Removed %d orphaned export files", removed)
	}
}
