package scheduler

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	"github.com/william-ls-liu/evaluating-psi/internal/jobs"
)

var initSchedulerOnce sync.Once

// Init schedules the maintenance tasks. Either cron expression may be left
// empty to disable that task.
func Init(config configs.Configs) {
	initSchedulerOnce.Do(func() {
		if config.SelfTestCronExpression == "" && config.CleanupCronExpression == "" {
			log.Warn().Msg("No maintenance cron expressions configured, skipping scheduler")
			return
		}

		task := jobs.InitMaintenanceTask(config)
		if task == nil {
			log.Fatal().Msg("Failed to initialize maintenance task")
			return
		}

		c := cron.New(cron.WithSeconds())

		if config.SelfTestCronExpression != "" {
			if _, err := c.AddFunc(config.SelfTestCronExpression, task.SelfTest); err != nil {
				log.Error().Err(err).Msg("Failed to schedule the self test task")
				return
			}
		}

		if config.CleanupCronExpression != "" {
			if _, err := c.AddFunc(config.CleanupCronExpression, task.CleanupExports); err != nil {
				log.Error().Err(err).Msg("Failed to schedule the export cleanup task")
				return
			}
		}

		c.Start()
		log.Info().Msg("Maintenance scheduler started")
	})
}
