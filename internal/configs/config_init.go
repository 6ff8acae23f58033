package configs

import (
	"log"
	"sync"

	"github.com/spf13/viper"
)

// ConfigHolder interface for app config
type ConfigHolder interface {
	GetStaticConfig() interface{}
	GetDynamicConfig() interface{}
}

var (
	envOnce sync.Once
)

// InitConfig binds environment variables to the config struct.
// This maps APP_NAME (env) -> app_name (config key).
func InitConfig(configHolder ConfigHolder) {
	envOnce.Do(func() {
		viper.AutomaticEnv()
	})

	staticConfig := configHolder.GetStaticConfig()
	cfg, ok := staticConfig.(*Configs)
	if !ok {
		log.Fatal("Failed to cast static config to *Configs")
	}

	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Failed to unmarshal config from environment: %v", err)
	}

	applyDefaults(cfg)

	log.Println("Configuration loaded from environment variables")
}

func applyDefaults(cfg *Configs) {
	if cfg.DaqDriver == "" {
		cfg.DaqDriver = "sim"
	}
	if cfg.DaqDeviceName == "" {
		cfg.DaqDeviceName = "Dev1"
	}
	if cfg.DaqChannels == "" {
		cfg.DaqChannels = "ai1:8"
	}
	if cfg.DaqSampleRate == 0 {
		cfg.DaqSampleRate = 1000
	}
	if cfg.DaqSubscriberCap == 0 {
		cfg.DaqSubscriberCap = 4096
	}
	if cfg.QuietStanceMs == 0 {
		cfg.QuietStanceMs = 5000
	}
	if cfg.TrialStartDelayMs == 0 {
		cfg.TrialStartDelayMs = 500
	}
	if cfg.StandingTrialMs == 0 {
		cfg.StandingTrialMs = 95000
	}
	if cfg.StimulusInterval == 0 {
		cfg.StimulusInterval = 10000
	}
	if cfg.SqliteDbPath == "" {
		cfg.SqliteDbPath = "psi.db"
	}
}
