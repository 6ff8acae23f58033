package main

import (
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/rs/zerolog/log"

	psi "github.com/william-ls-liu/evaluating-psi/internal"
	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	deviceRouter "github.com/william-ls-liu/evaluating-psi/internal/device/router"
	experimentRouter "github.com/william-ls-liu/evaluating-psi/internal/experiment/router"
	historyRouter "github.com/william-ls-liu/evaluating-psi/internal/history/router"
	streamRouter "github.com/william-ls-liu/evaluating-psi/internal/stream/router"
	"github.com/william-ls-liu/evaluating-psi/pkg/httpframework"
	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
	"github.com/william-ls-liu/evaluating-psi/pkg/logger"
	"github.com/william-ls-liu/evaluating-psi/pkg/metric"
	"github.com/william-ls-liu/evaluating-psi/pkg/scheduler"
)

type AppConfig struct {
	Configs        configs.Configs
	DynamicConfigs configs.DynamicConfigs
}

func (cfg *AppConfig) GetStaticConfig() interface{} {
	return &cfg.Configs
}

func (cfg *AppConfig) GetDynamicConfig() interface{} {
	return &cfg.DynamicConfigs
}

var (
	appConfig AppConfig
)

func main() {
	configs.InitConfig(&appConfig)

	logger.Init(appConfig.Configs)

	infra.InitDBConnectors(appConfig.Configs)

	metric.Init(appConfig.Configs)

	psi.InitAll(appConfig.Configs)

	// The bench UI is served from a separate origin during development.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	httpframework.Init(cors.New(corsConfig))

	deviceRouter.Init()
	experimentRouter.Init()
	streamRouter.Init()
	historyRouter.Init()

	scheduler.Init(appConfig.Configs)

	port := appConfig.Configs.AppPort
	if port == 0 {
		port = 8082
		log.Warn().Int("port", port).Msg("App port not set, defaulting to 8082")
	}
	if err := httpframework.Instance().Run(":" + strconv.Itoa(port)); err != nil {
		log.Fatal().Err(err).Msg("HTTP server exited")
	}
}
