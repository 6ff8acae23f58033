package handler

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	deviceHandler "github.com/william-ls-liu/evaluating-psi/internal/device/handler"
	"github.com/william-ls-liu/evaluating-psi/internal/protocol"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/session"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

var (
	engine *protocol.Engine
	once   sync.Once
)

// Init builds the protocol engine on top of the device worker and the local
// database. The device handler and DB connectors must be initialized first.
func Init(config configs.Configs) {
	once.Do(func() {
		conn, err := infra.SQL.GetConnection()
		if err != nil {
			log.Panic().Err(err).Msg("DB connection not initialized")
		}
		sqlConn := conn.(*infra.SQLConnection)

		sessions, err := session.NewRepository(sqlConn)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to build session repository")
		}
		trials, err := trial.NewRepository(sqlConn)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to build trial repository")
		}

		engine = protocol.New(
			config,
			deviceHandler.Instance().Worker(),
			stimulus.LineTrigger{},
			sessions,
			trials,
		)
		log.Info().Msg("Experiment engine initialized")
	})
}

// Instance returns the initialized engine.
func Instance() *protocol.Engine {
	if engine == nil {
		log.Panic().Msg("Experiment handler not initialized, call Init first")
	}
	return engine
}
