package internal

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
	deviceHandler "github.com/william-ls-liu/evaluating-psi/internal/device/handler"
	experimentHandler "github.com/william-ls-liu/evaluating-psi/internal/experiment/handler"
	sqlrepo "github.com/william-ls-liu/evaluating-psi/internal/repositories/sql"
	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

// InitAll wires the domain singletons. The config, logger and database
// connectors must already be initialized.
func InitAll(config configs.Configs) {
	connection, err := infra.SQL.GetConnection()
	if err != nil {
		log.Panic().Err(err).Msg("DB connection not initialized")
	}
	conn, err := connection.GetConn()
	if err != nil {
		log.Panic().Err(err).Msg("Failed to get database handle")
	}
	if err := sqlrepo.Migrate(conn.(*gorm.DB)); err != nil {
		log.Panic().Err(err).Msg("Database migration failed")
	}

	deviceHandler.Init(config)
	experimentHandler.Init(config)
}
