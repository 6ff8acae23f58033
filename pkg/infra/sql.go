package infra

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/internal/configs"
)

var (
	SQL *SQLConnectors
	mut sync.Mutex
)

// SQLConnectors holds the ConnectionFacade for the local database
type SQLConnectors struct {
	SQLConnection ConnectionFacade
}

func (s *SQLConnectors) GetConnection() (ConnectionFacade, error) {
	if s.SQLConnection == nil {
		return nil, errors.New("connection not found")
	}
	return s.SQLConnection, nil
}

// SQLConnection encapsulates the sqlite database connection. The bench
// machine runs offline, so everything lives in one local file.
type SQLConnection struct {
	DB   *gorm.DB
	Meta map[string]interface{}
}

// GetConn returns the database connection
func (c *SQLConnection) GetConn() (interface{}, error) {
	if c.DB == nil {
		return nil, errors.New("database connection is nil")
	}
	return c.DB, nil
}

// GetMeta returns metadata about the connection
func (c *SQLConnection) GetMeta() (map[string]interface{}, error) {
	if c.Meta == nil {
		return nil, errors.New("meta is nil")
	}
	return c.Meta, nil
}

func (c *SQLConnection) IsLive() bool {
	return c.DB != nil
}

// InitDBConnectors opens the sqlite database named in the configuration.
func InitDBConnectors(config configs.Configs) {
	mut.Lock()
	defer mut.Unlock()
	if SQL != nil {
		return
	}

	db, err := CreateSqliteConnection(config.SqliteDbPath)
	if err != nil {
		log.Panic().Err(err).Msgf("Failed to open sqlite database at %s", config.SqliteDbPath)
	}

	conn := &SQLConnection{
		DB: db,
		Meta: map[string]interface{}{
			"db_path": config.SqliteDbPath,
			"type":    DBTypeSqlite,
		},
	}

	SQL = &SQLConnectors{
		SQLConnection: conn,
	}
	log.Info().Msgf("Connected to sqlite database at %s", config.SqliteDbPath)
}

// CreateSqliteConnection opens a sqlite database at the given path.
// ":memory:" gives an in-memory database, which the tests use.
func CreateSqliteConnection(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}
