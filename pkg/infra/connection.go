package infra

type DBType string

const (
	DBTypeSqlite DBType = "sqlite"
)

// ConnectionFacade is a common interface for database connections
type ConnectionFacade interface {
	// GetConn returns the database connection
	GetConn() (interface{}, error)

	// GetMeta returns metadata about the connection
	GetMeta() (map[string]interface{}, error)
	IsLive() bool
}
