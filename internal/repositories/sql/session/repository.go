package session

import (
	"errors"

	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

// Repository defines the persistence operations for sessions
type Repository interface {
	Create(session *Session) error
	GetByID(id string) (*Session, error)
	GetAll() ([]Session, error)
	Update(session *Session) error
}

// SessionRepo implements Repository using gorm
type SessionRepo struct {
	db *gorm.DB
}

// NewRepository creates a new session repository
func NewRepository(connection *infra.SQLConnection) (Repository, error) {
	if connection == nil {
		return nil, errors.New("connection cannot be nil")
	}

	conn, err := connection.GetConn()
	if err != nil {
		return nil, err
	}

	return &SessionRepo{
		db: conn.(*gorm.DB),
	}, nil
}

func (s *SessionRepo) Create(session *Session) error {
	result := s.db.Create(session)
	return result.Error
}

func (s *SessionRepo) GetByID(id string) (*Session, error) {
	var session Session
	err := s.db.First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionRepo) GetAll() ([]Session, error) {
	var sessions []Session
	err := s.db.Order("created_at desc").Find(&sessions).Error
	return sessions, err
}

func (s *SessionRepo) Update(session *Session) error {
	result := s.db.Save(session)
	return result.Error
}
