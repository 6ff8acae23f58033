package trial

import (
	"errors"

	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

// Repository defines the persistence operations for trial records
type Repository interface {
	Create(trial *Trial) error
	GetByID(id string) (*Trial, error)
	GetBySession(sessionID string) ([]Trial, error)
	CountBySession(sessionID string) (int64, error)
	ListFilePaths() ([]string, error)
}

// TrialRepo implements Repository using gorm
type TrialRepo struct {
	db *gorm.DB
}

// NewRepository creates a new trial repository
func NewRepository(connection *infra.SQLConnection) (Repository, error) {
	if connection == nil {
		return nil, errors.New("connection cannot be nil")
	}

	conn, err := connection.GetConn()
	if err != nil {
		return nil, err
	}

	return &TrialRepo{
		db: conn.(*gorm.DB),
	}, nil
}

func (t *TrialRepo) Create(trial *Trial) error {
	result := t.db.Create(trial)
	return result.Error
}

func (t *TrialRepo) GetByID(id string) (*Trial, error) {
	var trial Trial
	err := t.db.First(&trial, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &trial, nil
}

func (t *TrialRepo) GetBySession(sessionID string) ([]Trial, error) {
	var trials []Trial
	err := t.db.Where("session_id = ?", sessionID).Order("created_at asc").Find(&trials).Error
	return trials, err
}

func (t *TrialRepo) CountBySession(sessionID string) (int64, error) {
	var count int64
	err := t.db.Model(&Trial{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// ListFilePaths returns the export paths of every saved trial, for the
// cleanup job to reconcile against what is on disk.
func (t *TrialRepo) ListFilePaths() ([]string, error) {
	var paths []string
	err := t.db.Model(&Trial{}).Pluck("file_path", &paths).Error
	return paths, err
}
