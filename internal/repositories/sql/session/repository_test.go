package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

func newRepo(t *testing.T) Repository {
	t.Helper()
	db, err := infra.CreateSqliteConnection(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Session{}))

	repo, err := NewRepository(&infra.SQLConnection{DB: db})
	require.NoError(t, err)
	return repo
}

func newSession(patientID string) *Session {
	return &Session{
		ID:              uuid.NewString(),
		PatientID:       patientID,
		FootMeasurement: "26.5",
		Vibrotactile:    true,
		ExportDirectory: "/data/exports",
	}
}

func TestNewRepositoryNilConnection(t *testing.T) {
	_, err := NewRepository(nil)
	assert.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	repo := newRepo(t)

	s := newSession("P001")
	require.NoError(t, repo.Create(s))

	got, err := repo.GetByID(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "P001", got.PatientID)
	assert.Equal(t, "26.5", got.FootMeasurement)
	assert.True(t, got.Vibrotactile)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetAll(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.Create(newSession("P001")))
	require.NoError(t, repo.Create(newSession("P002")))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	repo := newRepo(t)

	s := newSession("P001")
	require.NoError(t, repo.Create(s))

	s.ExportDirectory = "/data/other"
	require.NoError(t, repo.Update(s))

	got, err := repo.GetByID(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "/data/other", got.ExportDirectory)
}
