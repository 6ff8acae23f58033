package trial

import (
	"time"

	"gorm.io/gorm"
)

const (
	trialTableName = "trials"
	trialCreatedAt = "created_at"
)

// Trial is the record of one saved trial: what was collected, under which
// stimulator condition, and where the exported file lives.
type Trial struct {
	ID               string    `gorm:"primaryKey"`
	SessionID        string    `gorm:"not null;index"`
	TrialType        string    `gorm:"not null"`
	StimulatorSetup  string    `gorm:"not null"`
	StimulusEnabled  bool      `gorm:"not null"`
	StimulusFired    bool      `gorm:"not null"`
	Threshold        float64   `gorm:"not null"`
	ThresholdPercent int       `gorm:"not null"`
	FilePath         string    `gorm:"not null"`
	Notes            string
	CreatedAt        time.Time `gorm:"not null"`
}

func (Trial) TableName() string {
	return trialTableName
}

func (Trial) BeforeCreate(tx *gorm.DB) (err error) {
	tx.Statement.SetColumn(trialCreatedAt, time.Now())
	return
}
