package session

import (
	"time"

	"gorm.io/gorm"
)

const (
	sessionTableName = "sessions"
	sessionCreatedAt = "created_at"
)

// Session represents one subject visit: demographics plus the export
// location everything collected during the visit is written under.
type Session struct {
	ID              string    `gorm:"primaryKey"`
	PatientID       string    `gorm:"not null;index"`
	FootMeasurement string    `gorm:"not null"`
	Vibrotactile    bool      `gorm:"not null"`
	ExportDirectory string    `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (Session) TableName() string {
	return sessionTableName
}

func (Session) BeforeCreate(tx *gorm.DB) (err error) {
	tx.Statement.SetColumn(sessionCreatedAt, time.Now())
	return
}
