package model

import "time"

// Severity levels stored in WebLog rows.
const (
	LogLevelDebug = 0
	LogLevelInfo  = 1
	LogLevelWarn  = 2
	LogLevelError = 3
)

// WebLog is one audit log line persisted through the log dispatcher.
type WebLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserIdentity  string    `json:"user_identity"`
	SeverityLevel int       `json:"severity_level"`
	Message       string    `json:"message" gorm:"type:text"`
	DateCreated   time.Time `json:"date_created" gorm:"autoCreateTime"`
}
