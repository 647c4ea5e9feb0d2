package model

import "time"

// QuizSession tracks one login of a person. While open (no logout IP, no linked
// quiz result) it may carry the in-progress quiz state blob used for recovery.
type QuizSession struct {
	SessionID      uint       `gorm:"primarykey" json:"session_id"`
	PersonID       uint       `json:"person_id" gorm:"not null;index"`
	Person         Person     `json:"-" gorm:"foreignKey:PersonID"`
	IpLogin        string     `json:"ip_login"`
	IpLogout       *string    `json:"ip_logout,omitempty"`
	UserAgent      *string    `json:"user_agent,omitempty"`
	IsRecoverable  bool       `json:"is_recoverable"`
	SessionData    *string    `json:"session_data,omitempty" gorm:"type:text"` // serialized in-progress quiz
	QuizID         *uint      `json:"quiz_id,omitempty"`                       // set when a finished result is linked
	DateCreated    time.Time  `json:"date_created" gorm:"autoCreateTime;index"`
	DateLastUpdate *time.Time `json:"date_last_update,omitempty"`
}

// Recoverable reports whether the session can still be offered for resume.
func (s *QuizSession) Recoverable() bool {
	return s.IpLogout == nil && s.QuizID == nil
}

// HasData reports whether the session carries a non-empty state blob.
func (s *QuizSession) HasData() bool {
	return s.SessionData != nil && *s.SessionData != ""
}
