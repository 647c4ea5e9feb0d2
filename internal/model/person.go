package model

import "time"

// Role codes carried in Person.UserRole.
const (
	RoleAdmin      = 1
	RoleStudent    = 2
	RoleManager    = 3
	RoleEditor     = 4
	RoleSupervisor = 5
	RoleExaminer   = 6
)

type Person struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	PersonName     string     `json:"name" gorm:"not null"`
	UserIdentity   string     `json:"email" gorm:"not null;uniqueIndex"`
	UserPassword   string     `json:"-" gorm:"not null"`
	UserRole       int        `json:"role" gorm:"not null;default:2"`
	Info           string     `json:"info,omitempty" gorm:"type:text"` // JSON array of extra login fields
	IsEnabled      bool       `json:"is_enabled" gorm:"not null;default:true"`
	Source         string     `json:"-" gorm:"size:1"`
	DateCreated    time.Time  `json:"date_created" gorm:"autoCreateTime"`
	DateModified   time.Time  `json:"date_modified" gorm:"autoUpdateTime"`
	DateLastAccess *time.Time `json:"date_last_access,omitempty"`
}

// PersonField is one entry of Person.Info: an extra attribute optionally checked
// against a URL parameter at login time.
type PersonField struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
	Param string `json:"Param"`
}
