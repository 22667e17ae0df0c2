package models

import (
	"time"
)

// Reviewer maps a browser token to the display name the reviewer entered
type Reviewer struct {
	Token     string    `gorm:"primaryKey;size:36" json:"-"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Reviewer
func (Reviewer) TableName() string {
	return "reviewers"
}
