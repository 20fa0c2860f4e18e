package models

import (
	"fmt"
	"time"
)

// Connection records one delegated-access grant from a user account.
// At most one row exists per user; re-granting replaces the stored handle.
type Connection struct {
	UserID      int64  `gorm:"primaryKey"            json:"user_id"`
	GrantHandle string `gorm:"not null"              json:"grant_handle"`
	DisplayName string `gorm:"type:varchar(255)"     json:"display_name,omitempty"`
	Handle      string `gorm:"type:varchar(100)"     json:"handle,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "connections"
}

// Label returns the best available human-readable identifier for display.
func (c *Connection) Label() string {
	if c.Handle != "" {
		return fmt.Sprintf("@%s (%d)", c.Handle, c.UserID)
	}
	if c.DisplayName != "" {
		return fmt.Sprintf("%s (%d)", c.DisplayName, c.UserID)
	}
	return fmt.Sprintf("ID %d", c.UserID)
}
