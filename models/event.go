package models

import "time"

// UserEventType enum
type UserEventType string

const (
	UserCreated UserEventType = "user.created"
	UserUpdated UserEventType = "user.updated"
	UserDeleted UserEventType = "user.deleted"
)

// UserEvent is pushed to open user-management pages after a successful mutation.
type UserEvent struct {
	Type  UserEventType `json:"type"`
	User  User          `json:"user"`
	Actor string        `json:"actor,omitempty"` // username of the admin who made the change
	At    time.Time     `json:"at"`
}
