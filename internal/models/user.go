package models

import "time"

// User is a row of the users table, owned by the identity subsystem.
type User struct {
	UserID    string    `json:"userID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Group is a row of the groups table.
type Group struct {
	GroupID   string    `json:"groupID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Membership is a row of the memberships table.
type Membership struct {
	UserID  string `json:"userID"`
	GroupID string `json:"groupID"`
}
