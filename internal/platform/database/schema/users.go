// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UsersTable represents the 'users' table
type UsersTable struct {
	Table        string
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Avatar       string
	Confirmed    string
	CreatedAt    string
	UpdatedAt    string
	// Constraint names raised on unique violations
	UsernameKey string
	EmailKey    string
}

// Users is the schema definition for users
var Users = UsersTable{
	Table:        "users",
	ID:           "id",
	Username:     "username",
	Email:        "email",
	PasswordHash: "password_hash",
	Role:         "role",
	Avatar:       "avatar",
	Confirmed:    "confirmed",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
	UsernameKey:  "users_username_key",
	EmailKey:     "users_email_key",
}

// Columns returns all standard column names in scan order
func (t UsersTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.PasswordHash, t.Role, t.Avatar, t.Confirmed, t.CreatedAt, t.UpdatedAt,
	}
}
