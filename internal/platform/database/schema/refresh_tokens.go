// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// RefreshTokensTable represents the 'refresh_tokens' table
type RefreshTokensTable struct {
	Table     string
	ID        string
	UserID    string
	TokenHash string
	CreatedAt string
	ExpiredAt string
	RevokedAt string
	IPAddress string
	UserAgent string
}

// RefreshTokens is the schema definition for refresh_tokens
var RefreshTokens = RefreshTokensTable{
	Table:     "refresh_tokens",
	ID:        "id",
	UserID:    "user_id",
	TokenHash: "token_hash",
	CreatedAt: "created_at",
	ExpiredAt: "expired_at",
	RevokedAt: "revoked_at",
	IPAddress: "ip_address",
	UserAgent: "user_agent",
}

// Columns returns all standard column names in scan order
func (t RefreshTokensTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TokenHash, t.CreatedAt, t.ExpiredAt, t.RevokedAt, t.IPAddress, t.UserAgent,
	}
}
