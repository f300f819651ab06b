package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Admin rights are granted out-of-band and never by the user.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name shown to administrators.
//  Username     – public handle.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  IsAdmin      – administrator flag.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsAdmin      bool      // users.is_admin
	CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Identity is the authenticated caller of a request, resolved from the
// access token by middleware and passed explicitly to services.
type Identity struct {
	UserID  uint64
	IsAdmin bool
}
