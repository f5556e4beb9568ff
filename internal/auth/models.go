// Package auth registers users, checks their credentials and issues the
// bearer tokens that guard the favorites API.
package auth

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UpdateProfileRequest changes the username, the password, or both.
// Changing the password requires the current one.
type UpdateProfileRequest struct {
	Username        *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	CurrentPassword string  `json:"currentPassword,omitempty"`
	NewPassword     string  `json:"newPassword,omitempty" validate:"omitempty,min=6,max=72"`
}

// TokenResponse is returned after registration or login.
type TokenResponse struct {
	// Token is the signed bearer token.
	Token string `json:"token"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`

	User *User `json:"user"`
}
