package domain

import "time"

// UserMetadata is the profile data kept by the auth provider alongside the account.
type UserMetadata struct {
	FullName      string `json:"full_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	City          string `json:"city,omitempty"`
	Neighborhood  string `json:"neighborhood,omitempty"`
	IsOwner       bool   `json:"is_owner,omitempty"`
	PhotoPieceURL string `json:"photo_piece_url,omitempty"`
	PhotoFaceURL  string `json:"photo_face_url,omitempty"`
}

// User is the account returned by the auth provider.
type User struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"user_metadata"`
}

// DisplayName falls back to a generic label when no name was provided at sign-up.
func (u User) DisplayName() string {
	if u.Metadata.FullName != "" {
		return u.Metadata.FullName
	}
	return "Utilisateur"
}

// Avatar prefers the selfie, then the ID-card photo.
func (u User) Avatar() string {
	if u.Metadata.PhotoFaceURL != "" {
		return u.Metadata.PhotoFaceURL
	}
	return u.Metadata.PhotoPieceURL
}

// Session is an authenticated session issued by the auth provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
