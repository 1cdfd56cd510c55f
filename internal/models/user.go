package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SocialLinks are the optional profile links.
type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty" validate:"omitempty,url"`
	Twitter   string `json:"twitter,omitempty" validate:"omitempty,url"`
	Instagram string `json:"instagram,omitempty" validate:"omitempty,url"`
}

// User is the profile document. UID is the identifier every other record refers to
// as authorId/userId.
type User struct {
	ID             uint        `json:"-" gorm:"primaryKey"`
	UID            string      `json:"userId" gorm:"uniqueIndex;size:128"`
	Email          string      `json:"email,omitempty" gorm:"uniqueIndex"`
	Username       string      `json:"username" gorm:"index"`
	Bio            string      `json:"bio"`
	PhotoURL       string      `json:"photoURL"`
	SocialLinks    SocialLinks `json:"socialLinks" gorm:"embedded;embeddedPrefix:social_"`
	Password       string      `json:"-"`
	FirebaseLinked bool        `json:"-"`
	Disabled       bool        `json:"disabled"`
	IsAdmin        bool        `json:"isAdmin"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"-"`
}

// DisplayName falls back from username to the email local part to "Anonymous".
func (u *User) DisplayName() string {
	if u == nil {
		return "Anonymous"
	}
	if u.Username != "" {
		return u.Username
	}
	if name := EmailLocalPart(u.Email); name != "" {
		return name
	}
	return "Anonymous"
}

// PublicProfile strips private fields.
func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		UserID:      u.UID,
		Username:    u.DisplayName(),
		Bio:         u.Bio,
		PhotoURL:    u.PhotoURL,
		SocialLinks: u.SocialLinks,
	}
}

// EmailLocalPart returns the text before '@'.
func EmailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return ""
}

// PublicProfile is what other users see.
type PublicProfile struct {
	UserID      string      `json:"userId"`
	Username    string      `json:"username"`
	Bio         string      `json:"bio"`
	PhotoURL    string      `json:"photoURL,omitempty"`
	SocialLinks SocialLinks `json:"socialLinks"`
}

// SignupRequest registers a local email/password account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SigninRequest authenticates a local account.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest asks for a reset link.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdateProfileRequest edits the caller's own profile.
type UpdateProfileRequest struct {
	Username    string      `json:"username" validate:"required,username"`
	Bio         string      `json:"bio" validate:"max=500"`
	SocialLinks SocialLinks `json:"socialLinks"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}
