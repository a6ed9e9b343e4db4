// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Account is a local user account.
//
// ID is the Kakao user id stored as a string. It is the primary key and never
// changes once the account is created: one Kakao identity maps to exactly one
// Account.
//
// Email and ProfileImageURL are optional. Kakao only hands them out when the
// user consented, so an empty string means "unknown", and the database stores
// NULL for it (email is UNIQUE, and SQLite allows many NULLs in a UNIQUE column).
//
// Level, ReviewCount, LikeCount and Badge are maintained by the review flows.
type Account struct {
	ID              string    `json:"userId"`
	Nickname        string    `json:"nickname"`
	Email           string    `json:"email,omitempty"`
	ProfileImageURL string    `json:"profileImage,omitempty"`
	PasswordHash    string    `json:"-"`
	IsActive        bool      `json:"isActive"`
	IsStaff         bool      `json:"isStaff"`
	IsSuperuser     bool      `json:"-"`
	Level           int       `json:"level"`
	ReviewCount     int       `json:"reviewCount"`
	LikeCount       int       `json:"likeCount"`
	Badge           string    `json:"badge"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AccountChanges lists the profile fields a partial update may touch.
// A nil pointer leaves the stored value alone.
type AccountChanges struct {
	Email           *string
	Nickname        *string
	ProfileImageURL *string
	IsActive        *bool
}

// Empty reports whether the change set touches nothing.
func (c AccountChanges) Empty() bool {
	return c.Email == nil && c.Nickname == nil && c.ProfileImageURL == nil && c.IsActive == nil
}

// Apply returns a copy of a with the changes applied.
func (c AccountChanges) Apply(a Account) Account {
	if c.Email != nil {
		a.Email = *c.Email
	}
	if c.Nickname != nil {
		a.Nickname = *c.Nickname
	}
	if c.ProfileImageURL != nil {
		a.ProfileImageURL = *c.ProfileImageURL
	}
	if c.IsActive != nil {
		a.IsActive = *c.IsActive
	}
	return a
}

// LevelFor derives an account level from its review count.
func LevelFor(reviewCount int) int {
	if reviewCount < 0 {
		reviewCount = 0
	}
	return 1 + reviewCount/5
}
