package model

import "time"

// Course is a curated sightseeing course.
type Course struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Duration      string        `json:"duration"`
	Location      string        `json:"location"`
	Theme         []string      `json:"theme"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	Rating        float64       `json:"rating"`
	EstimatedCost EstimatedCost `json:"estimatedCost"`
	Sites         []Site        `json:"sites"`
}

// EstimatedCost is the expected spend for a course.
type EstimatedCost struct {
	Currency string `json:"currency"`
	Amount   int    `json:"amount"`
}

// Site is one stop on a course.
type Site struct {
	ID   int64  `json:"siteId"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// FavoriteCourse is a course an account has marked as a favorite.
type FavoriteCourse struct {
	Course
	FavoritedAt time.Time `json:"favoritedAt"`
}
