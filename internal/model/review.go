package model

import "time"

// Review is a travel review written by an account.
type Review struct {
	ID        int64     `json:"reviewId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Region    string    `json:"region"`
	Place     string    `json:"place"`
	Likes     int       `json:"likes"`
	Views     int       `json:"views"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewComment is a comment left on a review.
type ReviewComment struct {
	ID        int64     `json:"commentId"`
	ReviewID  int64     `json:"reviewId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
