package model

import "time"

// Carpool is a ride offer posted by a driver.
type Carpool struct {
	ID             int64            `json:"id"`
	DriverID       string           `json:"driverId"`
	DriverNickname string           `json:"driverNickname"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Departure      string           `json:"departure"`
	Destination    string           `json:"destination"`
	DepartureTime  time.Time        `json:"departureTime"`
	SeatsAvailable int              `json:"seatsAvailable"`
	Likes          int              `json:"likes"`
	CreatedAt      time.Time        `json:"createdAt"`
	Comments       []CarpoolComment `json:"comments,omitempty"`
}

// CarpoolComment is a comment left on a carpool.
type CarpoolComment struct {
	ID        int64     `json:"id"`
	CarpoolID int64     `json:"carpoolId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
