package model

import "time"

// RankedUser is one row of the user ranking board.
type RankedUser struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"userId"`
	Nickname     string `json:"nickname"`
	Level        int    `json:"level"`
	ReviewCount  int    `json:"reviewCount"`
	LikeCount    int    `json:"likeCount"`
	Badge        string `json:"badge"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// VisitedRegion is an account's visit tally for one region.
type VisitedRegion struct {
	RegionCode    string     `json:"regionCode"`
	RegionName    string     `json:"regionName"`
	VisitCount    int        `json:"visitCount"`
	LastVisitedAt *time.Time `json:"lastVisitedAt"`
}
