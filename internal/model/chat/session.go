package chat

import "time"

// Session is an anonymous storefront visitor's conversation handle.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenResult tells the widget whether prior history can be resumed.
type OpenResult struct {
	ResumeAvailable bool `json:"resumeAvailable"`
}
