package models

import "time"

// User represents a registered account on the auction site
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a logged-in user's server-side session, referenced by the
// session_id cookie
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups listings; listing creation requires a category that
// already exists
type Category struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// Bid represents a user's offer on a listing. Bids are immutable once
// recorded and are never deleted.
type Bid struct {
	BidID     string    `json:"bid_id"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Listing is an item offered for auction. CurrentBid is nil until the
// starting bid is recorded; the full bid history lives in the store.
type Listing struct {
	ListingID   string    `json:"listing_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	PosterID    string    `json:"poster_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	CurrentBid  *Bid      `json:"current_bid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Comment is an immutable remark left on a listing
type Comment struct {
	CommentID string    `json:"comment_id"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
