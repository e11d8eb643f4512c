package auctionerrors

import "errors"

// Store-level errors
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrUsernameTaken    = errors.New("username already taken")
)

// Business logic errors
var (
	ErrInvalidListing     = errors.New("invalid listing")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrNotPoster          = errors.New("only the poster may close the auction")
	ErrPasswordMismatch   = errors.New("passwords must match")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
)
