package helpers

// Form-bound request DTOs. Field names follow the site's form fields.

type CategoryFilterRequest struct {
	Category string `form:"category" binding:"required"`
}

type CreateListingRequest struct {
	Name        string  `form:"name" binding:"required"`
	Description string  `form:"description"`
	Price       float64 `form:"price" binding:"required,gt=0"`
	ImageURL    string  `form:"imageurl"`
	Category    string  `form:"category" binding:"required"`
}

type PlaceBidRequest struct {
	// kept as a string so a missing or malformed value falls through to the
	// too-low rejection, as the original site behaves
	NewBid string `form:"new_bid"`
}

type CommentRequest struct {
	NewComment string `form:"new_comment"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	ListingID string  `json:"listing_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}
