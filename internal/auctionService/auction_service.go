package auction

import (
	"errors"
	"fmt"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// AuctionService defines the business logic for listings, bids, watchlists
// and comments
type AuctionService struct {
	store repository.AuctionStore
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(store repository.AuctionStore) *AuctionService {
	return &AuctionService{
		store: store,
	}
}

// Feed is the view model for the listings index: active listings plus the
// categories available for filtering
type Feed struct {
	Listings   []models.Listing  `json:"listings"`
	Categories []models.Category `json:"categories"`
}

// ListingDetail is the view model for a single listing page
type ListingDetail struct {
	Listing  models.Listing   `json:"listing"`
	Comments []models.Comment `json:"comments"`
	Bids     []models.Bid     `json:"bids"`
	Watching bool             `json:"watching"`
	IsPoster bool             `json:"is_poster"`
}

// ListActive returns all active listings and all categories
func (s *AuctionService) ListActive() (Feed, error) {
	listings, err := s.store.ListActiveListings()
	if err != nil {
		return Feed{}, fmt.Errorf("service: failed to list active listings: %w", err)
	}
	categories, err := s.store.ListCategories()
	if err != nil {
		return Feed{}, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return Feed{Listings: listings, Categories: categories}, nil
}

// FilterByCategory returns active listings whose category name matches
// exactly
func (s *AuctionService) FilterByCategory(categoryName string) (Feed, error) {
	category, err := s.store.GetCategoryByName(categoryName)
	if err != nil {
		return Feed{}, fmt.Errorf("service: failed to resolve category %q: %w", categoryName, err)
	}
	listings, err := s.store.ListActiveListingsByCategory(category.CategoryID)
	if err != nil {
		return Feed{}, fmt.Errorf("service: failed to filter listings by category %q: %w", categoryName, err)
	}
	categories, err := s.store.ListCategories()
	if err != nil {
		return Feed{}, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return Feed{Listings: listings, Categories: categories}, nil
}

// CreateListing records the starting bid attributed to the poster and
// creates an active listing referencing it. The category must already exist.
func (s *AuctionService) CreateListing(name, description, imageURL, categoryName, posterID string, startingPrice float64) (models.Listing, error) {
	if name == "" || posterID == "" {
		return models.Listing{}, fmt.Errorf("service: %w - missing name or poster", auctionerrors.ErrInvalidListing)
	}
	if startingPrice <= 0 {
		return models.Listing{}, fmt.Errorf("service: %w - non-positive starting price", auctionerrors.ErrInvalidListing)
	}

	category, err := s.store.GetCategoryByName(categoryName)
	if err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to resolve category %q: %w", categoryName, err)
	}

	now := time.Now().UTC()
	listingID := utils.GenerateID()
	listing := models.Listing{
		ListingID:   listingID,
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		PosterID:    posterID,
		CategoryID:  category.CategoryID,
		IsActive:    true,
		CurrentBid: &models.Bid{
			BidID:     utils.GenerateID(),
			ListingID: listingID,
			UserID:    posterID,
			Amount:    startingPrice,
			CreatedAt: now,
		},
		CreatedAt: now,
	}

	if err := s.store.CreateListing(listing); err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to create listing %q: %w", name, err)
	}
	return listing, nil
}

// ViewListing returns a listing together with its comments (oldest first),
// bid history, and the viewer's relationship to it. viewerID may be empty
// for anonymous visitors.
func (s *AuctionService) ViewListing(listingID, viewerID string) (ListingDetail, error) {
	listing, err := s.store.GetListing(listingID)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("service: failed to get listing %s: %w", listingID, err)
	}
	comments, err := s.store.ListCommentsByListing(listingID)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("service: failed to list comments for listing %s: %w", listingID, err)
	}
	bids, err := s.store.ListBidsByListing(listingID)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("service: failed to list bids for listing %s: %w", listingID, err)
	}

	detail := ListingDetail{
		Listing:  listing,
		Comments: comments,
		Bids:     bids,
	}
	if viewerID != "" {
		watching, err := s.store.IsWatching(listingID, viewerID)
		if err != nil {
			return ListingDetail{}, fmt.Errorf("service: failed to check watch state for listing %s: %w", listingID, err)
		}
		detail.Watching = watching
		detail.IsPoster = listing.PosterID == viewerID
	}
	return detail, nil
}

// PlaceBid validates a bid and hands it to the store, where the comparison
// against the current bid and the replacement happen atomically
func (s *AuctionService) PlaceBid(listingID, userID string, amount float64) (models.Bid, error) {
	if listingID == "" || userID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing listingID or userID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		ListingID: listingID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.PlaceBid(listingID, bid); err != nil {
		if errors.Is(err, auctionerrors.ErrBidTooLow) {
			return models.Bid{}, err
		}
		return models.Bid{}, fmt.Errorf("service: failed to record bid on listing %s by user %s: %w", listingID, userID, err)
	}
	return bid, nil
}

// CloseAuction marks a listing inactive. Only the poster may close their
// auction.
func (s *AuctionService) CloseAuction(listingID, userID string) error {
	listing, err := s.store.GetListing(listingID)
	if err != nil {
		return fmt.Errorf("service: failed to get listing %s: %w", listingID, err)
	}
	if listing.PosterID != userID {
		return fmt.Errorf("service: user %s cannot close listing %s: %w", userID, listingID, auctionerrors.ErrNotPoster)
	}
	if err := s.store.CloseListing(listingID); err != nil {
		return fmt.Errorf("service: failed to close listing %s: %w", listingID, err)
	}
	return nil
}

// Watch idempotently adds the user to the listing's watcher set
func (s *AuctionService) Watch(listingID, userID string) error {
	if listingID == "" || userID == "" {
		return fmt.Errorf("service: %w - missing listingID or userID", auctionerrors.ErrInvalidListing)
	}
	if err := s.store.AddWatcher(listingID, userID); err != nil {
		return fmt.Errorf("service: failed to watch listing %s: %w", listingID, err)
	}
	return nil
}

// Unwatch idempotently removes the user from the listing's watcher set
func (s *AuctionService) Unwatch(listingID, userID string) error {
	if listingID == "" || userID == "" {
		return fmt.Errorf("service: %w - missing listingID or userID", auctionerrors.ErrInvalidListing)
	}
	if err := s.store.RemoveWatcher(listingID, userID); err != nil {
		return fmt.Errorf("service: failed to unwatch listing %s: %w", listingID, err)
	}
	return nil
}

// Watchlist returns the listings a user currently watches, active or not
func (s *AuctionService) Watchlist(userID string) ([]models.Listing, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidListing)
	}
	listings, err := s.store.ListWatchedByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list watched listings for user %s: %w", userID, err)
	}
	return listings, nil
}

// AddComment appends a comment with a server-assigned timestamp. An empty
// message is accepted.
func (s *AuctionService) AddComment(listingID, userID, message string) (models.Comment, error) {
	if listingID == "" || userID == "" {
		return models.Comment{}, fmt.Errorf("service: %w - missing listingID or userID", auctionerrors.ErrInvalidListing)
	}

	comment := models.Comment{
		CommentID: utils.GenerateID(),
		ListingID: listingID,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.AddComment(comment); err != nil {
		return models.Comment{}, fmt.Errorf("service: failed to comment on listing %s: %w", listingID, err)
	}
	return comment, nil
}
