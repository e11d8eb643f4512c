package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	auction "auction-house/internal/auctionService"
	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/services/auction/helpers"
	"auction-house/utils"
)

type AuctionServiceInterface interface {
	ListActive() (auction.Feed, error)
	FilterByCategory(categoryName string) (auction.Feed, error)
	CreateListing(name, description, imageURL, categoryName, posterID string, startingPrice float64) (model.Listing, error)
	ViewListing(listingID, viewerID string) (auction.ListingDetail, error)
	PlaceBid(listingID, userID string, amount float64) (model.Bid, error)
	CloseAuction(listingID, userID string) error
	Watch(listingID, userID string) error
	Unwatch(listingID, userID string) error
	Watchlist(userID string) ([]model.Listing, error)
	AddComment(listingID, userID, message string) (model.Comment, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// IndexHandler handles GET /
func (h *AuctionHandler) IndexHandler(c *gin.Context) {
	feed, err := h.service.ListActive()
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("IndexHandler: failed to load feed", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, feed, "active listings retrieved successfully")
}

// ByCategoryHandler handles POST /by_category
func (h *AuctionHandler) ByCategoryHandler(c *gin.Context) {
	var req helpers.CategoryFilterRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.HandleBindError(c, "ByCategoryHandler", err)
		return
	}

	feed, err := h.service.FilterByCategory(req.Category)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ByCategoryHandler: failed to filter", map[string]any{
			"category": req.Category,
			"error":    err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, feed, "filtered listings retrieved successfully")
	helpers.LogSuccess("ByCategoryHandler", "filtered listings retrieved successfully", map[string]any{
		"category": req.Category,
		"count":    len(feed.Listings),
	})
}

// NewListingHandler handles GET /create, returning the form's category
// choices
func (h *AuctionHandler) NewListingHandler(c *gin.Context) {
	feed, err := h.service.ListActive()
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"categories": feed.Categories}, "categories retrieved successfully")
}

// CreateListingHandler handles POST /create
func (h *AuctionHandler) CreateListingHandler(c *gin.Context) {
	var req helpers.CreateListingRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.HandleBindError(c, "CreateListingHandler", err)
		return
	}
	user, _ := helpers.CurrentUser(c)

	listing, err := h.service.CreateListing(req.Name, req.Description, req.ImageURL, req.Category, user.UserID, req.Price)
	if err != nil {
		// a category the poster typed but that does not exist is a form
		// error, not a missing page
		if errors.Is(err, auctionerrors.ErrCategoryNotFound) {
			utils.JSONError(c, http.StatusBadRequest, err, "category does not exist")
			utils.Warn("CreateListingHandler: unknown category", map[string]any{
				"category": req.Category,
				"user_id":  user.UserID,
			})
			return
		}
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateListingHandler: failed to create listing", map[string]any{
			"name":    req.Name,
			"user_id": user.UserID,
			"error":   err.Error(),
		})
		return
	}

	helpers.LogSuccess("CreateListingHandler", "listing created successfully", map[string]any{
		"listing_id": listing.ListingID,
		"name":       listing.Name,
		"user_id":    user.UserID,
	})
	c.Redirect(http.StatusSeeOther, "/")
}

// ListingDetailHandler handles GET /listing/:id
func (h *AuctionHandler) ListingDetailHandler(c *gin.Context) {
	listingID := c.Param("id")
	var viewerID string
	if user, ok := helpers.CurrentUser(c); ok {
		viewerID = user.UserID
	}

	detail, err := h.service.ViewListing(listingID, viewerID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListingDetailHandler: failed to load listing", map[string]any{
			"listing_id": listingID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, detail, "listing retrieved successfully")
}

// PlaceBidHandler handles POST /listing/:id
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	listingID := c.Param("id")
	user, _ := helpers.CurrentUser(c)

	var req helpers.PlaceBidRequest
	_ = c.ShouldBind(&req)

	// a missing or malformed amount is rejected the same way a low bid is
	amount, parseErr := strconv.ParseFloat(req.NewBid, 64)
	if parseErr != nil || amount <= 0 {
		utils.JSONError(c, http.StatusConflict, auctionerrors.ErrInvalidBid, helpers.BidRejectedMessage)
		utils.Warn("PlaceBidHandler: unparseable bid", map[string]any{
			"listing_id": listingID,
			"user_id":    user.UserID,
			"new_bid":    req.NewBid,
		})
		return
	}

	bid, err := h.service.PlaceBid(listingID, user.UserID, amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("PlaceBidHandler: bid not placed", map[string]any{
			"listing_id": listingID,
			"user_id":    user.UserID,
			"amount":     amount,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.BidResponse{
		BidID:     bid.BidID,
		ListingID: bid.ListingID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, helpers.BidPlacedMessage)
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"listing_id": bid.ListingID,
		"user_id":    bid.UserID,
		"amount":     bid.Amount,
	})
}

// CloseAuctionHandler handles POST /close/:id
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	listingID := c.Param("id")
	user, _ := helpers.CurrentUser(c)

	if err := h.service.CloseAuction(listingID, user.UserID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CloseAuctionHandler: failed to close auction", map[string]any{
			"listing_id": listingID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"listing_id": listingID, "is_active": false}, helpers.AuctionClosedMessage)
	helpers.LogSuccess("CloseAuctionHandler", "auction closed", map[string]any{
		"listing_id": listingID,
		"user_id":    user.UserID,
	})
}

// WatchHandler handles GET /watch/:id and redirects back to the listing
func (h *AuctionHandler) WatchHandler(c *gin.Context) {
	listingID := c.Param("id")
	user, _ := helpers.CurrentUser(c)

	if err := h.service.Watch(listingID, user.UserID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("WatchHandler: failed to watch listing", map[string]any{
			"listing_id": listingID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/listing/"+listingID)
}

// UnwatchHandler handles GET /unwatch/:id and redirects back to the listing
func (h *AuctionHandler) UnwatchHandler(c *gin.Context) {
	listingID := c.Param("id")
	user, _ := helpers.CurrentUser(c)

	if err := h.service.Unwatch(listingID, user.UserID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("UnwatchHandler: failed to unwatch listing", map[string]any{
			"listing_id": listingID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/listing/"+listingID)
}

// WatchlistHandler handles GET /watchlist/
func (h *AuctionHandler) WatchlistHandler(c *gin.Context) {
	user, _ := helpers.CurrentUser(c)

	listings, err := h.service.Watchlist(user.UserID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("WatchlistHandler: failed to load watchlist", map[string]any{
			"user_id": user.UserID,
			"error":   err.Error(),
		})
		return
	}

	if listings == nil {
		listings = []model.Listing{}
	}

	utils.JSONResponse(c, http.StatusOK, listings, "watched listings retrieved successfully")
}

// CommentHandler handles POST /comment/:id and redirects back to the listing
func (h *AuctionHandler) CommentHandler(c *gin.Context) {
	listingID := c.Param("id")
	user, _ := helpers.CurrentUser(c)

	var req helpers.CommentRequest
	_ = c.ShouldBind(&req)

	comment, err := h.service.AddComment(listingID, user.UserID, req.NewComment)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CommentHandler: failed to add comment", map[string]any{
			"listing_id": listingID,
			"user_id":    user.UserID,
			"error":      err.Error(),
		})
		return
	}

	helpers.LogSuccess("CommentHandler", "comment added", map[string]any{
		"comment_id": comment.CommentID,
		"listing_id": listingID,
		"user_id":    user.UserID,
	})
	c.Redirect(http.StatusSeeOther, "/listing/"+listingID)
}
