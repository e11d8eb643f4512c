package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/utils"
)

// User-facing messages, verbatim from the site's templates
const (
	BidPlacedMessage     = "your bid has been successfully placed."
	BidRejectedMessage   = "Your bid should be greater than the current bid."
	AuctionClosedMessage = "your auction has been closed successfully. Congratulations!"
)

// ContextUserKey is the gin context key under which the session middleware
// stores the authenticated user
const ContextUserKey = "current_user"

// CurrentUser returns the authenticated user injected by the session
// middleware, if any
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok && user.UserID != ""
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid form input: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid form input")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrListingNotFound):
		return http.StatusNotFound, "listing not found"
	case errors.Is(err, auctionerrors.ErrCategoryNotFound):
		return http.StatusNotFound, "category not found"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, BidRejectedMessage
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidListing):
		return http.StatusBadRequest, "invalid listing details"
	case errors.Is(err, auctionerrors.ErrNotPoster):
		return http.StatusForbidden, "only the poster may close the auction"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
