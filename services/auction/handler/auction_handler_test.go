package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	auction "auction-house/internal/auctionService"
	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/services/auction/helpers"
)

// newTestRouter builds a gin router that injects the given user into the
// request context, standing in for the session middleware
func newTestRouter(user model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if user.UserID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(helpers.ContextUserKey, user)
			c.Next()
		})
	}
	return router
}

func postForm(t *testing.T, router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	bidder := model.User{UserID: "user1", Username: "alice"}
	router := newTestRouter(bidder)
	router.POST("/listing/:id", h.PlaceBidHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		newBid         string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:   "success",
			newBid: "15.00",
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("l1", "user1", 15.0).
					Return(model.Bid{BidID: "b1", ListingID: "l1", UserID: "user1", Amount: 15, CreatedAt: now}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    helpers.BidPlacedMessage,
		},
		{
			name:   "bid_too_low",
			newBid: "5.00",
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("l1", "user1", 5.0).
					Return(model.Bid{}, auctionerrors.ErrBidTooLow)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    helpers.BidRejectedMessage,
		},
		{
			name:           "missing_amount",
			newBid:         "",
			mockSetup:      func() {},
			expectedStatus: http.StatusConflict,
			expectedMsg:    helpers.BidRejectedMessage,
		},
		{
			name:           "unparseable_amount",
			newBid:         "not-a-number",
			mockSetup:      func() {},
			expectedStatus: http.StatusConflict,
			expectedMsg:    helpers.BidRejectedMessage,
		},
		{
			name:   "listing_not_found",
			newBid: "15.00",
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("l1", "user1", 15.0).
					Return(model.Bid{}, auctionerrors.ErrListingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "listing not found",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			form := url.Values{}
			if tc.newBid != "" {
				form.Set("new_bid", tc.newBid)
			}
			w := postForm(t, router, "/listing/l1", form)
			require.Equal(t, tc.expectedStatus, w.Code)

			resp := parseEnvelope(t, w)
			require.Equal(t, tc.expectedMsg, resp["message"])

			if tc.expectedStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, "b1", data["bid_id"])
				require.Equal(t, 15.0, data["amount"])
			}
		})
	}
}

// Test IndexHandler
func TestIndexHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	router := newTestRouter(model.User{})
	router.GET("/", h.IndexHandler)

	feed := auction.Feed{
		Listings:   []model.Listing{{ListingID: "l1", Name: "Chair", IsActive: true}},
		Categories: []model.Category{{CategoryID: "c1", Name: "Home"}},
	}
	mockService.EXPECT().ListActive().Return(feed, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseEnvelope(t, w)
	data := resp["data"].(map[string]any)
	require.Len(t, data["listings"], 1)
	require.Len(t, data["categories"], 1)
}

// Test ByCategoryHandler
func TestByCategoryHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	router := newTestRouter(model.User{})
	router.POST("/by_category", h.ByCategoryHandler)

	t.Run("success", func(t *testing.T) {
		mockService.EXPECT().FilterByCategory("Toys").
			Return(auction.Feed{Listings: []model.Listing{{ListingID: "l1"}}}, nil)

		w := postForm(t, router, "/by_category", url.Values{"category": {"Toys"}})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown_category", func(t *testing.T) {
		mockService.EXPECT().FilterByCategory("Garden").
			Return(auction.Feed{}, auctionerrors.ErrCategoryNotFound)

		w := postForm(t, router, "/by_category", url.Values{"category": {"Garden"}})
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing_field", func(t *testing.T) {
		w := postForm(t, router, "/by_category", url.Values{})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Test CreateListingHandler
func TestCreateListingHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	poster := model.User{UserID: "poster1", Username: "alice"}
	router := newTestRouter(poster)
	router.POST("/create", h.CreateListingHandler)

	validForm := url.Values{
		"name":        {"Chair"},
		"description": {"a sturdy oak chair"},
		"price":       {"10.00"},
		"imageurl":    {"https://example.com/chair.jpg"},
		"category":    {"Home"},
	}

	t.Run("success_redirects_to_index", func(t *testing.T) {
		mockService.EXPECT().
			CreateListing("Chair", "a sturdy oak chair", "https://example.com/chair.jpg", "Home", "poster1", 10.0).
			Return(model.Listing{ListingID: "l1", Name: "Chair"}, nil)

		w := postForm(t, router, "/create", validForm)
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("unknown_category", func(t *testing.T) {
		mockService.EXPECT().
			CreateListing("Chair", "a sturdy oak chair", "https://example.com/chair.jpg", "Garden", "poster1", 10.0).
			Return(model.Listing{}, auctionerrors.ErrCategoryNotFound)

		form := url.Values{}
		for k, v := range validForm {
			form[k] = v
		}
		form.Set("category", "Garden")

		w := postForm(t, router, "/create", form)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := parseEnvelope(t, w)
		require.Equal(t, "category does not exist", resp["message"])
	})

	t.Run("missing_fields", func(t *testing.T) {
		w := postForm(t, router, "/create", url.Values{"name": {"Chair"}})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Test ListingDetailHandler
func TestListingDetailHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	viewer := model.User{UserID: "user1"}
	router := newTestRouter(viewer)
	router.GET("/listing/:id", h.ListingDetailHandler)

	t.Run("success", func(t *testing.T) {
		detail := auction.ListingDetail{
			Listing:  model.Listing{ListingID: "l1", Name: "Chair"},
			Comments: []model.Comment{{CommentID: "c1", Message: "hi"}},
			Watching: true,
		}
		mockService.EXPECT().ViewListing("l1", "user1").Return(detail, nil)

		req := httptest.NewRequest(http.MethodGet, "/listing/l1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		resp := parseEnvelope(t, w)
		data := resp["data"].(map[string]any)
		require.Equal(t, true, data["watching"])
	})

	t.Run("not_found", func(t *testing.T) {
		mockService.EXPECT().ViewListing("missing", "user1").
			Return(auction.ListingDetail{}, auctionerrors.ErrListingNotFound)

		req := httptest.NewRequest(http.MethodGet, "/listing/missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Test watch handlers
func TestWatchHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	user := model.User{UserID: "user1"}
	router := newTestRouter(user)
	router.GET("/watch/:id", h.WatchHandler)
	router.GET("/unwatch/:id", h.UnwatchHandler)
	router.GET("/watchlist/", h.WatchlistHandler)

	t.Run("watch_redirects_to_listing", func(t *testing.T) {
		mockService.EXPECT().Watch("l1", "user1").Return(nil)

		req := httptest.NewRequest(http.MethodGet, "/watch/l1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/listing/l1", w.Header().Get("Location"))
	})

	t.Run("unwatch_redirects_to_listing", func(t *testing.T) {
		mockService.EXPECT().Unwatch("l1", "user1").Return(nil)

		req := httptest.NewRequest(http.MethodGet, "/unwatch/l1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/listing/l1", w.Header().Get("Location"))
	})

	t.Run("watchlist", func(t *testing.T) {
		mockService.EXPECT().Watchlist("user1").
			Return([]model.Listing{{ListingID: "l1"}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/watchlist/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("watch_unknown_listing", func(t *testing.T) {
		mockService.EXPECT().Watch("missing", "user1").
			Return(auctionerrors.ErrListingNotFound)

		req := httptest.NewRequest(http.MethodGet, "/watch/missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Test CommentHandler
func TestCommentHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	user := model.User{UserID: "user1"}
	router := newTestRouter(user)
	router.POST("/comment/:id", h.CommentHandler)

	t.Run("success_redirects_to_listing", func(t *testing.T) {
		mockService.EXPECT().AddComment("l1", "user1", "nice chair").
			Return(model.Comment{CommentID: "c1"}, nil)

		w := postForm(t, router, "/comment/l1", url.Values{"new_comment": {"nice chair"}})
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/listing/l1", w.Header().Get("Location"))
	})

	t.Run("empty_comment_accepted", func(t *testing.T) {
		mockService.EXPECT().AddComment("l1", "user1", "").
			Return(model.Comment{CommentID: "c2"}, nil)

		w := postForm(t, router, "/comment/l1", url.Values{})
		require.Equal(t, http.StatusSeeOther, w.Code)
	})
}

// Test CloseAuctionHandler
func TestCloseAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	user := model.User{UserID: "poster1"}
	router := newTestRouter(user)
	router.POST("/close/:id", h.CloseAuctionHandler)

	t.Run("poster_closes", func(t *testing.T) {
		mockService.EXPECT().CloseAuction("l1", "poster1").Return(nil)

		w := postForm(t, router, "/close/l1", url.Values{})
		require.Equal(t, http.StatusOK, w.Code)
		resp := parseEnvelope(t, w)
		require.Equal(t, helpers.AuctionClosedMessage, resp["message"])
	})

	t.Run("non_poster_forbidden", func(t *testing.T) {
		mockService.EXPECT().CloseAuction("l1", "poster1").
			Return(auctionerrors.ErrNotPoster)

		w := postForm(t, router, "/close/l1", url.Values{})
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
