package server

import (
	"github.com/gin-gonic/gin"

	account "auction-house/internal/accountService"
	auction "auction-house/internal/auctionService"
	accounthandler "auction-house/services/account/handler"
	auctionhandler "auction-house/services/auction/handler"
)

// SetupRouter configures all gin routes for the application
func SetupRouter(auctions *auction.AuctionService, accounts *account.AccountService) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())           // recover from panics
	router.Use(RequestLoggerMiddleware)  // custom request logging
	router.Use(SessionMiddleware(accounts))

	auctionHandler := auctionhandler.NewAuctionHandler(auctions)
	accountHandler := accounthandler.NewAccountHandler(accounts)

	// public pages
	router.GET("/", auctionHandler.IndexHandler)
	router.POST("/by_category", auctionHandler.ByCategoryHandler)
	router.GET("/listing/:id", auctionHandler.ListingDetailHandler)

	// account
	router.GET("/login", accountHandler.LoginHandler)
	router.POST("/login", accountHandler.LoginHandler)
	router.GET("/logout", accountHandler.LogoutHandler)
	router.GET("/register", accountHandler.RegisterHandler)
	router.POST("/register", accountHandler.RegisterHandler)

	// actions that require a logged-in user; anonymous callers are
	// redirected to /login
	authed := router.Group("/", RequireAuth)
	{
		authed.GET("/create", auctionHandler.NewListingHandler)
		authed.POST("/create", auctionHandler.CreateListingHandler)
		authed.POST("/listing/:id", auctionHandler.PlaceBidHandler)
		authed.POST("/comment/:id", auctionHandler.CommentHandler)
		authed.GET("/watch/:id", auctionHandler.WatchHandler)
		authed.GET("/unwatch/:id", auctionHandler.UnwatchHandler)
		authed.GET("/watchlist/", auctionHandler.WatchlistHandler)
		authed.POST("/close/:id", auctionHandler.CloseAuctionHandler)
	}

	return router
}
