package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine with CORS, request logging and all routes.
// It fails when the custom binding validators cannot be registered.
func NewRouter(handler *Handler, allowedOrigins []string, logger *logrus.Logger) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		logger.WithError(err).Error("Failed to register request validators")
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AddAllowHeaders(HeaderUserID, HeaderUserRole)
	corsConfig.AddAllowMethods("PATCH")
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router, nil
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	api.Use(handler.Identity())
	{
		api.GET("/health", handler.Health)
		api.GET("/cities", handler.ListCities)
		api.GET("/cities/:name", handler.GetCity)

		api.GET("/listings", handler.SearchListings)
		api.GET("/listings/map", handler.MapListings)
		api.GET("/listings/:id", handler.GetListing)
		api.GET("/listings/:id/availability", handler.GetAvailability)
		api.GET("/listings/:id/reviews", handler.ListListingReviews)
		api.GET("/hosts/:id/reviews", handler.ListHostReviews)
	}

	user := api.Group("")
	user.Use(handler.RequireUser())
	{
		user.POST("/listings", handler.CreateListing)
		user.PUT("/listings/:id", handler.UpdateListing)
		user.PATCH("/listings/:id/publication", handler.SetPublication)
		user.GET("/listings/:id/pricing", handler.ListPricingRules)
		user.PUT("/listings/:id/pricing", handler.UpsertPricingRules)
		user.DELETE("/listings/:id/pricing/:date", handler.DeletePricingRule)
		user.POST("/listings/:id/bookings", handler.CreateBooking)

		user.GET("/host/listings", handler.ListHostListings)
		user.GET("/host/bookings", handler.ListHostBookings)

		user.GET("/bookings", handler.ListTenantBookings)
		user.GET("/bookings/:id", handler.GetBooking)
		user.POST("/bookings/:id/confirm", handler.ConfirmBooking)
		user.POST("/bookings/:id/reject", handler.RejectBooking)
		user.POST("/bookings/:id/cancel", handler.CancelBooking)

		user.POST("/reviews", handler.CreateReview)

		user.GET("/favorites", handler.ListFavorites)
		user.POST("/favorites/:apartmentId", handler.AddFavorite)
		user.DELETE("/favorites/:apartmentId", handler.RemoveFavorite)

		user.GET("/chats", handler.ListChats)
		user.POST("/chats", handler.StartChat)
		user.GET("/chats/unread", handler.UnreadCount)
		user.GET("/chats/:id/messages", handler.OpenChat)
		user.POST("/chats/:id/messages", handler.SendMessage)
		user.GET("/chats/:id/typing", handler.GetTyping)
		user.POST("/chats/:id/typing", handler.SetTyping)
	}

	admin := api.Group("/admin")
	admin.Use(handler.RequireAdmin())
	{
		admin.GET("/listings", handler.ListPendingListings)
		admin.POST("/listings/:id/moderate", handler.ModerateListing)
		admin.GET("/reviews", handler.ListPendingReviews)
		admin.POST("/reviews/:id/moderate", handler.ModerateReview)
		admin.POST("/jobs/:job", handler.RunJob)
	}
}
