package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voyara/backend/internal/handlers"
	"github.com/voyara/backend/internal/middleware"
)

// SetupRoutes registers every route on the router
func SetupRoutes(
	router *gin.Engine,
	referralHandler *handlers.ReferralHandler,
	affiliateHandler *handlers.AffiliateHandler,
	adminHandler *handlers.AdminHandler,
	rateLimiter *middleware.RateLimiter,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Public click tracking, rate limited per IP
	referralGroup := router.Group("/api/referrals")
	referralGroup.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		referralGroup.POST("/click", referralHandler.TrackClick)
	}

	// Affiliate self-service
	affiliateGroup := router.Group("/api/affiliates")
	affiliateGroup.Use(middleware.AuthMiddleware())
	{
		affiliateGroup.POST("", affiliateHandler.Onboard)
		affiliateGroup.GET("/me", affiliateHandler.GetProfile)
		affiliateGroup.GET("/me/referrals", affiliateHandler.ListReferrals)
		affiliateGroup.GET("/me/payouts", affiliateHandler.ListPayouts)
		affiliateGroup.GET("/me/activity", affiliateHandler.ListActivity)
	}

	// Operator console
	adminGroup := router.Group("/api/admin/affiliates")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.PATCH("/:id", adminHandler.UpdateAffiliate)
		adminGroup.POST("/:id/payouts/batch", adminHandler.BatchPayout)
		adminGroup.POST("/:id/payouts/process", adminHandler.ProcessPayout)
		adminGroup.POST("/:id/payouts/fail", adminHandler.FailPayout)
	}
}
