package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voyara/backend/internal/services/affiliate"
)

// ReferralHandler handles public referral traffic
type ReferralHandler struct {
	tracker *affiliate.Tracker
	window  time.Duration
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(tracker *affiliate.Tracker, window time.Duration) *ReferralHandler {
	return &ReferralHandler{tracker: tracker, window: window}
}

// TrackClick records a landing-page visit through a referral link and
// returns the attribution token the frontend stores client-side.
func (h *ReferralHandler) TrackClick(c *gin.Context) {
	var input struct {
		ReferralCode string `json:"referral_code" binding:"required"`
		LandingPage  string `json:"landing_page"`
		UTMSource    string `json:"utm_source"`
		UTMMedium    string `json:"utm_medium"`
		UTMCampaign  string `json:"utm_campaign"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tracker.TrackClick(affiliate.TrackClickInput{
		ReferralCode: input.ReferralCode,
		LandingPage:  input.LandingPage,
		UTMSource:    input.UTMSource,
		UTMMedium:    input.UTMMedium,
		UTMCampaign:  input.UTMCampaign,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, affiliate.ErrUnknownOrInactiveCode) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown or inactive referral code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to track click"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"click_id":        result.ClickID,
		"cookie_expiry":   result.CookieExpiry,
		"expires_in_days": int(h.window.Hours() / 24),
	})
}
