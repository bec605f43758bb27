package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"github.com/voyara/backend/internal/services/affiliate"
	"github.com/voyara/backend/internal/services/payout"
)

// AffiliateHandler handles affiliate self-service requests
type AffiliateHandler struct {
	service   *affiliate.Service
	processor *payout.Processor
	activity  *activity.Logger
}

// NewAffiliateHandler creates a new affiliate handler
func NewAffiliateHandler(service *affiliate.Service, processor *payout.Processor, activityLog *activity.Logger) *AffiliateHandler {
	return &AffiliateHandler{
		service:   service,
		processor: processor,
		activity:  activityLog,
	}
}

// Onboard registers the authenticated user as an affiliate
func (h *AffiliateHandler) Onboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input struct {
		BusinessName string `json:"business_name" binding:"required"`
		Website      string `json:"website"`
		TaxID        string `json:"tax_id"`
		PayoutMethod string `json:"payout_method"`
		PayoutEmail  string `json:"payout_email"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aff, err := h.service.Onboard(userID, affiliate.OnboardInput{
		BusinessName: input.BusinessName,
		Website:      input.Website,
		TaxID:        input.TaxID,
		PayoutMethod: input.PayoutMethod,
		PayoutEmail:  input.PayoutEmail,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create affiliate"})
		return
	}

	c.JSON(http.StatusCreated, aff)
}

// GetProfile returns the authenticated user's affiliate account with its
// computed balance stats
func (h *AffiliateHandler) GetProfile(c *gin.Context) {
	aff, ok := h.requireAffiliate(c)
	if !ok {
		return
	}

	stats, err := h.service.Stats(aff.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load affiliate stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"affiliate": aff,
		"stats":     stats,
	})
}

// ListReferrals returns the affiliate's referrals, newest first
func (h *AffiliateHandler) ListReferrals(c *gin.Context) {
	aff, ok := h.requireAffiliate(c)
	if !ok {
		return
	}

	status := models.ReferralStatus(c.Query("status"))
	limit, offset := pagination(c)

	referrals, total, err := h.service.ListReferrals(aff.ID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referrals": referrals,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// ListPayouts returns the affiliate's payouts with a per-status summary
func (h *AffiliateHandler) ListPayouts(c *gin.Context) {
	aff, ok := h.requireAffiliate(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)

	payouts, summary, err := h.processor.ListFor(aff.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payouts": payouts,
		"summary": summary,
		"limit":   limit,
		"offset":  offset,
	})
}

// ListActivity returns the affiliate's recent activity entries
func (h *AffiliateHandler) ListActivity(c *gin.Context) {
	aff, ok := h.requireAffiliate(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)

	var types []models.ActivityType
	if t := c.Query("type"); t != "" {
		types = append(types, models.ActivityType(t))
	}

	entries, total, err := h.activity.Query(aff.ID, types, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// requireAffiliate resolves the caller's affiliate account or writes the
// error response.
func (h *AffiliateHandler) requireAffiliate(c *gin.Context) (*models.Affiliate, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	aff, err := h.service.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, affiliate.ErrAffiliateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "affiliate account not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load affiliate"})
		return nil, false
	}
	return aff, true
}

// currentUserID reads the authenticated user ID from the request context
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// pagination parses limit/offset query params with sane bounds
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
