package handlers

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/affiliate"
	"github.com/voyara/backend/internal/services/payout"
)

// AdminHandler handles operator actions on affiliates and payouts
type AdminHandler struct {
	service   *affiliate.Service
	batcher   *payout.Batcher
	processor *payout.Processor
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service *affiliate.Service, batcher *payout.Batcher, processor *payout.Processor) *AdminHandler {
	return &AdminHandler{
		service:   service,
		batcher:   batcher,
		processor: processor,
	}
}

// ProcessPayout settles a payout batch. Safe to retry: the first call wins
// and duplicates get a 409.
func (h *AdminHandler) ProcessPayout(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input struct {
		PayoutID      string           `json:"payout_id" binding:"required"`
		ReceiptURL    string           `json:"receipt_url"`
		ProcessingFee *decimal.Decimal `json:"processing_fee"`
		Notes         string           `json:"notes"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payoutID, err := uuid.Parse(input.PayoutID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout ID"})
		return
	}

	p, err := h.processor.Process(payoutID, payout.ProcessInput{
		ReceiptURL:    input.ReceiptURL,
		Notes:         input.Notes,
		ProcessingFee: input.ProcessingFee,
		ProcessedBy:   adminID,
	})
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrPayoutNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
		case errors.Is(err, payout.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "payout already processed"})
		case storeUnavailable(err):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payout store unavailable, retry later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payout_id":  p.ID,
		"amount":     p.Amount,
		"net_amount": p.NetAmount,
		"method":     p.Method,
		"paid_at":    p.PaidAt,
	})
}

// FailPayout marks a payout failed and requeues its commissions
func (h *AdminHandler) FailPayout(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input struct {
		PayoutID string `json:"payout_id" binding:"required"`
		Reason   string `json:"reason" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payoutID, err := uuid.Parse(input.PayoutID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout ID"})
		return
	}

	p, err := h.processor.Fail(payoutID, input.Reason, adminID)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrPayoutNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
		case errors.Is(err, payout.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "payout already processed"})
		case storeUnavailable(err):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payout store unavailable, retry later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fail payout"})
		}
		return
	}

	c.JSON(http.StatusOK, p)
}

// BatchPayout runs the payout batcher for one affiliate on demand
func (h *AdminHandler) BatchPayout(c *gin.Context) {
	affiliateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid affiliate ID"})
		return
	}

	p, err := h.batcher.BatchFor(affiliateID, time.Now())
	if err != nil {
		if errors.Is(err, payout.ErrNothingToPay) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no eligible commissions to pay out"})
			return
		}
		if storeUnavailable(err) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payout store unavailable, retry later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to batch payout"})
		return
	}

	c.JSON(http.StatusCreated, p)
}

// UpdateAffiliate applies an operator change to an affiliate's status or tier
func (h *AdminHandler) UpdateAffiliate(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	affiliateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid affiliate ID"})
		return
	}

	var input struct {
		Status *models.AffiliateStatus `json:"status"`
		Tier   *models.AffiliateTier   `json:"tier"`
		Notes  string                  `json:"notes"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Status != nil && !validAffiliateStatus(*input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if input.Tier != nil && !validAffiliateTier(*input.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}

	aff, err := h.service.AdminUpdate(affiliateID, input.Status, input.Tier, input.Notes, adminID)
	if err != nil {
		if errors.Is(err, affiliate.ErrAffiliateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "affiliate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update affiliate"})
		return
	}

	c.JSON(http.StatusOK, aff)
}

// storeUnavailable reports whether an error stems from lost database
// connectivity rather than a bad request, so operators get a 503 they can
// retry instead of an opaque 500.
func storeUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func validAffiliateStatus(s models.AffiliateStatus) bool {
	switch s {
	case models.AffiliateStatusPending, models.AffiliateStatusActive,
		models.AffiliateStatusSuspended, models.AffiliateStatusBanned:
		return true
	}
	return false
}

func validAffiliateTier(t models.AffiliateTier) bool {
	switch t {
	case models.AffiliateTierStarter, models.AffiliateTierBronze,
		models.AffiliateTierSilver, models.AffiliateTierGold,
		models.AffiliateTierPlatinum:
		return true
	}
	return false
}
