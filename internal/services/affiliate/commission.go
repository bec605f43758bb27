package affiliate

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"gorm.io/gorm"
)

// defaultTierRates maps affiliate tier to commission percentage.
var defaultTierRates = map[models.AffiliateTier]decimal.Decimal{
	models.AffiliateTierStarter:  decimal.NewFromFloat(0.05),
	models.AffiliateTierBronze:   decimal.NewFromFloat(0.06),
	models.AffiliateTierSilver:   decimal.NewFromFloat(0.08),
	models.AffiliateTierGold:     decimal.NewFromFloat(0.10),
	models.AffiliateTierPlatinum: decimal.NewFromFloat(0.12),
}

// AccrualEngine computes and records commissions for qualifying bookings
type AccrualEngine struct {
	db    *gorm.DB
	log   *activity.Logger
	rates map[models.AffiliateTier]decimal.Decimal
}

// NewAccrualEngine creates a new commission accrual engine
func NewAccrualEngine(db *gorm.DB, log *activity.Logger) *AccrualEngine {
	return &AccrualEngine{db: db, log: log, rates: defaultTierRates}
}

// RateForTier returns the commission rate applied to an affiliate tier
func (e *AccrualEngine) RateForTier(tier models.AffiliateTier) decimal.Decimal {
	if rate, ok := e.rates[tier]; ok {
		return rate
	}
	return e.rates[models.AffiliateTierStarter]
}

// ComputeCommission applies a rate to a booking amount, rounded to cents
func ComputeCommission(bookingAmount, rate decimal.Decimal) decimal.Decimal {
	return bookingAmount.Mul(rate).Round(2)
}

// Accrue creates a pending commission for a referral known to be booked.
// At most one commission ever exists per referral: retried booking
// confirmations hit either the pre-check or the unique index and fail with
// ErrNotEligible instead of double-accruing.
func (e *AccrualEngine) Accrue(referralID uuid.UUID, bookingAmount decimal.Decimal) (*models.Commission, error) {
	var referral models.Referral
	if err := e.db.Where("id = ?", referralID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("failed to load referral: %w", err)
	}

	if referral.Status != models.ReferralStatusBooked && referral.Status != models.ReferralStatusCompleted {
		return nil, ErrNotEligible
	}
	if bookingAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNotEligible
	}

	var existing models.Commission
	err := e.db.Where("referral_id = ?", referral.ID).First(&existing).Error
	if err == nil {
		return nil, ErrNotEligible
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing commission: %w", err)
	}

	var aff models.Affiliate
	if err := e.db.Where("id = ?", referral.AffiliateID).First(&aff).Error; err != nil {
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	rate := e.RateForTier(aff.Tier)
	bookingID := ""
	if referral.BookingID != nil {
		bookingID = *referral.BookingID
	}

	commission := models.Commission{
		ReferralID:    referral.ID,
		AffiliateID:   referral.AffiliateID,
		BookingID:     bookingID,
		BookingAmount: bookingAmount,
		Rate:          rate,
		Amount:        ComputeCommission(bookingAmount, rate),
		Status:        models.CommissionStatusPending,
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&commission).Error; err != nil {
			// The unique index on referral_id is the last line of defense
			// against concurrent accrual attempts.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrNotEligible
			}
			return fmt.Errorf("failed to create commission: %w", err)
		}

		if err := e.log.RecordTx(tx, referral.AffiliateID, models.ActivityCommissionAccrued,
			fmt.Sprintf("Commission of %s accrued for booking %s", commission.Amount.StringFixed(2), bookingID),
			map[string]interface{}{
				"referral_id":    referral.ID.String(),
				"booking_id":     bookingID,
				"booking_amount": bookingAmount.StringFixed(2),
				"rate":           rate.String(),
				"amount":         commission.Amount.StringFixed(2),
			}); err != nil {
			log.Printf("activity log write failed for commission on referral %s: %v", referral.ID, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotEligible) {
			return nil, ErrNotEligible
		}
		return nil, err
	}

	return &commission, nil
}
