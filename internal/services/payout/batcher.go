package payout

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyara/backend/internal/config"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"gorm.io/gorm"
)

var (
	// ErrNothingToPay is returned when no eligible commissions exist or
	// their sum is below the affiliate's minimum payout threshold.
	ErrNothingToPay = errors.New("nothing to pay out")

	// ErrPayoutNotFound is returned when a payout lookup misses.
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrAlreadyProcessed is returned when settlement is attempted on a
	// payout that is already paid or failed. Retries receive this instead
	// of double-crediting.
	ErrAlreadyProcessed = errors.New("payout already processed")
)

// Batcher groups eligible commissions into payout batches
type Batcher struct {
	db  *gorm.DB
	log *activity.Logger
	cfg config.PayoutConfig
}

// NewBatcher creates a new payout batcher
func NewBatcher(db *gorm.DB, log *activity.Logger, cfg config.PayoutConfig) *Batcher {
	return &Batcher{db: db, log: log, cfg: cfg}
}

// BatchFor selects the affiliate's pending, unbatched commissions created
// up to periodEnd and claims them into a new pending payout. The claim is
// a conditional update on payout_id IS NULL inside the same transaction as
// the payout insert, so two concurrent batch runs can never share a
// commission.
func (b *Batcher) BatchFor(affiliateID uuid.UUID, periodEnd time.Time) (*models.Payout, error) {
	var aff models.Affiliate
	if err := b.db.Where("id = ?", affiliateID).First(&aff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("affiliate %s not found", affiliateID)
		}
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	commissions, err := b.eligibleCommissions(affiliateID, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(commissions) == 0 {
		return nil, ErrNothingToPay
	}

	amount := decimal.Zero
	periodStart := commissions[0].CreatedAt
	ids := make([]uuid.UUID, 0, len(commissions))
	for _, c := range commissions {
		amount = amount.Add(c.Amount)
		if c.CreatedAt.Before(periodStart) {
			periodStart = c.CreatedAt
		}
		ids = append(ids, c.ID)
	}

	threshold := aff.MinPayoutThreshold
	if threshold.IsZero() {
		threshold = b.cfg.DefaultMinThreshold
	}
	if amount.LessThan(threshold) {
		return nil, ErrNothingToPay
	}

	fee := b.cfg.ProcessingFees[aff.PayoutMethod]
	payout := models.Payout{
		AffiliateID:   aff.ID,
		Amount:        amount,
		ProcessingFee: fee,
		NetAmount:     amount.Sub(fee),
		Method:        aff.PayoutMethod,
		Status:        models.PayoutStatusPending,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payout).Error; err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}

		// Claim the commissions. payout_id IS NULL in the WHERE clause is
		// what loses the race cleanly if another batcher claimed one of
		// them between our select and this write.
		res := tx.Model(&models.Commission{}).
			Where("id IN ? AND payout_id IS NULL", ids).
			Update("payout_id", payout.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to claim commissions: %w", res.Error)
		}
		if res.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("claimed %d of %d commissions, aborting batch: %w",
				res.RowsAffected, len(ids), ErrNothingToPay)
		}

		if err := b.log.RecordTx(tx, aff.ID, models.ActivityPayoutBatched,
			fmt.Sprintf("Payout of %s batched from %d commissions", amount.StringFixed(2), len(ids)),
			map[string]interface{}{
				"payout_id":        payout.ID.String(),
				"commission_count": len(ids),
				"amount":           amount.StringFixed(2),
				"net_amount":       payout.NetAmount.StringFixed(2),
				"method":           aff.PayoutMethod,
			}); err != nil {
			log.Printf("activity log write failed for payout %s: %v", payout.ID, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNothingToPay) {
			return nil, ErrNothingToPay
		}
		return nil, err
	}

	return &payout, nil
}

// eligibleCommissions returns pending, unbatched commissions up to
// periodEnd. When EligibleAfterCompletion is set, commissions whose
// referral has not reached completed stay back for a later run, so
// bookings still inside their refund window are never paid out.
func (b *Batcher) eligibleCommissions(affiliateID uuid.UUID, periodEnd time.Time) ([]models.Commission, error) {
	query := b.db.Model(&models.Commission{}).
		Where("commissions.affiliate_id = ? AND commissions.status = ? AND commissions.payout_id IS NULL AND commissions.created_at <= ?",
			affiliateID, models.CommissionStatusPending, periodEnd)

	if b.cfg.EligibleAfterCompletion {
		query = query.
			Joins("JOIN referrals ON referrals.id = commissions.referral_id").
			Where("referrals.status = ?", models.ReferralStatusCompleted)
	}

	var commissions []models.Commission
	if err := query.Order("commissions.created_at ASC").Find(&commissions).Error; err != nil {
		return nil, fmt.Errorf("failed to select eligible commissions: %w", err)
	}
	return commissions, nil
}

// BatchAllDue runs a batch for every active affiliate that has eligible
// commissions. Used by the scheduled settlement run; per-affiliate
// failures are logged and do not stop the sweep.
func (b *Batcher) BatchAllDue(periodEnd time.Time) (int, error) {
	var affiliates []models.Affiliate
	if err := b.db.Where("status = ?", models.AffiliateStatusActive).Find(&affiliates).Error; err != nil {
		return 0, fmt.Errorf("failed to list active affiliates: %w", err)
	}

	created := 0
	for _, aff := range affiliates {
		_, err := b.BatchFor(aff.ID, periodEnd)
		if err != nil {
			if errors.Is(err, ErrNothingToPay) {
				continue
			}
			log.Printf("payout batch failed for affiliate %s: %v", aff.ID, err)
			continue
		}
		created++
	}

	return created, nil
}
