package payout

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"gorm.io/gorm"
)

// Processor settles payout batches. Marking a payout paid is the single
// idempotent operation operators retry freely: the first call wins and
// every later one returns ErrAlreadyProcessed.
type Processor struct {
	db  *gorm.DB
	log *activity.Logger
}

// NewProcessor creates a new payout processor
func NewProcessor(db *gorm.DB, log *activity.Logger) *Processor {
	return &Processor{db: db, log: log}
}

// ProcessInput carries the operator's settlement details. ProcessingFee
// overrides the batched fee when the provider charged differently; it only
// applies while the payout is still settleable.
type ProcessInput struct {
	ReceiptURL    string
	Notes         string
	ProcessingFee *decimal.Decimal
	ProcessedBy   uuid.UUID
}

// Process marks a payout paid, marks its commissions paid and credits the
// affiliate's lifetime paid total, all in one transaction. The payout
// update is conditional on a settleable status, so a duplicate request
// affects zero rows and nothing downstream runs twice.
func (p *Processor) Process(payoutID uuid.UUID, input ProcessInput) (*models.Payout, error) {
	var payout models.Payout
	if err := p.db.Where("id = ?", payoutID).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to load payout: %w", err)
	}

	if !payout.Status.Settleable() {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.PayoutStatusPaid,
		"paid_at":      now,
		"receipt_url":  input.ReceiptURL,
		"notes":        input.Notes,
		"processed_by": input.ProcessedBy,
		"updated_at":   now,
	}
	if input.ProcessingFee != nil {
		updates["processing_fee"] = *input.ProcessingFee
		updates["net_amount"] = payout.Amount.Sub(*input.ProcessingFee)
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status IN ?", payout.ID,
				[]models.PayoutStatus{models.PayoutStatusPending, models.PayoutStatusProcessing}).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to settle payout: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent settlement got there first.
			return ErrAlreadyProcessed
		}

		if err := tx.Model(&models.Commission{}).
			Where("payout_id = ?", payout.ID).
			Updates(map[string]interface{}{
				"status":     models.CommissionStatusPaid,
				"paid_at":    now,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark commissions paid: %w", err)
		}

		// Lifetime total tracks gross commission value, before fees.
		if err := tx.Model(&models.Affiliate{}).Where("id = ?", payout.AffiliateID).
			UpdateColumn("total_commissions_paid",
				gorm.Expr("total_commissions_paid + ?", payout.Amount)).Error; err != nil {
			return fmt.Errorf("failed to credit affiliate total: %w", err)
		}

		if err := p.log.RecordTx(tx, payout.AffiliateID, models.ActivityPayoutPaid,
			fmt.Sprintf("Payout of %s settled via %s", payout.Amount.StringFixed(2), payout.Method),
			map[string]interface{}{
				"payout_id":    payout.ID.String(),
				"amount":       payout.Amount.StringFixed(2),
				"net_amount":   payout.NetAmount.StringFixed(2),
				"method":       payout.Method,
				"processed_by": input.ProcessedBy.String(),
			}); err != nil {
			log.Printf("activity log write failed for payout %s: %v", payout.ID, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	if err := p.db.Where("id = ?", payout.ID).First(&payout).Error; err != nil {
		return nil, fmt.Errorf("failed to reload payout: %w", err)
	}
	return &payout, nil
}

// Fail marks a payout failed and releases its commissions back to the
// unbatched pool so a later batch run can pick them up again.
func (p *Processor) Fail(payoutID uuid.UUID, reason string, processedBy uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := p.db.Where("id = ?", payoutID).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to load payout: %w", err)
	}

	if !payout.Status.Settleable() {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now()
	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status IN ?", payout.ID,
				[]models.PayoutStatus{models.PayoutStatusPending, models.PayoutStatusProcessing}).
			Updates(map[string]interface{}{
				"status":         models.PayoutStatusFailed,
				"failed_at":      now,
				"failure_reason": reason,
				"processed_by":   processedBy,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to fail payout: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyProcessed
		}

		// Commissions stay pending throughout batching, so releasing the
		// claim is all it takes to requeue them.
		if err := tx.Model(&models.Commission{}).
			Where("payout_id = ?", payout.ID).
			Updates(map[string]interface{}{
				"payout_id":  nil,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to release commissions: %w", err)
		}

		if err := p.log.RecordTx(tx, payout.AffiliateID, models.ActivityPayoutFailed,
			fmt.Sprintf("Payout of %s failed: %s", payout.Amount.StringFixed(2), reason),
			map[string]interface{}{
				"payout_id": payout.ID.String(),
				"amount":    payout.Amount.StringFixed(2),
				"reason":    reason,
			}); err != nil {
			log.Printf("activity log write failed for payout %s: %v", payout.ID, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	if err := p.db.Where("id = ?", payout.ID).First(&payout).Error; err != nil {
		return nil, fmt.Errorf("failed to reload payout: %w", err)
	}
	return &payout, nil
}

// ListFor returns an affiliate's payouts, newest first, with a per-status
// summary and the lifetime paid total.
func (p *Processor) ListFor(affiliateID uuid.UUID, limit, offset int) ([]models.Payout, *Summary, error) {
	var payouts []models.Payout
	if err := p.db.Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&payouts).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list payouts: %w", err)
	}

	summary, err := p.SummaryFor(affiliateID)
	if err != nil {
		return nil, nil, err
	}
	return payouts, summary, nil
}

// Summary aggregates an affiliate's payouts by status
type Summary struct {
	ByStatus     map[models.PayoutStatus]StatusTotal `json:"by_status"`
	LifetimePaid string                              `json:"lifetime_paid"`
}

// StatusTotal is the count and amount of payouts in one status
type StatusTotal struct {
	Count  int64  `json:"count"`
	Amount string `json:"amount"`
}

// SummaryFor computes the per-status payout rollup for an affiliate
func (p *Processor) SummaryFor(affiliateID uuid.UUID) (*Summary, error) {
	type row struct {
		Status models.PayoutStatus
		Count  int64
		Amount string
	}
	var rows []row
	if err := p.db.Model(&models.Payout{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(amount), 0) as amount").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize payouts: %w", err)
	}

	var aff models.Affiliate
	if err := p.db.Select("total_commissions_paid").Where("id = ?", affiliateID).First(&aff).Error; err != nil {
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	summary := &Summary{
		ByStatus:     make(map[models.PayoutStatus]StatusTotal, len(rows)),
		LifetimePaid: aff.TotalCommissionsPaid.StringFixed(2),
	}
	for _, r := range rows {
		summary.ByStatus[r.Status] = StatusTotal{Count: r.Count, Amount: r.Amount}
	}
	return summary, nil
}
