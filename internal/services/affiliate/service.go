package affiliate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"github.com/voyara/backend/internal/utils"
	"gorm.io/gorm"
)

// Service handles affiliate account operations
type Service struct {
	db  *gorm.DB
	log *activity.Logger
}

// NewService creates a new affiliate service
func NewService(db *gorm.DB, log *activity.Logger) *Service {
	return &Service{db: db, log: log}
}

// OnboardInput is the affiliate registration payload
type OnboardInput struct {
	BusinessName string
	Website      string
	TaxID        string
	PayoutMethod string
	PayoutEmail  string
}

// Onboard creates an affiliate account in pending status with a unique
// referral code. An admin approves the account before clicks attribute.
func (s *Service) Onboard(userID uuid.UUID, input OnboardInput) (*models.Affiliate, error) {
	var existing models.Affiliate
	err := s.db.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing affiliate: %w", err)
	}

	code, err := s.uniqueReferralCode(input.BusinessName)
	if err != nil {
		return nil, err
	}

	trackingID, err := utils.GenerateTrackingID()
	if err != nil {
		return nil, err
	}

	aff := models.Affiliate{
		UserID:       userID,
		BusinessName: input.BusinessName,
		Website:      input.Website,
		TaxID:        input.TaxID,
		ReferralCode: code,
		TrackingID:   trackingID,
		Tier:         models.AffiliateTierStarter,
		Status:       models.AffiliateStatusPending,
		PayoutMethod: input.PayoutMethod,
		PayoutEmail:  input.PayoutEmail,
	}
	if aff.PayoutMethod == "" {
		aff.PayoutMethod = "paypal"
	}

	if err := s.db.Create(&aff).Error; err != nil {
		return nil, fmt.Errorf("failed to create affiliate: %w", err)
	}

	s.log.RecordBestEffort(aff.ID, models.ActivityAffiliateOnboarded,
		fmt.Sprintf("Affiliate %s onboarded with code %s", aff.BusinessName, aff.ReferralCode),
		map[string]interface{}{"referral_code": aff.ReferralCode})

	return &aff, nil
}

// uniqueReferralCode retries code generation until it misses the unique index
func (s *Service) uniqueReferralCode(businessName string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateReferralCode(businessName)
		if err != nil {
			return "", err
		}

		var count int64
		if err := s.db.Model(&models.Affiliate{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// GetByUserID returns the affiliate account owned by a user
func (s *Service) GetByUserID(userID uuid.UUID) (*models.Affiliate, error) {
	var aff models.Affiliate
	if err := s.db.Where("user_id = ?", userID).First(&aff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}
	return &aff, nil
}

// AdminUpdate applies an operator change to status and/or tier
func (s *Service) AdminUpdate(affiliateID uuid.UUID, status *models.AffiliateStatus, tier *models.AffiliateTier, notes string, adminID uuid.UUID) (*models.Affiliate, error) {
	var aff models.Affiliate
	if err := s.db.Where("id = ?", affiliateID).First(&aff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	updates := map[string]interface{}{}
	if status != nil {
		updates["status"] = *status
	}
	if tier != nil {
		updates["tier"] = *tier
	}
	if len(updates) == 0 {
		return &aff, nil
	}

	if err := s.db.Model(&aff).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update affiliate: %w", err)
	}

	s.log.RecordBestEffort(aff.ID, models.ActivityAffiliateUpdated,
		fmt.Sprintf("Affiliate updated by admin: %s", notes),
		map[string]interface{}{
			"admin_id": adminID.String(),
			"changes":  updates,
			"notes":    notes,
		})

	return &aff, nil
}

// ListReferrals returns an affiliate's referrals, optionally filtered by
// status, newest first, each with its accrued commission attached.
func (s *Service) ListReferrals(affiliateID uuid.UUID, status models.ReferralStatus, limit, offset int) ([]models.Referral, int64, error) {
	query := s.db.Model(&models.Referral{}).Where("affiliate_id = ?", affiliateID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count referrals: %w", err)
	}

	var referrals []models.Referral
	if err := query.Preload("Commission").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&referrals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list referrals: %w", err)
	}

	return referrals, total, nil
}

// Stats is an affiliate's balance rollup, computed from live rows rather
// than stored counters.
type Stats struct {
	TotalReferrals         int64           `json:"total_referrals"`
	ConvertedReferrals     int64           `json:"converted_referrals"`
	TotalCommissionsEarned decimal.Decimal `json:"total_commissions_earned"`
	PendingBalance         decimal.Decimal `json:"pending_balance"`
	CurrentBalance         decimal.Decimal `json:"current_balance"`
}

// Stats computes the affiliate's referral counts and commission balances.
// Pending balance is the sum of unpaid commissions; current balance is
// everything earned minus the lifetime paid total.
func (s *Service) Stats(affiliateID uuid.UUID) (*Stats, error) {
	var aff models.Affiliate
	if err := s.db.Select("total_commissions_paid").Where("id = ?", affiliateID).First(&aff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	stats := Stats{}
	if err := s.db.Model(&models.Referral{}).
		Where("affiliate_id = ?", affiliateID).
		Count(&stats.TotalReferrals).Error; err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}
	if err := s.db.Model(&models.Referral{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID,
			[]models.ReferralStatus{models.ReferralStatusBooked, models.ReferralStatusCompleted}).
		Count(&stats.ConvertedReferrals).Error; err != nil {
		return nil, fmt.Errorf("failed to count converted referrals: %w", err)
	}

	type sumRow struct {
		Total decimal.Decimal
	}
	var earned, pending sumRow
	if err := s.db.Model(&models.Commission{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("affiliate_id = ?", affiliateID).
		Scan(&earned).Error; err != nil {
		return nil, fmt.Errorf("failed to sum commissions: %w", err)
	}
	if err := s.db.Model(&models.Commission{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("affiliate_id = ? AND status = ?", affiliateID, models.CommissionStatusPending).
		Scan(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to sum pending commissions: %w", err)
	}

	stats.TotalCommissionsEarned = earned.Total
	stats.PendingBalance = pending.Total
	stats.CurrentBalance = earned.Total.Sub(aff.TotalCommissionsPaid)
	return &stats, nil
}
