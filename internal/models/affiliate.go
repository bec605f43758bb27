package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliateStatus is the lifecycle status of an affiliate account
type AffiliateStatus string

const (
	AffiliateStatusPending   AffiliateStatus = "pending"
	AffiliateStatusActive    AffiliateStatus = "active"
	AffiliateStatusSuspended AffiliateStatus = "suspended"
	AffiliateStatusBanned    AffiliateStatus = "banned"
)

// AffiliateTier determines the commission rate applied to bookings
type AffiliateTier string

const (
	AffiliateTierStarter  AffiliateTier = "starter"
	AffiliateTierBronze   AffiliateTier = "bronze"
	AffiliateTierSilver   AffiliateTier = "silver"
	AffiliateTierGold     AffiliateTier = "gold"
	AffiliateTierPlatinum AffiliateTier = "platinum"
)

// Affiliate represents a partner who refers customers to the platform.
// Affiliates are never hard-deleted; suspension or banning keeps the
// historical referral and payout trail intact.
type Affiliate struct {
	Base
	UserID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	BusinessName string          `gorm:"type:varchar(255)" json:"business_name"`
	Website      string          `gorm:"type:varchar(255)" json:"website"`
	TaxID        string          `gorm:"type:varchar(100)" json:"-"`
	ReferralCode string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"referral_code"`
	TrackingID   string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"tracking_id"`
	Tier         AffiliateTier   `gorm:"type:varchar(20);not null;default:'starter'" json:"tier"`
	Status       AffiliateStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Lifetime counters. Only updated through relative SQL increments so
	// they stay correct under concurrent writers.
	TotalClicks          int64           `gorm:"not null;default:0" json:"total_clicks"`
	TotalCommissionsPaid decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_commissions_paid"`

	PayoutMethod       string          `gorm:"type:varchar(50);not null;default:'paypal'" json:"payout_method"`
	PayoutEmail        string          `gorm:"type:varchar(255)" json:"payout_email"`
	MinPayoutThreshold decimal.Decimal `gorm:"type:decimal(20,2);not null;default:50" json:"min_payout_threshold"`
}
