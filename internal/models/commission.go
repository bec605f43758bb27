package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionStatus is the payment status of an accrued commission
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// Commission is the amount owed to an affiliate for one qualifying booking.
// The unique index on ReferralID is what guarantees at most one commission
// per referral even under concurrent accrual attempts.
type Commission struct {
	Base
	ReferralID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"referral_id"`
	Referral   Referral  `gorm:"foreignKey:ReferralID" json:"-"`
	// Denormalized from the referral at creation time for query efficiency.
	AffiliateID uuid.UUID `gorm:"type:uuid;not null;index" json:"affiliate_id"`

	BookingID     string          `gorm:"type:varchar(100);not null" json:"booking_id"`
	BookingAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"booking_amount"`
	Rate          decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"rate"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`

	Status CommissionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Set once by the batcher when the commission is claimed into a payout,
	// cleared only if that payout fails.
	PayoutID *uuid.UUID `gorm:"type:uuid;index" json:"payout_id,omitempty"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}
