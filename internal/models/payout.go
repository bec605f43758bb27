package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the settlement status of a payout batch
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// Settleable reports whether a payout in this status may still transition
// to paid. Settlement is single-shot: paid and failed are terminal.
func (s PayoutStatus) Settleable() bool {
	return s == PayoutStatusPending || s == PayoutStatusProcessing
}

// Payout is one settlement batch of commissions for an affiliate.
// Amount always equals the sum of linked commission amounts.
type Payout struct {
	Base
	AffiliateID uuid.UUID `gorm:"type:uuid;not null;index" json:"affiliate_id"`
	Affiliate   Affiliate `gorm:"foreignKey:AffiliateID" json:"-"`

	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	ProcessingFee decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"processing_fee"`
	NetAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"net_amount"`
	Method        string          `gorm:"type:varchar(50);not null" json:"method"`

	Status PayoutStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	ReceiptURL    string     `gorm:"type:text" json:"receipt_url"`
	Notes         string     `gorm:"type:text" json:"notes"`
	ProcessedBy   *uuid.UUID `gorm:"type:uuid" json:"processed_by,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	FailureReason string     `gorm:"type:text" json:"failure_reason,omitempty"`
}
