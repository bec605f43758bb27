package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies the kind of state change recorded in the log
type ActivityType string

const (
	ActivityClickTracked       ActivityType = "click_tracked"
	ActivityReferralSignedUp   ActivityType = "referral_signed_up"
	ActivityReferralBooked     ActivityType = "referral_booked"
	ActivityReferralCompleted  ActivityType = "referral_completed"
	ActivityReferralExpired    ActivityType = "referral_expired"
	ActivityCommissionAccrued  ActivityType = "commission_accrued"
	ActivityPayoutBatched      ActivityType = "payout_batched"
	ActivityPayoutPaid         ActivityType = "payout_paid"
	ActivityPayoutFailed       ActivityType = "payout_failed"
	ActivityAffiliateUpdated   ActivityType = "affiliate_updated"
	ActivityAffiliateOnboarded ActivityType = "affiliate_onboarded"
)

// ActivityLog is an append-only record of every state-changing action in
// the referral engine. Entries are never updated or deleted, and control
// decisions never read from here.
type ActivityLog struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AffiliateID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"affiliate_id"`
	ActivityType ActivityType `gorm:"type:varchar(50);not null;index" json:"activity_type"`
	Description  string       `gorm:"type:text;not null" json:"description"`
	MetaData     JSON         `gorm:"type:jsonb" json:"metadata"`
	CreatedAt    time.Time    `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}
