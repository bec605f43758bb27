package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralStatus tracks how far an attributed click has progressed
type ReferralStatus string

const (
	ReferralStatusClick     ReferralStatus = "click"
	ReferralStatusSignedUp  ReferralStatus = "signed_up"
	ReferralStatusBooked    ReferralStatus = "booked"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusExpired   ReferralStatus = "expired"
)

// referralRank orders the forward progression of the state machine.
// Expired is terminal and deliberately absent.
var referralRank = map[ReferralStatus]int{
	ReferralStatusClick:     0,
	ReferralStatusSignedUp:  1,
	ReferralStatusBooked:    2,
	ReferralStatusCompleted: 3,
}

// Rank returns the forward position of a status, or -1 for terminal states.
func (s ReferralStatus) Rank() int {
	rank, ok := referralRank[s]
	if !ok {
		return -1
	}
	return rank
}

// CanAdvanceTo reports whether target is a legal forward move from s.
// Correlation events are delivered at least once and may arrive with
// intermediate steps collapsed or missing, so any forward jump is legal.
// Backward or equal targets are not (callers treat those deliveries as
// idempotent no-ops), and nothing advances out of expired.
func (s ReferralStatus) CanAdvanceTo(target ReferralStatus) bool {
	from, to := s.Rank(), target.Rank()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// CanExpire reports whether a referral in this status may be swept to
// expired. Once a booking exists the referral is immune to expiry.
func (s ReferralStatus) CanExpire() bool {
	return s == ReferralStatusClick || s == ReferralStatusSignedUp
}

// Referral is one attributed click. The click token is handed back to the
// visitor (cookie) and used to correlate later signup and booking events
// within the attribution window.
type Referral struct {
	Base
	ClickID     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"click_id"`
	AffiliateID uuid.UUID      `gorm:"type:uuid;not null;index" json:"affiliate_id"`
	Affiliate   Affiliate      `gorm:"foreignKey:AffiliateID" json:"-"`
	Status      ReferralStatus `gorm:"type:varchar(20);not null;default:'click';index" json:"status"`

	CookieExpiry time.Time `gorm:"not null;index" json:"cookie_expiry"`
	LandingPage  string    `gorm:"type:text" json:"landing_page"`
	UTMSource    string    `gorm:"type:varchar(100)" json:"utm_source"`
	UTMMedium    string    `gorm:"type:varchar(100)" json:"utm_medium"`
	UTMCampaign  string    `gorm:"type:varchar(100)" json:"utm_campaign"`
	IPAddress    string    `gorm:"type:varchar(45)" json:"-"`
	UserAgent    string    `gorm:"type:text" json:"-"`
	MetaData     JSON      `gorm:"type:jsonb" json:"metadata"`

	// Correlated identities, set by the lifecycle manager.
	// BookingID may only be set while status is booked or completed.
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	BookingID *string    `gorm:"type:varchar(100);index" json:"booking_id,omitempty"`

	// The commission accrued for this referral, if any. Loaded on demand
	// for the portal referral list.
	Commission *Commission `gorm:"foreignKey:ReferralID" json:"commission,omitempty"`

	SignedUpAt  *time.Time `json:"signed_up_at,omitempty"`
	BookedAt    *time.Time `json:"booked_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
}
