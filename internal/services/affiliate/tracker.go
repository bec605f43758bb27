package affiliate

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"github.com/voyara/backend/internal/utils"
	"gorm.io/gorm"
)

// Tracker records inbound clicks against referral codes and issues the
// time-boxed attribution tokens used to correlate later signups and
// bookings.
type Tracker struct {
	db     *gorm.DB
	log    *activity.Logger
	window time.Duration
}

// NewTracker creates a new click attribution tracker
func NewTracker(db *gorm.DB, log *activity.Logger, window time.Duration) *Tracker {
	return &Tracker{db: db, log: log, window: window}
}

// TrackClickInput is the inbound click payload
type TrackClickInput struct {
	ReferralCode string
	LandingPage  string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
	IPAddress    string
	UserAgent    string
}

// ClickResult is returned to the caller, which stores the token client-side
type ClickResult struct {
	ClickID      string    `json:"click_id"`
	CookieExpiry time.Time `json:"cookie_expiry"`
}

// TrackClick looks up the affiliate by code, creates a referral in click
// status and increments the affiliate's click counter. The referral row,
// the counter increment and the activity entry commit as one unit so a
// click is never counted without a traceable referral.
func (t *Tracker) TrackClick(input TrackClickInput) (*ClickResult, error) {
	code := utils.NormalizeReferralCode(input.ReferralCode)
	if code == "" {
		return nil, ErrUnknownOrInactiveCode
	}

	var aff models.Affiliate
	err := t.db.Where("referral_code = ? AND status = ?", code, models.AffiliateStatusActive).First(&aff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownOrInactiveCode
		}
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}

	clickID, err := utils.GenerateClickID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	referral := models.Referral{
		ClickID:      clickID,
		AffiliateID:  aff.ID,
		Status:       models.ReferralStatusClick,
		CookieExpiry: now.Add(t.window),
		LandingPage:  input.LandingPage,
		UTMSource:    input.UTMSource,
		UTMMedium:    input.UTMMedium,
		UTMCampaign:  input.UTMCampaign,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
	}

	err = t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&referral).Error; err != nil {
			return fmt.Errorf("failed to create referral: %w", err)
		}

		// Relative increment so concurrent clicks never lose counts.
		if err := tx.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
			UpdateColumn("total_clicks", gorm.Expr("total_clicks + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to increment click counter: %w", err)
		}

		// Audit is observability, not a source of truth: a failed entry is
		// logged but never aborts the click.
		if err := t.log.RecordTx(tx, aff.ID, models.ActivityClickTracked,
			fmt.Sprintf("Click tracked on %s", input.LandingPage),
			map[string]interface{}{
				"click_id":     clickID,
				"landing_page": input.LandingPage,
				"utm_source":   input.UTMSource,
				"utm_campaign": input.UTMCampaign,
			}); err != nil {
			log.Printf("activity log write failed for click %s: %v", clickID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ClickResult{ClickID: clickID, CookieExpiry: referral.CookieExpiry}, nil
}
