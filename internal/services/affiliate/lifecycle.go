package affiliate

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"gorm.io/gorm"
)

// EventType is a downstream correlation event consumed from the signup and
// booking handlers.
type EventType string

const (
	EventSignedUp  EventType = "signed_up"
	EventBooked    EventType = "booked"
	EventCompleted EventType = "completed"
)

// targetStatus maps an event to the referral status it advances to.
var targetStatus = map[EventType]models.ReferralStatus{
	EventSignedUp:  models.ReferralStatusSignedUp,
	EventBooked:    models.ReferralStatusBooked,
	EventCompleted: models.ReferralStatusCompleted,
}

// Event carries the correlated identities for a lifecycle transition
type Event struct {
	Type      EventType
	UserID    *uuid.UUID
	BookingID *string
}

// Lifecycle advances referrals through their state machine as correlation
// events arrive, enforcing the attribution window.
type Lifecycle struct {
	db  *gorm.DB
	log *activity.Logger
}

// NewLifecycle creates a new referral lifecycle manager
func NewLifecycle(db *gorm.DB, log *activity.Logger) *Lifecycle {
	return &Lifecycle{db: db, log: log}
}

// Correlate looks up the referral for a click token and applies the event.
// Duplicate or out-of-order deliveries targeting an earlier or equal state
// are no-ops, since webhooks are delivered at-least-once. A booking on a
// referral whose window lapsed before it reached booked fails with
// ErrAttributionExpired: a stale cookie must never earn a commission.
func (m *Lifecycle) Correlate(clickID string, event Event) (*models.Referral, error) {
	target, ok := targetStatus[event.Type]
	if !ok {
		return nil, fmt.Errorf("unknown correlation event type %q", event.Type)
	}

	var referral models.Referral
	if err := m.db.Where("click_id = ?", clickID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("failed to look up referral: %w", err)
	}

	if referral.Status == models.ReferralStatusExpired {
		return nil, ErrAttributionExpired
	}

	// Idempotent no-op for duplicate/backward deliveries.
	if !referral.Status.CanAdvanceTo(target) {
		return &referral, nil
	}

	// A stale cookie cannot reach booked even if the sweep has not caught
	// the row yet. Signups may still land late (the sweep will expire them),
	// and a completion on an already-booked referral is immune because the
	// booking itself happened in time.
	now := time.Now()
	if referral.Status.CanExpire() && now.After(referral.CookieExpiry) &&
		target.Rank() > models.ReferralStatusSignedUp.Rank() {
		return nil, ErrAttributionExpired
	}

	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	if event.UserID != nil {
		updates["user_id"] = *event.UserID
	}
	switch target {
	case models.ReferralStatusSignedUp:
		updates["signed_up_at"] = now
	case models.ReferralStatusBooked:
		updates["booked_at"] = now
		if event.BookingID != nil {
			updates["booking_id"] = *event.BookingID
		}
	case models.ReferralStatusCompleted:
		updates["completed_at"] = now
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		// Conditional write keyed on the status we read keeps concurrent
		// deliveries of the same event from double-applying.
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND status = ?", referral.ID, referral.Status).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to advance referral: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race; the other writer already advanced it.
			return nil
		}

		if err := m.log.RecordTx(tx, referral.AffiliateID, activityForStatus(target),
			fmt.Sprintf("Referral %s advanced to %s", referral.ClickID, target),
			map[string]interface{}{
				"click_id": referral.ClickID,
				"from":     string(referral.Status),
				"to":       string(target),
			}); err != nil {
			log.Printf("activity log write failed for referral %s: %v", referral.ClickID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.db.Where("id = ?", referral.ID).First(&referral).Error; err != nil {
		return nil, fmt.Errorf("failed to reload referral: %w", err)
	}
	return &referral, nil
}

// ExpireStale sweeps referrals whose attribution window has passed without
// a booking and marks them expired. Referrals that reached booked are
// immune: expiry only applies to click and signed_up.
func (m *Lifecycle) ExpireStale(now time.Time) (int64, error) {
	var stale []models.Referral
	if err := m.db.Where("status IN ? AND cookie_expiry < ?",
		[]models.ReferralStatus{models.ReferralStatusClick, models.ReferralStatusSignedUp}, now).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to find stale referrals: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	var expired int64
	for _, referral := range stale {
		res := m.db.Model(&models.Referral{}).
			Where("id = ? AND status = ?", referral.ID, referral.Status).
			Updates(map[string]interface{}{
				"status":     models.ReferralStatusExpired,
				"expired_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return expired, fmt.Errorf("failed to expire referral %s: %w", referral.ClickID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Advanced concurrently; leave it alone.
			continue
		}
		expired++

		m.log.RecordBestEffort(referral.AffiliateID, models.ActivityReferralExpired,
			fmt.Sprintf("Referral %s expired without conversion", referral.ClickID),
			map[string]interface{}{
				"click_id":    referral.ClickID,
				"last_status": string(referral.Status),
			})
	}

	return expired, nil
}

func activityForStatus(status models.ReferralStatus) models.ActivityType {
	switch status {
	case models.ReferralStatusSignedUp:
		return models.ActivityReferralSignedUp
	case models.ReferralStatusBooked:
		return models.ActivityReferralBooked
	case models.ReferralStatusCompleted:
		return models.ActivityReferralCompleted
	default:
		return models.ActivityReferralExpired
	}
}
