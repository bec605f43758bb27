package payout

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyara/backend/internal/config"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/services/activity"
	"github.com/voyara/backend/internal/services/affiliate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testDB opens the database named by TEST_DATABASE_URL, or skips
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Affiliate{},
		&models.Referral{},
		&models.Commission{},
		&models.Payout{},
		&models.ActivityLog{},
	))

	return db
}

func testPayoutConfig() config.PayoutConfig {
	return config.PayoutConfig{
		DefaultMinThreshold: decimal.NewFromInt(50),
		ProcessingFees: map[string]decimal.Decimal{
			"paypal":        decimal.RequireFromString("1.00"),
			"bank_transfer": decimal.RequireFromString("5.00"),
		},
		EligibleAfterCompletion: true,
		BatchIntervalHours:      24,
	}
}

func createTestAffiliate(t *testing.T, db *gorm.DB, tier models.AffiliateTier) *models.Affiliate {
	t.Helper()

	suffix := strings.ToUpper(uuid.New().String()[:8])
	aff := models.Affiliate{
		UserID:             uuid.New(),
		BusinessName:       "Test Tours " + suffix,
		ReferralCode:       "TEST-" + suffix,
		TrackingID:         "trk_" + strings.ToLower(suffix),
		Tier:               tier,
		Status:             models.AffiliateStatusActive,
		PayoutMethod:       "paypal",
		MinPayoutThreshold: decimal.NewFromInt(10),
	}
	require.NoError(t, db.Create(&aff).Error)
	return &aff
}

// TestSettlementLifecycle walks one referral from click to paid-out
// commission and checks the invariants at each step.
func TestSettlementLifecycle(t *testing.T) {
	db := testDB(t)
	logger := activity.NewLogger(db)

	tracker := affiliate.NewTracker(db, logger, 30*24*time.Hour)
	lifecycle := affiliate.NewLifecycle(db, logger)
	accrual := affiliate.NewAccrualEngine(db, logger)
	batcher := NewBatcher(db, logger, testPayoutConfig())
	processor := NewProcessor(db, logger)

	aff := createTestAffiliate(t, db, models.AffiliateTierGold)
	userID := uuid.New()
	bookingID := "BK-" + uuid.New().String()[:8]

	// Click
	click, err := tracker.TrackClick(affiliate.TrackClickInput{
		ReferralCode: aff.ReferralCode,
		LandingPage:  "/deals/bali",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(click.ClickID, "clk_"))

	var fresh models.Affiliate
	require.NoError(t, db.First(&fresh, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(1), fresh.TotalClicks)

	// Signup, delivered twice
	ref, err := lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventSignedUp, UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusSignedUp, ref.Status)

	ref, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventSignedUp, UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusSignedUp, ref.Status, "duplicate signup must be a no-op")

	// Booking confirmation and accrual
	ref, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventBooked, BookingID: &bookingID})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusBooked, ref.Status)

	amount := decimal.RequireFromString("1000.00")
	commission, err := accrual.Accrue(ref.ID, amount)
	require.NoError(t, err)
	assert.True(t, commission.Amount.Equal(decimal.RequireFromString("100.00")), "gold tier is 10%%, got %s", commission.Amount)

	// A redelivered booking confirmation must not double-accrue
	_, err = accrual.Accrue(ref.ID, amount)
	assert.ErrorIs(t, err, affiliate.ErrNotEligible)

	var commissionCount int64
	require.NoError(t, db.Model(&models.Commission{}).Where("referral_id = ?", ref.ID).Count(&commissionCount).Error)
	assert.Equal(t, int64(1), commissionCount)

	// A concurrent accrual that slips past the pre-check loses to the unique
	// index, and the violation must surface as the translated duplicate-key
	// error the accrual engine maps to ErrNotEligible.
	dup := models.Commission{
		ReferralID:    ref.ID,
		AffiliateID:   aff.ID,
		BookingID:     bookingID,
		BookingAmount: amount,
		Rate:          decimal.RequireFromString("0.10"),
		Amount:        decimal.RequireFromString("100.00"),
		Status:        models.CommissionStatusPending,
	}
	err = db.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Not eligible for batching until the trip completes
	_, err = batcher.BatchFor(aff.ID, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrNothingToPay)

	_, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventCompleted})
	require.NoError(t, err)

	// Batch
	batch, err := batcher.BatchFor(aff.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, batch.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, batch.ProcessingFee.Equal(decimal.RequireFromString("1.00")))
	assert.True(t, batch.NetAmount.Equal(decimal.RequireFromString("99.00")))

	// Claimed commissions must not batch twice
	_, err = batcher.BatchFor(aff.ID, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrNothingToPay)

	// Settle
	paid, err := processor.Process(batch.ID, ProcessInput{ReceiptURL: "https://pay.example/r/1", ProcessedBy: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	// Retried settlement must not double-credit
	_, err = processor.Process(batch.ID, ProcessInput{ProcessedBy: uuid.New()})
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	require.NoError(t, db.First(&fresh, "id = ?", aff.ID).Error)
	assert.True(t, fresh.TotalCommissionsPaid.Equal(decimal.RequireFromString("100.00")),
		"lifetime total is %s", fresh.TotalCommissionsPaid)

	var paidCommission models.Commission
	require.NoError(t, db.First(&paidCommission, "referral_id = ?", ref.ID).Error)
	assert.Equal(t, models.CommissionStatusPaid, paidCommission.Status)
	require.NotNil(t, paidCommission.PayoutID)
	assert.Equal(t, batch.ID, *paidCommission.PayoutID)

	// Portal listing carries the commission alongside each referral, and the
	// balance rollup reconciles: everything earned has been paid out.
	svc := affiliate.NewService(db, logger)
	refs, total, err := svc.ListReferrals(aff.ID, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, refs, 1)
	require.NotNil(t, refs[0].Commission)
	assert.True(t, refs[0].Commission.Amount.Equal(decimal.RequireFromString("100.00")))

	stats, err := svc.Stats(aff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalReferrals)
	assert.Equal(t, int64(1), stats.ConvertedReferrals)
	assert.True(t, stats.TotalCommissionsEarned.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, stats.PendingBalance.IsZero(), "pending balance is %s", stats.PendingBalance)
	assert.True(t, stats.CurrentBalance.IsZero(), "current balance is %s", stats.CurrentBalance)
}

// TestReferralSurvivesAuditWriteFailure checks that a broken activity log
// insert never takes the primary mutation down with it: the click commits
// even when the audit table cannot be written.
func TestReferralSurvivesAuditWriteFailure(t *testing.T) {
	db := testDB(t)
	logger := activity.NewLogger(db)
	tracker := affiliate.NewTracker(db, logger, 30*24*time.Hour)

	aff := createTestAffiliate(t, db, models.AffiliateTierStarter)

	// Break every activity insert for the duration of the test.
	require.NoError(t, db.Exec("ALTER TABLE activity_logs RENAME TO activity_logs_hidden").Error)
	defer func() {
		require.NoError(t, db.Exec("ALTER TABLE activity_logs_hidden RENAME TO activity_logs").Error)
	}()

	click, err := tracker.TrackClick(affiliate.TrackClickInput{
		ReferralCode: aff.ReferralCode,
		LandingPage:  "/deals/kyoto",
	})
	require.NoError(t, err)

	var ref models.Referral
	require.NoError(t, db.First(&ref, "click_id = ?", click.ClickID).Error)
	assert.Equal(t, models.ReferralStatusClick, ref.Status)

	var fresh models.Affiliate
	require.NoError(t, db.First(&fresh, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(1), fresh.TotalClicks)
}

// TestAttributionWindowEnforcement checks that a booking after the cookie
// expired is never attributed, with or without the sweep having run.
func TestAttributionWindowEnforcement(t *testing.T) {
	db := testDB(t)
	logger := activity.NewLogger(db)
	lifecycle := affiliate.NewLifecycle(db, logger)

	aff := createTestAffiliate(t, db, models.AffiliateTierStarter)

	stale := models.Referral{
		ClickID:      "clk_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		AffiliateID:  aff.ID,
		Status:       models.ReferralStatusClick,
		CookieExpiry: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&stale).Error)

	bookingID := "BK-LATE"
	_, err := lifecycle.Correlate(stale.ClickID, affiliate.Event{Type: affiliate.EventBooked, BookingID: &bookingID})
	assert.ErrorIs(t, err, affiliate.ErrAttributionExpired)

	// Sweep catches it, then any event bounces off the terminal state
	expired, err := lifecycle.ExpireStale(time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, expired, int64(1))

	var swept models.Referral
	require.NoError(t, db.First(&swept, "click_id = ?", stale.ClickID).Error)
	assert.Equal(t, models.ReferralStatusExpired, swept.Status)

	userID := uuid.New()
	_, err = lifecycle.Correlate(stale.ClickID, affiliate.Event{Type: affiliate.EventSignedUp, UserID: &userID})
	assert.ErrorIs(t, err, affiliate.ErrAttributionExpired)

	// A referral that booked in time completes even after the window
	bookedID := "BK-ONTIME"
	booked := models.Referral{
		ClickID:      "clk_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		AffiliateID:  aff.ID,
		Status:       models.ReferralStatusBooked,
		CookieExpiry: time.Now().Add(-time.Hour),
		BookingID:    &bookedID,
	}
	require.NoError(t, db.Create(&booked).Error)

	done, err := lifecycle.Correlate(booked.ClickID, affiliate.Event{Type: affiliate.EventCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusCompleted, done.Status)
}

// TestFailedPayoutReleasesCommissions checks that failing a payout returns
// its commissions to the unbatched pool.
func TestFailedPayoutReleasesCommissions(t *testing.T) {
	db := testDB(t)
	logger := activity.NewLogger(db)

	tracker := affiliate.NewTracker(db, logger, 30*24*time.Hour)
	lifecycle := affiliate.NewLifecycle(db, logger)
	accrual := affiliate.NewAccrualEngine(db, logger)
	batcher := NewBatcher(db, logger, testPayoutConfig())
	processor := NewProcessor(db, logger)

	aff := createTestAffiliate(t, db, models.AffiliateTierSilver)
	userID := uuid.New()
	bookingID := "BK-" + uuid.New().String()[:8]

	click, err := tracker.TrackClick(affiliate.TrackClickInput{ReferralCode: aff.ReferralCode})
	require.NoError(t, err)
	_, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventSignedUp, UserID: &userID})
	require.NoError(t, err)
	ref, err := lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventBooked, BookingID: &bookingID})
	require.NoError(t, err)
	_, err = accrual.Accrue(ref.ID, decimal.RequireFromString("500.00"))
	require.NoError(t, err)
	_, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventCompleted})
	require.NoError(t, err)

	batch, err := batcher.BatchFor(aff.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)

	failed, err := processor.Fail(batch.ID, "provider rejected account", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, failed.Status)

	// Commissions are free again and a new batch picks them up
	var released models.Commission
	require.NoError(t, db.First(&released, "referral_id = ?", ref.ID).Error)
	assert.Nil(t, released.PayoutID)
	assert.Equal(t, models.CommissionStatusPending, released.Status)

	rebatch, err := batcher.BatchFor(aff.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, rebatch.Amount.Equal(decimal.RequireFromString("40.00")), "silver tier is 8%%, got %s", rebatch.Amount)

	// Lifetime total untouched by the failed batch
	var fresh models.Affiliate
	require.NoError(t, db.First(&fresh, "id = ?", aff.ID).Error)
	assert.True(t, fresh.TotalCommissionsPaid.IsZero())
}

// TestThresholdHoldsSmallBalances checks that commissions under the
// affiliate's minimum threshold stay unbatched.
func TestThresholdHoldsSmallBalances(t *testing.T) {
	db := testDB(t)
	logger := activity.NewLogger(db)

	tracker := affiliate.NewTracker(db, logger, 30*24*time.Hour)
	lifecycle := affiliate.NewLifecycle(db, logger)
	accrual := affiliate.NewAccrualEngine(db, logger)
	batcher := NewBatcher(db, logger, testPayoutConfig())

	aff := createTestAffiliate(t, db, models.AffiliateTierStarter)
	require.NoError(t, db.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
		Update("min_payout_threshold", decimal.NewFromInt(100)).Error)

	userID := uuid.New()
	bookingID := "BK-" + uuid.New().String()[:8]

	click, err := tracker.TrackClick(affiliate.TrackClickInput{ReferralCode: aff.ReferralCode})
	require.NoError(t, err)
	_, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventSignedUp, UserID: &userID})
	require.NoError(t, err)
	ref, err := lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventBooked, BookingID: &bookingID})
	require.NoError(t, err)

	// Starter 5% of 200.00 is 10.00, under the 100.00 threshold
	_, err = accrual.Accrue(ref.ID, decimal.RequireFromString("200.00"))
	require.NoError(t, err)
	_, err = lifecycle.Correlate(click.ClickID, affiliate.Event{Type: affiliate.EventCompleted})
	require.NoError(t, err)

	_, err = batcher.BatchFor(aff.ID, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrNothingToPay)
}
