package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createAffiliateTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_affiliate_tables",
		Migrate: func(tx *gorm.DB) error {
			// Affiliates and the attribution/settlement tables. The unique
			// index on commissions.referral_id and the partial state of
			// commissions.payout_id are load-bearing: they are what enforce
			// one-commission-per-referral and one-batch-per-commission at
			// the store level.
			return tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "pgcrypto";

				CREATE TABLE IF NOT EXISTS affiliates (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL UNIQUE,
					business_name VARCHAR(255),
					website VARCHAR(255),
					tax_id VARCHAR(100),
					referral_code VARCHAR(50) NOT NULL UNIQUE,
					tracking_id VARCHAR(64) NOT NULL UNIQUE,
					tier VARCHAR(20) NOT NULL DEFAULT 'starter',
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					total_clicks BIGINT NOT NULL DEFAULT 0,
					total_commissions_paid DECIMAL(20,2) NOT NULL DEFAULT 0,
					payout_method VARCHAR(50) NOT NULL DEFAULT 'paypal',
					payout_email VARCHAR(255),
					min_payout_threshold DECIMAL(20,2) NOT NULL DEFAULT 50,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_affiliates_status ON affiliates(status);

				CREATE TABLE IF NOT EXISTS referrals (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					click_id VARCHAR(64) NOT NULL UNIQUE,
					affiliate_id UUID NOT NULL REFERENCES affiliates(id),
					status VARCHAR(20) NOT NULL DEFAULT 'click',
					cookie_expiry TIMESTAMP WITH TIME ZONE NOT NULL,
					landing_page TEXT,
					utm_source VARCHAR(100),
					utm_medium VARCHAR(100),
					utm_campaign VARCHAR(100),
					ip_address VARCHAR(45),
					user_agent TEXT,
					meta_data JSONB,
					user_id UUID,
					booking_id VARCHAR(100),
					signed_up_at TIMESTAMP WITH TIME ZONE,
					booked_at TIMESTAMP WITH TIME ZONE,
					completed_at TIMESTAMP WITH TIME ZONE,
					expired_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_referrals_affiliate_status ON referrals(affiliate_id, status);
				CREATE INDEX IF NOT EXISTS idx_referrals_cookie_expiry ON referrals(cookie_expiry);

				CREATE TABLE IF NOT EXISTS commissions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					referral_id UUID NOT NULL UNIQUE REFERENCES referrals(id),
					affiliate_id UUID NOT NULL REFERENCES affiliates(id),
					booking_id VARCHAR(100) NOT NULL,
					booking_amount DECIMAL(20,2) NOT NULL,
					rate DECIMAL(8,4) NOT NULL,
					amount DECIMAL(20,2) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					payout_id UUID,
					paid_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_commissions_affiliate_status ON commissions(affiliate_id, status);
				CREATE INDEX IF NOT EXISTS idx_commissions_payout ON commissions(payout_id);

				CREATE TABLE IF NOT EXISTS payouts (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					affiliate_id UUID NOT NULL REFERENCES affiliates(id),
					amount DECIMAL(20,2) NOT NULL,
					processing_fee DECIMAL(20,2) NOT NULL DEFAULT 0,
					net_amount DECIMAL(20,2) NOT NULL,
					method VARCHAR(50) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					period_start TIMESTAMP WITH TIME ZONE NOT NULL,
					period_end TIMESTAMP WITH TIME ZONE NOT NULL,
					receipt_url TEXT,
					notes TEXT,
					processed_by UUID,
					paid_at TIMESTAMP WITH TIME ZONE,
					failed_at TIMESTAMP WITH TIME ZONE,
					failure_reason TEXT,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_payouts_affiliate_status ON payouts(affiliate_id, status);

				CREATE TABLE IF NOT EXISTS activity_logs (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					affiliate_id UUID NOT NULL,
					activity_type VARCHAR(50) NOT NULL,
					description TEXT NOT NULL,
					meta_data JSONB,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_activity_logs_affiliate ON activity_logs(affiliate_id, created_at DESC);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS activity_logs;
				DROP TABLE IF EXISTS payouts;
				DROP TABLE IF EXISTS commissions;
				DROP TABLE IF EXISTS referrals;
				DROP TABLE IF EXISTS affiliates;
			`).Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createAffiliateTablesMigration())
}
