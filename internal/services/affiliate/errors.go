package affiliate

import "errors"

var (
	// ErrUnknownOrInactiveCode is returned when a click references a code
	// that does not exist or whose affiliate is not active.
	ErrUnknownOrInactiveCode = errors.New("unknown or inactive referral code")

	// ErrAffiliateNotFound is returned when an affiliate lookup misses.
	ErrAffiliateNotFound = errors.New("affiliate not found")

	// ErrReferralNotFound is returned when a click token has no referral.
	ErrReferralNotFound = errors.New("referral not found")

	// ErrAttributionExpired is returned when an event arrives after the
	// attribution window and would have advanced the referral past
	// signed_up. A soft business rule, logged rather than alerted on.
	ErrAttributionExpired = errors.New("attribution window expired")

	// ErrNotEligible is returned when commission accrual is attempted for
	// a referral that is not booked/completed or already has a commission.
	ErrNotEligible = errors.New("referral not eligible for commission")
)
