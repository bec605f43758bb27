package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// GenerateClickID returns a collision-resistant attribution token. Tokens
// are handed to anonymous visitors, so they must not be sequential or
// otherwise enumerable.
func GenerateClickID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate click token: %w", err)
	}
	return "clk_" + hex.EncodeToString(buf), nil
}

// GenerateTrackingID returns an opaque identifier for an affiliate account
func GenerateTrackingID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate tracking id: %w", err)
	}
	return "trk_" + hex.EncodeToString(buf), nil
}

// referral code alphabet omits 0/O and 1/I to keep codes dictation-friendly
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode derives a shareable code from the affiliate's
// business name plus a random suffix, e.g. "SUNNY-TRAVEL-7KQ2".
func GenerateReferralCode(businessName string) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}

	suffix := make([]byte, 4)
	for i, b := range buf {
		suffix[i] = codeCharset[int(b)%len(codeCharset)]
	}

	base := strings.ToUpper(slug.Make(businessName))
	if len(base) > 12 {
		base = base[:12]
	}
	if base == "" {
		return string(suffix), nil
	}
	return base + "-" + string(suffix), nil
}

// NormalizeReferralCode case-normalizes an inbound code for lookup
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
