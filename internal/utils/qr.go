package utils

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

const referralQRSize = 256

// ReferralLink appends the referral code to the share URL as ?ref=<code>.
func ReferralLink(shareURL, code string) (string, error) {
	parsed, err := url.Parse(shareURL)
	if err != nil {
		return "", fmt.Errorf("parse share url: %w", err)
	}
	query := parsed.Query()
	query.Set("ref", code)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// ReferralQRCode renders the referral link as a PNG QR code.
func ReferralQRCode(shareURL, code string) ([]byte, error) {
	link, err := ReferralLink(shareURL, code)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(link, qrcode.Medium, referralQRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
