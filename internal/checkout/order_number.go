package checkout

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

const (
	defaultOrderPrefix      = "ORD"
	orderNumberSuffixLength = 6
)

var suffixEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewOrderNumber formats PREFIX-YYYYMMDD-XXXXXX with a random base32 suffix.
func NewOrderNumber(prefix string, now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	if prefix == "" {
		prefix = defaultOrderPrefix
	}
	suffix := suffixEncoding.EncodeToString(buf)[:orderNumberSuffixLength]
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix), nil
}
