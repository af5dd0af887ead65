package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// Fingerprint derives a deterministic device identifier from stable client
// signals. The function is pure: identical signals always hash to the same
// value, and changing any single signal changes the result.
func Fingerprint(signals domain.DeviceSignals) string {
	canonical := strings.Join([]string{
		canonicalSignal(signals.UserAgent),
		canonicalSignal(signals.Resolution),
		canonicalSignal(signals.Timezone),
		canonicalSignal(signals.Locale),
	}, "\x1f")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func canonicalSignal(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
