package domain

import "time"

// DeviceSignals are the stable client environment characteristics a
// fingerprint is derived from. Identical signals must always produce an
// identical fingerprint.
type DeviceSignals struct {
	UserAgent  string
	Resolution string
	Timezone   string
	Locale     string
}

// TrustedDevice tracks one fingerprinted device for an account. A record
// is created the first time a fingerprint is seen; Trusted flips only
// through an explicit approval, never through repeated use.
type TrustedDevice struct {
	Fingerprint string
	Account     string
	DisplayName string
	Browser     string
	OS          string
	IPAddress   string
	Trusted     bool
	FirstSeen   time.Time
	LastUsed    time.Time
}
