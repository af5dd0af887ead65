package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// GenerateNumericCode returns a random numeric string of the given
// length with uniformly distributed digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	digits := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(digits) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		for _, b := range buf {
			// Bytes 250..255 fold unevenly onto 0..5; reject them so
			// every digit is equally likely.
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
			if len(digits) == length {
				break
			}
		}
	}

	return string(digits), nil
}

// CodesEqual compares two verification codes in constant time.
func CodesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
