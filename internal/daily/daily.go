// internal/daily/daily.go
//
// Date keys and deterministic word selection for the daily challenge.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDateKey validates a YYYY-MM-DD key.
func ParseDateKey(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// WordIndex returns a deterministic index using HMAC(salt, category|YYYY-MM-DD) % n.
// Including the category keeps different categories from moving in lockstep.
func WordIndex(date time.Time, salt, category string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(category + "|" + DateKey(date)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}
