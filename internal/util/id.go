package util

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// TimestampID is the millisecond timestamp used as a record id.
func TimestampID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// SuffixedID appends n random bytes, hex encoded, to a timestamp id.
func SuffixedID(now time.Time, n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return TimestampID(now) + hex.EncodeToString(buf)
}
