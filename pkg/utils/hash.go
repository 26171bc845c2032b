package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// HashString returns the hex MD5 digest of input. It keys response and
// embedding cache entries and derives document ids from paths; it is not
// used for anything security sensitive.
func HashString(input string) string {
	digest := md5.Sum([]byte(input))
	return hex.EncodeToString(digest[:])
}
