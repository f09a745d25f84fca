package main

import (
	"crypto/hmac"
	"crypto/sha256"
)

// keyVerify compares digests so the comparison time does not depend on
// where the keys differ or on their lengths.
func keyVerify(expected string, given string) bool {
	if given == "" {
		return false
	}
	expectedSum := sha256.Sum256([]byte(expected))
	givenSum := sha256.Sum256([]byte(given))
	return hmac.Equal(expectedSum[:], givenSum[:])
}
