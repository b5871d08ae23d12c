package otp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashCode returns hex(HMAC-SHA256(key=salt, msg=code)).
func HashCode(code, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// CompareHash reports whether code hashes to expected under salt.
// The comparison runs in constant time.
func CompareHash(code, salt, expected string) bool {
	actual := HashCode(code, salt)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}
