package otp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateCode returns a zero-padded numeric code of the given length.
// The code is never all zeros.
func GenerateCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("invalid code length %d", length)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	upper.Sub(upper, big.NewInt(1))

	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	n.Add(n, big.NewInt(1))

	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

// GenerateSalt returns n random bytes encoded as hex.
func GenerateSalt(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid salt size %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}
