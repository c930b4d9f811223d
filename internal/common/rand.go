package common

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// MakeRandURLString generates a URL-safe random string from size bytes of
// crypto/rand entropy, encoded with unpadded base64url. A size of 32 yields
// 256 bits of entropy, which is the minimum used for refresh tokens.
func MakeRandURLString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MakeRandDigits generates a zero-padded numeric string of n digits, uniform
// over [0, 10^n). rand.Int performs rejection sampling internally, so every
// n-digit string is equiprobable; leading zeros are preserved.
func MakeRandDigits(n int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
