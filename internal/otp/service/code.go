package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

var ten = big.NewInt(10)

// GenerateCode returns length uniformly random decimal digits.
func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate otp code: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

func hashCode(code string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp code: %w", err)
	}
	return string(hash), nil
}

// codeMatches compares in constant time. Codes of the wrong shape never reach
// bcrypt.
func codeMatches(hash, code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
