package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphanumericCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	SubscriptionTokenLength = 25
)

// GenerateRandomString generates a cryptographically secure random string
// using the provided charset and length
func GenerateRandomString(length int, charset string) string {
	b := make([]byte, length)
	limit := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(fmt.Sprintf("failed to generate random string: %v", err))
		}
		b[i] = charset[n.Int64()]
	}
	return string(b)
}

// GenerateSubscriptionToken returns 25 alphanumeric characters (~148 bits).
// Uniqueness is not checked against stored tokens.
func GenerateSubscriptionToken() string {
	return GenerateRandomString(SubscriptionTokenLength, alphanumericCharset)
}
