package pkg

import (
	"math/rand"

	"github.com/google/uuid"
)

// accessCodeAlphabet leaves out easily confused characters.
const (
	accessCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	accessCodeLength   = 6
)

func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateAccessCode returns a short human-enterable code.
func GenerateAccessCode() string {
	code := make([]byte, accessCodeLength)
	for i := range code {
		code[i] = accessCodeAlphabet[rand.Intn(len(accessCodeAlphabet))] //nolint: gosec // join codes, not secrets
	}

	return string(code)
}
