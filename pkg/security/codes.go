package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
)

// VerificationCodeLength is the number of digits in an email verification code.
const VerificationCodeLength = 6

var codeSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(VerificationCodeLength), nil)

// GenerateVerificationCode returns a uniformly random, zero-padded code.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", VerificationCodeLength, n.Int64()), nil
}

// CodesEqual compares a stored code with user input in constant time.
func CodesEqual(expected, provided string) bool {
	provided = strings.TrimSpace(provided)
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
