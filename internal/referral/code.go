package referral

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// CodeLength is the number of characters in a referral code.
	CodeLength = 6

	// Bonus is credited to a referrer for every attributed signup.
	Bonus = 500

	// MaxCodeAttempts bounds how many codes are tried before giving up on an insert.
	MaxCodeAttempts = 10
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ErrCodeExhausted = errors.New("could not allocate a unique referral code")

// Generator produces candidate referral codes. Uniqueness is enforced by the
// store, callers retry on conflict.
type Generator interface {
	Generate() (string, error)
}

type codeGenerator struct {
	max *big.Int
}

func NewCodeGenerator() Generator {
	return &codeGenerator{max: big.NewInt(int64(len(alphabet)))}
}

func (g *codeGenerator) Generate() (string, error) {
	var sb strings.Builder
	sb.Grow(CodeLength)

	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}

	return sb.String(), nil
}

// Normalize trims and upper-cases a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the shape of a generated referral code.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
