package license

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"time"
)

const (
	keyAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyRandomLength = 10
)

// KeyPattern matches every key the generator can produce.
var KeyPattern = regexp.MustCompile(`^(TRL|PRO)-\d{4}-[A-Z0-9]{10}$`)

// Generator produces candidate license keys.
type Generator interface {
	Generate(tier Tier, now time.Time) (string, error)
}

// KeyGenerator builds keys of the form PREFIX-YYYY-RAND10.
type KeyGenerator struct {
	rand io.Reader
}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{rand: rand.Reader}
}

func KeyPrefix(tier Tier) string {
	if tier == TierTrial {
		return "TRL"
	}
	return "PRO"
}

func (g *KeyGenerator) Generate(tier Tier, now time.Time) (string, error) {
	token, err := g.randomToken(keyRandomLength)
	if err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}
	return fmt.Sprintf("%s-%04d-%s", KeyPrefix(tier), now.Year(), token), nil
}

func (g *KeyGenerator) randomToken(n int) (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(g.rand, max)
		if err != nil {
			return "", err
		}
		b[i] = keyAlphabet[num.Int64()]
	}
	return string(b), nil
}
