package otpcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Min and Max bound the generated codes, both inclusive.
	Min = 100000
	Max = 999999
)

var span = big.NewInt(Max - Min + 1)

// Generate returns a uniformly random 6-digit numeric code drawn from crypto/rand.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+Min), nil
}
