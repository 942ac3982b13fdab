// Package secret generates random credential strings.
package secret

import (
	"crypto/rand"
	"math/big"

	"github.com/cockroachdb/errors"
)

// DefaultLength is the length of generated secrets.
const DefaultLength = 32

const alphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"-_!@#$%^&*()"

// Generator produces random secrets. The zero value generates
// DefaultLength-character secrets.
type Generator struct {
	// Length overrides DefaultLength when positive.
	Length int
}

// Generate returns a new random secret.
func (g Generator) Generate() (string, error) {
	length := g.Length
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)

	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", errors.Wrap(err, "failed to read random bytes")
		}

		buf[i] = alphabet[idx.Int64()]
	}

	return string(buf), nil
}
