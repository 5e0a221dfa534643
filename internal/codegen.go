package internal

import (
	"crypto/rand"
	"math/big"
)

// upper and lower case letters plus digits, 62 symbols
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultShortCodeLength is used when no SHORT_CODE_LENGTH is configured.
const DefaultShortCodeLength = 6

var bigAlphabetLen = big.NewInt(int64(len(codeAlphabet)))

// GenerateShortCode returns a random code of the given length drawn from
// the alphanumeric alphabet. It does not guarantee uniqueness; callers
// check the generated code against the store and retry on collision.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultShortCodeLength
	}

	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, bigAlphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return string(buf), nil
}
