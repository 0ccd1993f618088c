package attendance

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet excludes ambiguous characters (I, O, 1, 0) that students
// could misread from a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultCodeLength is the standard attendance code length.
const DefaultCodeLength = 4

// GenerateCode produces a cryptographically random attendance code.
// When previous is non-empty the new code is guaranteed to differ from it,
// so a rotation always invalidates the prior code.
func GenerateCode(length int, previous string) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)

	for {
		for i := range buf {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			buf[i] = codeAlphabet[n.Int64()]
		}
		code := string(buf)
		if code != previous {
			return code, nil
		}
	}
}
