package random

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// DefaultLength is the number of random bytes behind state and nonce values.
const DefaultLength = 32

// Source produces opaque random strings.
type Source interface {
	String(length int) (string, error)
}

// Reader draws from an io.Reader and encodes the bytes base64url without padding.
type Reader struct {
	r io.Reader
}

// NewSource returns a Source backed by crypto/rand.
func NewSource() *Reader {
	return &Reader{r: rand.Reader}
}

// NewReaderSource returns a Source backed by r.
func NewReaderSource(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (s *Reader) String(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return "", errors.Wrap(err, "[random.String] reading random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
