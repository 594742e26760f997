package random_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-client/internal/random"
	"github.com/stretchr/testify/require"
)

func TestSource_String(t *testing.T) {
	t.Run("crypto source is unique and url safe", func(t *testing.T) {
		src := random.NewSource()
		a, err := src.String(random.DefaultLength)
		require.NoError(t, err)
		b, err := src.String(random.DefaultLength)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
		require.Len(t, a, 43)
		require.False(t, strings.ContainsAny(a, "+/="))
	})

	t.Run("short reader fails", func(t *testing.T) {
		src := random.NewReaderSource(bytes.NewReader([]byte{1, 2}))
		_, err := src.String(8)
		require.Error(t, err)
	})
}
