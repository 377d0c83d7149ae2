package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	src := []byte(strings.Repeat(`{"level":"ERROR","message":"db timeout"}`, 100))

	out := Encode(src)
	assert.Less(t, len(out), len(src))

	back, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, src, back)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not zstd"))
	assert.Error(t, err)
}

func TestBuffer(t *testing.T) {
	buf, err := Buffer(func(w io.Writer) error {
		_, err := io.WriteString(w, "line1\nline2\n")
		return err
	})
	require.NoError(t, err)

	back, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("line1\nline2\n"), back))
}
