package codec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestRoundtripAllAlgorithms(t *testing.T) {
	text := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 2000)
	inputs := map[string][]byte{
		"empty":  {},
		"one":    {0x42},
		"text":   text,
		"random": randomBytes(t, 64<<10),
	}
	for _, algo := range []Algorithm{Auto, None, LZ4, Zstd} {
		c := New(algo)
		for name, in := range inputs {
			t.Run(algo.String()+"/"+name, func(t *testing.T) {
				frame, err := c.Compress(in, "application/octet-stream")
				require.NoError(t, err)
				out, err := c.Decompress(frame)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(in, out), "roundtrip mismatch")
			})
		}
	}
}

func TestCompressShrinksText(t *testing.T) {
	text := bytes.Repeat([]byte(`{"tag":"sunset","project":null}`), 4096)
	frame, err := New(Auto).Compress(text, "application/json")
	require.NoError(t, err)

	h, err := Inspect(frame)
	require.NoError(t, err)
	assert.Equal(t, Zstd, h.Algorithm)
	assert.Equal(t, uint64(len(text)), h.RawSize)
	assert.Less(t, len(frame), len(text)/4)
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	data := randomBytes(t, 4096)
	frame, err := New(Zstd).Compress(data, "")
	require.NoError(t, err)
	h, err := Inspect(frame)
	require.NoError(t, err)
	assert.Equal(t, None, h.Algorithm)
}

func TestAlreadyCompressedFormatsStored(t *testing.T) {
	assert.Equal(t, None, selectAlgorithm(bytes.Repeat([]byte{0}, 1024), "image/png"))
	assert.Equal(t, Zstd, selectAlgorithm(nil, "text/plain; charset=utf-8"))
	assert.Equal(t, None, selectAlgorithm(nil, ""))
}

func TestDecompressRejectsCorruptFrames(t *testing.T) {
	c := New(Auto)
	data := bytes.Repeat([]byte("asset payload "), 1000)
	frame, err := c.Compress(data, "text/plain")
	require.NoError(t, err)

	flipBody := append([]byte(nil), frame...)
	flipBody[len(flipBody)-3] ^= 0xff

	badMagic := append([]byte(nil), frame...)
	badMagic[0] = 'X'

	badAlgo := append([]byte(nil), frame...)
	badAlgo[4] = 9

	badSize := append([]byte(nil), frame...)
	binary.BigEndian.PutUint64(badSize[5:13], uint64(len(data)+1))

	badSum := append([]byte(nil), frame...)
	badSum[20] ^= 0x01

	cases := map[string][]byte{
		"nil":        nil,
		"short":      frame[:10],
		"truncated":  frame[:len(frame)-5],
		"flipped":    flipBody,
		"bad magic":  badMagic,
		"bad algo":   badAlgo,
		"bad size":   badSize,
		"bad sum":    badSum,
		"empty body": frame[:headerSize],
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := c.Decompress(in)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, domain.ErrCodec)
		})
	}
}

func TestDecompressRejectsImpossibleSize(t *testing.T) {
	frame, err := New(None).Compress([]byte("abc"), "")
	require.NoError(t, err)
	binary.BigEndian.PutUint64(frame[5:13], 1<<40)
	_, err = New(Auto).Decompress(frame)
	assert.ErrorIs(t, err, domain.ErrCodec)
}

func TestParseAlgorithm(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd", "auto"} {
		a, err := ParseAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.String())
	}
	_, err := ParseAlgorithm("gzip")
	assert.Error(t, err)
}
