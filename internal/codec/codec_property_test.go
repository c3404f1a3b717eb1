package codec

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Свойство: Decompress(Compress(x)) == x для любых x, включая пустой.
func TestRoundtripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	for _, algo := range []Algorithm{Auto, LZ4, Zstd} {
		c := New(algo)
		properties.Property("roundtrip "+algo.String(), prop.ForAll(
			func(data []byte, repeat int) bool {
				// повторы дают сжимаемые входы, иначе почти всё уйдёт в None
				in := bytes.Repeat(data, repeat)
				frame, err := c.Compress(in, "")
				if err != nil {
					return false
				}
				out, err := c.Decompress(frame)
				return err == nil && bytes.Equal(in, out)
			},
			gen.SliceOf(gen.UInt8()),
			gen.IntRange(0, 50),
		))
	}

	properties.TestingRun(t)
}
