package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// errIncompressible: сжатый вариант не меньше исходного; пишем как None.
var errIncompressible = errors.New("data is incompressible")

// zstd.Encoder и zstd.Decoder безопасны для конкурентного использования.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder init: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<36))
	if err != nil {
		panic("codec: zstd decoder init: " + err.Error())
	}
}

func compressBody(data []byte, algo Algorithm) ([]byte, error) {
	switch algo {
	case None:
		return data, nil
	case LZ4:
		if len(data) == 0 {
			return nil, errIncompressible
		}
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		// 0 — lz4 сам решил, что данные несжимаемы
		if n == 0 || n >= len(data) {
			return nil, errIncompressible
		}
		return dst[:n], nil
	case Zstd:
		if len(data) == 0 {
			return nil, errIncompressible
		}
		out := zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, errIncompressible
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %d", uint8(algo))
	}
}

func decompressBody(body []byte, algo Algorithm, rawSize int) ([]byte, error) {
	switch algo {
	case None:
		return body, nil
	case LZ4:
		dst := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return dst[:n], nil
	case Zstd:
		hint := rawSize
		if hint > 64<<20 {
			hint = 64 << 20
		}
		out, err := zstdDecoder.DecodeAll(body, make([]byte, 0, hint))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %d", uint8(algo))
	}
}

// probeSize: сколько байт пробно сжимаем zstd для оценки коэффициента
const probeSize = 256 << 10

// selectAlgorithm: текст — сразу zstd; уже сжатые форматы — none;
// остальное по пробе: ratio >= 1.5 — zstd, >= 1.1 — lz4, иначе none.
func selectAlgorithm(data []byte, contentType string) Algorithm {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(ct, "text/"),
		ct == "application/json", ct == "application/xml",
		ct == "image/svg+xml", ct == "application/x-ndjson":
		return Zstd
	case ct == "image/jpeg", ct == "image/png", ct == "image/webp", ct == "image/gif",
		ct == "application/zip", ct == "application/gzip", ct == "application/x-7z-compressed",
		strings.HasPrefix(ct, "video/"), strings.HasPrefix(ct, "audio/"):
		return None
	}

	if len(data) == 0 {
		return None
	}
	probe := data
	if len(probe) > probeSize {
		probe = probe[:probeSize]
	}
	compressed := zstdEncoder.EncodeAll(probe, nil)
	ratio := float64(len(probe)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return Zstd
	case ratio >= 1.1:
		return LZ4
	default:
		return None
	}
}
