// Package codec упаковывает байты ассета в самоописывающий сжатый кадр
// и разворачивает его обратно. Кадр:
//
//	magic "AVC1" | алгоритм (1 байт) | исходная длина (uint64 BE) | blake3-256 исходных байт | тело
//
// Любое несоответствие при чтении — ошибка domain.ErrCodec, мусор наружу не отдаём.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/zeebo/blake3"
)

// Algorithm: алгоритм тела кадра. Значения пишутся на диск, менять нельзя.
type Algorithm uint8

const (
	None Algorithm = 0
	LZ4  Algorithm = 1
	Zstd Algorithm = 2

	// Auto: не пишется в кадр, только выбор при сжатии
	Auto Algorithm = 0xff
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "auto":
		return Auto, nil
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown codec algorithm: %q", name)
	}
}

var magic = [4]byte{'A', 'V', 'C', '1'}

const headerSize = 4 + 1 + 8 + blake3Size

const blake3Size = 32

// Header: разобранный заголовок кадра
type Header struct {
	Algorithm Algorithm
	RawSize   uint64
	Sum       [blake3Size]byte
}

// Codec сжимает payload ассета. Нулевое значение не годится — используйте New.
type Codec struct {
	algo Algorithm
}

func New(algo Algorithm) *Codec { return &Codec{algo: algo} }

// Compress упаковывает data в кадр. contentType подсказывает выбор алгоритма в режиме Auto.
func (c *Codec) Compress(data []byte, contentType string) ([]byte, error) {
	algo := c.algo
	if algo == Auto {
		algo = selectAlgorithm(data, contentType)
	}

	body, err := compressBody(data, algo)
	if err == errIncompressible {
		algo, body = None, data
	} else if err != nil {
		return nil, fmt.Errorf("codec compress (%s): %w", algo, err)
	}

	out := make([]byte, headerSize, headerSize+len(body))
	copy(out[0:4], magic[:])
	out[4] = byte(algo)
	binary.BigEndian.PutUint64(out[5:13], uint64(len(data)))
	sum := blake3.Sum256(data)
	copy(out[13:headerSize], sum[:])
	return append(out, body...), nil
}

// Inspect читает только заголовок кадра.
func Inspect(frame []byte) (Header, error) {
	if len(frame) < headerSize {
		return Header{}, corrupt("frame truncated: %d bytes", len(frame))
	}
	if !bytes.Equal(frame[0:4], magic[:]) {
		return Header{}, corrupt("bad magic %q", frame[0:4])
	}
	h := Header{
		Algorithm: Algorithm(frame[4]),
		RawSize:   binary.BigEndian.Uint64(frame[5:13]),
	}
	copy(h.Sum[:], frame[13:headerSize])
	switch h.Algorithm {
	case None, LZ4, Zstd:
	default:
		return Header{}, corrupt("unknown algorithm %d", uint8(h.Algorithm))
	}
	return h, nil
}

// Decompress разворачивает кадр и проверяет длину и blake3-сумму.
func (c *Codec) Decompress(frame []byte) ([]byte, error) {
	h, err := Inspect(frame)
	if err != nil {
		return nil, err
	}
	body := frame[headerSize:]
	if h.RawSize > maxRawSize(h.Algorithm, len(body)) {
		return nil, corrupt("declared size %d impossible for %d-byte %s body", h.RawSize, len(body), h.Algorithm)
	}

	raw, err := decompressBody(body, h.Algorithm, int(h.RawSize))
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrCodec, Op: "codec.decompress", Err: err}
	}
	if uint64(len(raw)) != h.RawSize {
		return nil, corrupt("got %d bytes, header says %d", len(raw), h.RawSize)
	}
	if blake3.Sum256(raw) != h.Sum {
		return nil, corrupt("blake3 checksum mismatch")
	}
	return raw, nil
}

// maxRawSize: верхняя граница исходной длины для тела данного размера,
// чтобы битый заголовок не заставил аллоцировать гигабайты.
func maxRawSize(algo Algorithm, bodyLen int) uint64 {
	switch algo {
	case None:
		return uint64(bodyLen)
	case LZ4:
		return uint64(bodyLen)*255 + 16
	default:
		// у zstd коэффициент не ограничен; держим разумный потолок
		return 1 << 36
	}
}

func corrupt(format string, args ...any) error {
	return &domain.Error{Kind: domain.ErrCodec, Op: "codec.decompress", Msg: fmt.Sprintf(format, args...)}
}
