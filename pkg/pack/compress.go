package pack

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// codec holds the zstd encoder and decoder of one reader or writer.
type codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newEncoder(level zstd.EncoderLevel) (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &codec{enc: enc}, nil
}

// maxEntrySize bounds the decompressed size of one entry.
const maxEntrySize = 1 << 30

func newDecoder() (*codec, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxEntrySize))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &codec{dec: dec}, nil
}

// compress compresses data into a fresh slice.
func (c *codec) compress(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return c.enc.EncodeAll(data, nil)
}

// decompress expands data and checks the result against the size recorded
// in the entry header. Sizes past maxEntrySize are rejected before any
// allocation.
func (c *codec) decompress(data []byte, size uint64) ([]byte, error) {
	if size > maxEntrySize {
		return nil, fmt.Errorf("entry size %d exceeds limit %d", size, maxEntrySize)
	}
	if size == 0 {
		if len(data) != 0 {
			return nil, fmt.Errorf("size mismatch (header=0, actual=%d compressed bytes)", len(data))
		}
		return []byte{}, nil
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("size mismatch (header=%d, actual=%d)", size, len(out))
	}
	return out, nil
}

func (c *codec) close() {
	if c.enc != nil {
		c.enc.Close()
	}
	if c.dec != nil {
		c.dec.Close()
	}
}
