package session

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gocql/gocql"
	"github.com/pierrec/lz4/v4"
)

// maxDecompressedFrame bounds the length prefix accepted from the server.
const maxDecompressedFrame = 256 << 20

// LZ4Compressor implements the CQL v4 "lz4" frame body compression: a 4-byte
// big-endian uncompressed length followed by one raw LZ4 block.
type LZ4Compressor struct {
	pool sync.Pool
}

var _ gocql.Compressor = (*LZ4Compressor)(nil)

func NewLZ4Compressor() *LZ4Compressor {
	return &LZ4Compressor{
		pool: sync.Pool{New: func() interface{} { return new(lz4.Compressor) }},
	}
}

func (c *LZ4Compressor) Name() string {
	return CompressionLZ4
}

func (c *LZ4Compressor) Encode(data []byte) ([]byte, error) {
	buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	if len(data) == 0 {
		return buf[:4], nil
	}

	compressor := c.pool.Get().(*lz4.Compressor)
	defer c.pool.Put(compressor)

	n, err := compressor.CompressBlock(data, buf[4:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf[:4+n], nil
}

func (c *LZ4Compressor) Decode(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("lz4 frame too short: %d bytes", len(data))
	}
	size := binary.BigEndian.Uint32(data)
	if size == 0 {
		return []byte{}, nil
	}
	if size > maxDecompressedFrame {
		return nil, fmt.Errorf("lz4 frame declares %d bytes, limit is %d", size, maxDecompressedFrame)
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data[4:], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != int(size) {
		return nil, fmt.Errorf("lz4 decompressed %d bytes, frame declares %d", n, size)
	}
	return out, nil
}

// newCompressor maps a configured name to a driver compressor; nil disables compression.
func newCompressor(name string) gocql.Compressor {
	switch name {
	case CompressionSnappy:
		return gocql.SnappyCompressor{}
	case CompressionNone:
		return nil
	}
	return NewLZ4Compressor()
}
