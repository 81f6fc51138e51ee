package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// maxDecompressedBytes bounds Decompress against gzip bombs.
const maxDecompressedBytes = 64 << 20

// Compressor packs and unpacks SOAP debug payloads with gzip at the best
// compression level.
type Compressor struct{}

// NewCompressor creates a compressor for debug payloads.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// Compress compresses data using GZIP
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses GZIP data
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(reader, maxDecompressedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}
	if n > maxDecompressedBytes {
		return nil, fmt.Errorf("decompressed data exceeds %d bytes", maxDecompressedBytes)
	}

	return buf.Bytes(), nil
}
