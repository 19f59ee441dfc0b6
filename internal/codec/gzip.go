// Package codec provides the reversible transform between the artifact's
// JSON text and the compressed blob persisted in the object store.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ContentType is the MIME type of the compressed artifact.
const ContentType = "application/gzip"

// Compress gzips the given text. The result round-trips byte-exactly
// through Decompress for any UTF-8 input, including the empty string.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)

	if _, err := io.WriteString(zw, text); err != nil {
		zw.Close()
		return nil, fmt.Errorf("writing gzip stream: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip stream: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	text, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("reading gzip stream: %w", err)
	}

	return string(text), nil
}
