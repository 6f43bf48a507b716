package hostops

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// maxDecompressedSize bounds decompression output the way the teacher's
// compression.go does (its own maxDecompressedSize constant), a defense
// against a small compressed input expanding into a host-process-killing
// allocation (zip-bomb class input).
const maxDecompressedSize = 128 * 1024 * 1024

// Compress backs CompressionStream for the "gzip", "deflate", and "br"
// formats (spec.md DOMAIN STACK: andybalholm/brotli alongside stdlib
// gzip/deflate).
func Compress(format string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch format {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("hostops: deflate writer: %w", err)
		}
		w = fw
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("hostops: unsupported compression format %q", format)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("hostops: compress %s: %w", format, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("hostops: compress %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Decompress backs DecompressionStream for "gzip", "deflate", and "br".
func Decompress(format string, data []byte) ([]byte, error) {
	var r io.Reader
	switch format {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("hostops: gzip reader: %w", err)
		}
		defer gr.Close()
		r = gr
	case "deflate":
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		r = fr
	case "br":
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("hostops: unsupported compression format %q", format)
	}
	limited := io.LimitReader(r, maxDecompressedSize+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("hostops: decompress %s: %w", format, err)
	}
	if len(out) > maxDecompressedSize {
		return nil, fmt.Errorf("hostops: decompressed output exceeds %d bytes", maxDecompressedSize)
	}
	return out, nil
}
