package hostops

import (
	"bytes"
	"testing"
)

func TestCompressDecompress_RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated for good measure")
	for _, format := range []string{"gzip", "deflate", "br"} {
		t.Run(format, func(t *testing.T) {
			compressed, err := Compress(format, payload)
			if err != nil {
				t.Fatalf("Compress(%s) error: %v", format, err)
			}
			if len(compressed) == 0 {
				t.Fatalf("Compress(%s) produced empty output", format)
			}
			out, err := Decompress(format, compressed)
			if err != nil {
				t.Fatalf("Decompress(%s) error: %v", format, err)
			}
			if !bytes.Equal(out, payload) {
				t.Errorf("round trip via %s: got %q, want %q", format, out, payload)
			}
		})
	}
}

func TestCompress_UnsupportedFormat(t *testing.T) {
	if _, err := Compress("lzma", []byte("x")); err == nil {
		t.Fatal("expected an error for an unsupported compression format")
	}
}

func TestDecompress_UnsupportedFormat(t *testing.T) {
	if _, err := Decompress("lzma", []byte("x")); err == nil {
		t.Fatal("expected an error for an unsupported decompression format")
	}
}

func TestDecompress_InvalidInputErrors(t *testing.T) {
	if _, err := Decompress("gzip", []byte("not gzip data")); err == nil {
		t.Fatal("expected an error decompressing garbage as gzip")
	}
}
