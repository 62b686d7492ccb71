package writers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteHDRHeaderAndSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.hdr")
	width, height := uint32(4), uint32(2)
	pixels := make([]float32, width*height*4)
	for i := range pixels {
		pixels[i] = 0.5
	}

	if err := WriteHDR(path, width, height, pixels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	header := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 2 +X 4\n")
	if !bytes.HasPrefix(data, header) {
		t.Errorf("header mismatch, got %q", data[:len(header)])
	}
	wantLen := len(header) + int(width*height)*4
	if len(data) != wantLen {
		t.Errorf("file length = %d, want %d", len(data), wantLen)
	}
}

func TestWriteHDRRejectsShortBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.hdr")
	if err := WriteHDR(path, 2, 2, make([]float32, 3)); err == nil {
		t.Error("expected error for short pixel buffer")
	}
}

func TestEncodeRGBE(t *testing.T) {
	quad := make([]byte, 4)

	// White: each mantissa 128 with exponent byte 129.
	encodeRGBE(quad, 1.0, 1.0, 1.0)
	if quad[0] != 128 || quad[1] != 128 || quad[2] != 128 || quad[3] != 129 {
		t.Errorf("encode(1,1,1) = %v, want [128 128 128 129]", quad)
	}

	// Black collapses to all zero.
	encodeRGBE(quad, 0, 0, 0)
	if quad[0] != 0 || quad[1] != 0 || quad[2] != 0 || quad[3] != 0 {
		t.Errorf("encode(0,0,0) = %v, want zeros", quad)
	}

	// A doubled value bumps only the exponent.
	encodeRGBE(quad, 2.0, 2.0, 2.0)
	if quad[0] != 128 || quad[3] != 130 {
		t.Errorf("encode(2,2,2) = %v, want mantissa 128 exponent 130", quad)
	}

	// The largest component owns the full mantissa range.
	encodeRGBE(quad, 1.0, 0.5, 0.25)
	if quad[0] != 128 || quad[1] != 64 || quad[2] != 32 || quad[3] != 129 {
		t.Errorf("encode(1,0.5,0.25) = %v, want [128 64 32 129]", quad)
	}
}
