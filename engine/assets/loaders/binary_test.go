package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func spirvBytes(words ...uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func TestBinaryLoaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.spv")
	want := []uint32{spirvMagic, 0x00010500, 0, 1, 42}
	if err := os.WriteFile(path, spirvBytes(want...), 0o644); err != nil {
		t.Fatal(err)
	}

	bl := &BinaryLoader{}
	res, err := bl.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := res.Data.([]uint32)
	if len(words) != len(want) {
		t.Fatalf("word count = %d, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %#x, want %#x", i, words[i], want[i])
		}
	}
	if res.Name != "shader" {
		t.Errorf("resource name = %q, want shader", res.Name)
	}
}

func TestBytesToWordsErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"not a multiple of 4", []byte{1, 2, 3}},
		{"bad magic", spirvBytes(0xDEADBEEF, 1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bytesToWords(tt.buf); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}
