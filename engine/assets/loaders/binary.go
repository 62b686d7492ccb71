package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// spirvMagic is the first word of every valid SPIR-V module.
const spirvMagic uint32 = 0x07230203

// BinaryLoader reads precompiled SPIR-V shader binaries and converts them to
// the word stream shader module creation expects.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (*Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	words, err := bytesToWords(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Resource{
		Name:     name,
		FullPath: path,
		Type:     ResourceTypeShaderBinary,
		DataSize: uint64(len(buf)),
		Data:     words,
	}, nil
}

func (bl *BinaryLoader) Unload(*Resource) error {
	return nil
}

func bytesToWords(buf []byte) ([]uint32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a positive multiple of 4", len(buf))
	}
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("bad SPIR-V magic 0x%08x", words[0])
	}
	return words, nil
}
