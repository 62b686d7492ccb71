package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vortex/engine/assets/loaders"
)

func writeSpirvFile(t *testing.T, dir, name string) string {
	t.Helper()
	words := []uint32{0x07230203, 0x00010500, 0, 1, 0}
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadAssetAssignsResourceID(t *testing.T) {
	dir := t.TempDir()
	writeSpirvFile(t, dir, "a.spv")
	writeSpirvFile(t, dir, "b.spv")

	am, err := NewAssetManager([]string{dir})
	if err != nil {
		t.Fatalf("asset manager: %v", err)
	}
	defer am.Shutdown()

	first, err := am.LoadAsset("a.spv", loaders.ResourceTypeShaderBinary)
	if err != nil {
		t.Fatalf("load a.spv: %v", err)
	}
	if first.ID == "" {
		t.Fatal("loaded resource has no ID")
	}

	second, err := am.LoadAsset("b.spv", loaders.ResourceTypeShaderBinary)
	if err != nil {
		t.Fatalf("load b.spv: %v", err)
	}
	if second.ID == "" || second.ID == first.ID {
		t.Errorf("resource IDs not unique: %q vs %q", first.ID, second.ID)
	}
}
