package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeObj(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.obj")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadMesh(t *testing.T, content string) *MeshData {
	t.Helper()
	ml := &MeshLoader{}
	res, err := ml.Load(writeObj(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res.Data.(*MeshData)
}

func TestMeshLoaderTriangle(t *testing.T) {
	mesh := loadMesh(t, `
o Triangle
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)
	if mesh.VertexCount() != 3 {
		t.Errorf("vertex count = %d, want 3", mesh.VertexCount())
	}
	if mesh.TriangleCount() != 1 {
		t.Errorf("triangle count = %d, want 1", mesh.TriangleCount())
	}
	want := []uint32{0, 1, 2}
	for i, idx := range want {
		if mesh.Indices[i] != idx {
			t.Errorf("index %d = %d, want %d", i, mesh.Indices[i], idx)
		}
	}
	if mesh.ShapeName != "Triangle" {
		t.Errorf("shape name = %q, want Triangle", mesh.ShapeName)
	}
}

func TestMeshLoaderFanTriangulatesQuad(t *testing.T) {
	mesh := loadMesh(t, `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`)
	if mesh.TriangleCount() != 2 {
		t.Fatalf("triangle count = %d, want 2", mesh.TriangleCount())
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	for i, idx := range want {
		if mesh.Indices[i] != idx {
			t.Errorf("index %d = %d, want %d", i, mesh.Indices[i], idx)
		}
	}
}

func TestMeshLoaderNegativeAndSlashedIndices(t *testing.T) {
	mesh := loadMesh(t, `
v 0 0 0
v 1 0 0
v 0 1 0
f -3/1 -2/2/2 -1//3
`)
	want := []uint32{0, 1, 2}
	for i, idx := range want {
		if mesh.Indices[i] != idx {
			t.Errorf("index %d = %d, want %d", i, mesh.Indices[i], idx)
		}
	}
}

func TestMeshLoaderRejectsMultipleShapes(t *testing.T) {
	ml := &MeshLoader{}
	_, err := ml.Load(writeObj(t, `
o First
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
o Second
v 0 0 1
v 1 0 1
v 0 1 1
f 4 5 6
`))
	if err == nil {
		t.Fatal("expected error for two shapes")
	}
	if !strings.Contains(err.Error(), "exactly one shape") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMeshLoaderRejectsEmptyFile(t *testing.T) {
	ml := &MeshLoader{}
	if _, err := ml.Load(writeObj(t, "# nothing here\n")); err == nil {
		t.Error("expected error for file without geometry")
	}
}

func TestMeshLoaderRejectsShapeWithoutFaces(t *testing.T) {
	ml := &MeshLoader{}
	if _, err := ml.Load(writeObj(t, `
o Empty
v 0 0 0
`)); err == nil {
		t.Error("expected error for shape without faces")
	}
}

func TestMeshLoaderRejectsOutOfRangeIndex(t *testing.T) {
	ml := &MeshLoader{}
	if _, err := ml.Load(writeObj(t, `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 9
`)); err == nil {
		t.Error("expected error for out of range face index")
	}
}
