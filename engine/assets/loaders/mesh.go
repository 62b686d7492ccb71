package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MeshData is the flat triangle soup the geometry upload consumes: packed
// float32 coordinate triples and uint32 vertex-index triples.
type MeshData struct {
	Positions []float32
	Indices   []uint32
	ShapeName string
}

func (md *MeshData) VertexCount() uint32 {
	return uint32(len(md.Positions) / 3)
}

func (md *MeshData) TriangleCount() uint32 {
	return uint32(len(md.Indices) / 3)
}

// MeshLoader reads wavefront OBJ files. Only vertex positions and triangle
// faces are consumed; normals, texture coordinates and materials are skipped
// since shading is derived in the shaders. The file must contain exactly one
// shape: more than one is a configuration error, reported before any GPU
// resource exists.
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh := &MeshData{}
	shapeCount := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: vertex needs 3 coordinates", path, lineNo)
			}
			for _, fs := range fields[1:4] {
				val, err := strconv.ParseFloat(fs, 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: bad vertex coordinate %q", path, lineNo, fs)
				}
				mesh.Positions = append(mesh.Positions, float32(val))
			}
		case "o", "g":
			shapeCount++
			if len(fields) > 1 {
				mesh.ShapeName = fields[1]
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs at least 3 vertices", path, lineNo)
			}
			// An OBJ file without explicit o/g statements still holds one
			// implicit shape.
			if shapeCount == 0 {
				shapeCount = 1
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, fs := range fields[1:] {
				idx, err := parseFaceIndex(fs, len(mesh.Positions)/3)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
				}
				corners = append(corners, idx)
			}
			// Fan-triangulate polygons.
			for i := 1; i+1 < len(corners); i++ {
				mesh.Indices = append(mesh.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if shapeCount == 0 {
		return nil, fmt.Errorf("%s: no geometry found", path)
	}
	if shapeCount > 1 {
		return nil, fmt.Errorf("%s: expected exactly one shape, found %d", path, shapeCount)
	}
	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("%s: shape has no faces", path)
	}

	return &Resource{
		Name:     mesh.ShapeName,
		FullPath: path,
		Type:     ResourceTypeMesh,
		DataSize: uint64(len(mesh.Positions)*4 + len(mesh.Indices)*4),
		Data:     mesh,
	}, nil
}

func (ml *MeshLoader) Unload(*Resource) error {
	return nil
}

// parseFaceIndex resolves one face corner ("7", "7/2", "7//3", "-1") to a
// zero-based vertex index. Negative indices count back from the last vertex
// defined so far, per the OBJ specification.
func parseFaceIndex(field string, vertexCount int) (uint32, error) {
	if slash := strings.IndexByte(field, '/'); slash >= 0 {
		field = field[:slash]
	}
	idx, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", field)
	}
	if idx < 0 {
		idx = vertexCount + idx + 1
	}
	if idx < 1 || idx > vertexCount {
		return 0, fmt.Errorf("face index %d out of range [1, %d]", idx, vertexCount)
	}
	return uint32(idx - 1), nil
}
