package loaders

// ResourceType identifies which loader handles an asset.
type ResourceType int

const (
	ResourceTypeMesh ResourceType = iota
	ResourceTypeShaderBinary
)

// Resource is the result of loading one asset from disk.
type Resource struct {
	// ID is assigned by the asset manager when the resource is registered.
	ID       string
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	// Data holds the loader-specific payload: *MeshData for meshes,
	// []uint32 SPIR-V words for shader binaries.
	Data interface{}
}

type Loader interface {
	Load(path string) (*Resource, error)
	Unload(*Resource) error
}
