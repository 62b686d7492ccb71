package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// The core binding stops at the Vulkan 1.1 surface, so the acceleration
// structure, ray tracing pipeline and buffer device address types are declared
// here and marshalled through the command shim in khr_ray_tracing.go. Handles
// are 64-bit regardless of the non-dispatchable handle representation.
type (
	DeviceAddress            uint64
	AccelerationStructureKHR uint64
)

const NullAccelerationStructureKHR AccelerationStructureKHR = 0

// Extension names absent from the core binding's constant table.
const (
	KhrAccelerationStructureExtensionName = "VK_KHR_acceleration_structure"
	KhrRayTracingPipelineExtensionName    = "VK_KHR_ray_tracing_pipeline"
)

type AccelerationStructureTypeKHR int32

const (
	AccelerationStructureTypeTopLevelKHR    AccelerationStructureTypeKHR = 0
	AccelerationStructureTypeBottomLevelKHR AccelerationStructureTypeKHR = 1
)

type BuildAccelerationStructureFlagsKHR uint32

const (
	BuildAccelerationStructureAllowUpdateBitKHR     BuildAccelerationStructureFlagsKHR = 0x00000001
	BuildAccelerationStructureAllowCompactionBitKHR BuildAccelerationStructureFlagsKHR = 0x00000002
	BuildAccelerationStructurePreferFastTraceBitKHR BuildAccelerationStructureFlagsKHR = 0x00000004
)

type BuildAccelerationStructureModeKHR int32

const (
	BuildAccelerationStructureModeBuildKHR  BuildAccelerationStructureModeKHR = 0
	BuildAccelerationStructureModeUpdateKHR BuildAccelerationStructureModeKHR = 1
)

type GeometryTypeKHR int32

const (
	GeometryTypeTrianglesKHR GeometryTypeKHR = 0
	GeometryTypeAabbsKHR     GeometryTypeKHR = 1
	GeometryTypeInstancesKHR GeometryTypeKHR = 2
)

type GeometryFlagsKHR uint32

const GeometryOpaqueBitKHR GeometryFlagsKHR = 0x00000001

type CopyAccelerationStructureModeKHR int32

const (
	CopyAccelerationStructureModeCloneKHR   CopyAccelerationStructureModeKHR = 0
	CopyAccelerationStructureModeCompactKHR CopyAccelerationStructureModeKHR = 1
)

type RayTracingShaderGroupTypeKHR int32

const (
	RayTracingShaderGroupTypeGeneralKHR           RayTracingShaderGroupTypeKHR = 0
	RayTracingShaderGroupTypeTrianglesHitGroupKHR RayTracingShaderGroupTypeKHR = 1
)

const ShaderUnusedKHR = ^uint32(0)

// Extension enum values expressed on the core binding's flag types, so they
// combine with the core bits without casts all over the call sites.
const (
	BufferUsageShaderBindingTableBitKHR                      vk.BufferUsageFlagBits = 0x00000400
	BufferUsageShaderDeviceAddressBit                        vk.BufferUsageFlagBits = 0x00020000
	BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR vk.BufferUsageFlagBits = 0x00080000
	BufferUsageAccelerationStructureStorageBitKHR            vk.BufferUsageFlagBits = 0x00100000

	PipelineStageRayTracingShaderBitKHR           vk.PipelineStageFlagBits = 0x00200000
	PipelineStageAccelerationStructureBuildBitKHR vk.PipelineStageFlagBits = 0x02000000

	AccessAccelerationStructureReadBitKHR  vk.AccessFlagBits = 0x00200000
	AccessAccelerationStructureWriteBitKHR vk.AccessFlagBits = 0x00400000

	ShaderStageRaygenBitKHR     vk.ShaderStageFlagBits = 0x00000100
	ShaderStageAnyHitBitKHR     vk.ShaderStageFlagBits = 0x00000200
	ShaderStageClosestHitBitKHR vk.ShaderStageFlagBits = 0x00000400
	ShaderStageMissBitKHR       vk.ShaderStageFlagBits = 0x00000800

	DescriptorTypeAccelerationStructureKHR         vk.DescriptorType    = 1000150000
	PipelineBindPointRayTracingKHR                 vk.PipelineBindPoint = 1000165000
	QueryTypeAccelerationStructureCompactedSizeKHR vk.QueryType         = 1000150000
)

// StridedDeviceAddressRegionKHR mirrors the C struct byte for byte so the
// trace call can pass it through without copying.
type StridedDeviceAddressRegionKHR struct {
	DeviceAddress DeviceAddress
	Stride        vk.DeviceSize
	Size          vk.DeviceSize
}

type AccelerationStructureBuildRangeInfoKHR struct {
	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
	TransformOffset uint32
}

type AccelerationStructureGeometryTrianglesDataKHR struct {
	VertexFormat vk.Format
	VertexData   DeviceAddress
	VertexStride vk.DeviceSize
	MaxVertex    uint32
	IndexType    vk.IndexType
	IndexData    DeviceAddress
}

type AccelerationStructureGeometryInstancesDataKHR struct {
	Data DeviceAddress
}

// AccelerationStructureGeometryKHR carries exactly one of the two geometry
// payloads; the set pointer selects the geometry type on the wire.
type AccelerationStructureGeometryKHR struct {
	Flags     GeometryFlagsKHR
	Triangles *AccelerationStructureGeometryTrianglesDataKHR
	Instances *AccelerationStructureGeometryInstancesDataKHR
}

func (g *AccelerationStructureGeometryKHR) geometryType() (GeometryTypeKHR, error) {
	switch {
	case g.Triangles != nil && g.Instances == nil:
		return GeometryTypeTrianglesKHR, nil
	case g.Instances != nil && g.Triangles == nil:
		return GeometryTypeInstancesKHR, nil
	}
	return 0, fmt.Errorf("geometry must carry exactly one of triangles or instances")
}

type AccelerationStructureBuildGeometryInfoKHR struct {
	Type                     AccelerationStructureTypeKHR
	Flags                    BuildAccelerationStructureFlagsKHR
	Mode                     BuildAccelerationStructureModeKHR
	DstAccelerationStructure AccelerationStructureKHR
	Geometries               []AccelerationStructureGeometryKHR
	ScratchData              DeviceAddress
}

type AccelerationStructureBuildSizesInfoKHR struct {
	AccelerationStructureSize vk.DeviceSize
	UpdateScratchSize         vk.DeviceSize
	BuildScratchSize          vk.DeviceSize
}

type AccelerationStructureCreateInfoKHR struct {
	Buffer vk.Buffer
	Offset vk.DeviceSize
	Size   vk.DeviceSize
	Type   AccelerationStructureTypeKHR
}

type RayTracingShaderStageKHR struct {
	Stage  vk.ShaderStageFlagBits
	Module vk.ShaderModule
	Name   string
}

type RayTracingShaderGroupCreateInfoKHR struct {
	Type               RayTracingShaderGroupTypeKHR
	GeneralShader      uint32
	ClosestHitShader   uint32
	AnyHitShader       uint32
	IntersectionShader uint32
}

type RayTracingPipelineCreateInfoKHR struct {
	Stages                       []RayTracingShaderStageKHR
	Groups                       []RayTracingShaderGroupCreateInfoKHR
	MaxPipelineRayRecursionDepth uint32
	Layout                       vk.PipelineLayout
}

type PhysicalDeviceRayTracingPipelinePropertiesKHR struct {
	ShaderGroupHandleSize              uint32
	MaxRayRecursionDepth               uint32
	MaxShaderGroupStride               uint32
	ShaderGroupBaseAlignment           uint32
	ShaderGroupHandleCaptureReplaySize uint32
	MaxRayDispatchInvocationCount      uint32
	ShaderGroupHandleAlignment         uint32
	MaxRayHitAttributeSize             uint32
}
