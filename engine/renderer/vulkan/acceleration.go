package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

/**
 * @brief Geometry for one bottom level structure build. The vertex and index
 * buffers must be device local and carry the shader device address and build
 * input usage bits.
 */
type BlasInput struct {
	VertexBuffer *VulkanBuffer
	VertexCount  uint32
	VertexStride vk.DeviceSize
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
}

func (b *BlasInput) Validate() error {
	if b.VertexBuffer == nil || b.VertexCount == 0 {
		return fmt.Errorf("bottom level input has no vertices")
	}
	if b.VertexStride == 0 {
		return fmt.Errorf("bottom level input has a zero vertex stride")
	}
	if b.IndexBuffer == nil || b.IndexCount == 0 {
		return fmt.Errorf("bottom level input has no indices")
	}
	if b.IndexCount%3 != 0 {
		return fmt.Errorf("bottom level input index count %d is not a multiple of 3", b.IndexCount)
	}
	return nil
}

type blasEntry struct {
	handle  AccelerationStructureKHR
	buffer  *VulkanBuffer
	address uint64
}

/**
 * @brief Owns the bottom and top level acceleration structures. Both builds
 * are single shot: a second call to either build method fails instead of
 * rebuilding in place.
 */
type VulkanAccelerationBuilder struct {
	context *VulkanContext

	blas      []blasEntry
	blasBuilt bool

	tlas           AccelerationStructureKHR
	tlasBuffer     *VulkanBuffer
	instanceBuffer *VulkanBuffer
	tlasBuilt      bool
}

func NewVulkanAccelerationBuilder(context *VulkanContext) *VulkanAccelerationBuilder {
	return &VulkanAccelerationBuilder{
		context: context,
	}
}

// BuildBlas queries the build sizes for every input, allocates structure and
// scratch storage, records the builds into a single-use command buffer and
// waits for them. With allowCompaction set, the structures are rebuilt into
// right-sized storage using the compacted sizes from a query pool.
func (ab *VulkanAccelerationBuilder) BuildBlas(inputs []BlasInput, allowCompaction bool) error {
	if ab.blasBuilt {
		core.LogError(core.ErrAlreadyBuilt.Error())
		return core.ErrAlreadyBuilt
	}
	if len(inputs) == 0 {
		err := fmt.Errorf("no bottom level inputs provided")
		core.LogError(err.Error())
		return err
	}
	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			core.LogError(err.Error())
			return err
		}
	}

	flags := BuildAccelerationStructurePreferFastTraceBitKHR
	if allowCompaction {
		flags |= BuildAccelerationStructureAllowCompactionBitKHR
	}

	for i := range inputs {
		entry, err := ab.buildOneBlas(&inputs[i], flags, allowCompaction)
		if err != nil {
			ab.Destroy()
			return err
		}
		ab.blas = append(ab.blas, *entry)
	}

	ab.blasBuilt = true
	core.LogInfo("Built %d bottom level acceleration structure(s).", len(ab.blas))
	return nil
}

func (ab *VulkanAccelerationBuilder) buildOneBlas(input *BlasInput, flags BuildAccelerationStructureFlagsKHR, compact bool) (*blasEntry, error) {
	context := ab.context

	geometry := AccelerationStructureGeometryKHR{
		Flags: GeometryOpaqueBitKHR,
		Triangles: &AccelerationStructureGeometryTrianglesDataKHR{
			VertexFormat: vk.FormatR32g32b32Sfloat,
			VertexData:   input.VertexBuffer.DeviceAddress(context),
			VertexStride: input.VertexStride,
			MaxVertex:    input.VertexCount - 1,
			IndexType:    vk.IndexTypeUint32,
			IndexData:    input.IndexBuffer.DeviceAddress(context),
		},
	}

	primitiveCount := input.IndexCount / 3

	buildInfo := AccelerationStructureBuildGeometryInfoKHR{
		Type:       AccelerationStructureTypeBottomLevelKHR,
		Flags:      flags,
		Mode:       BuildAccelerationStructureModeBuildKHR,
		Geometries: []AccelerationStructureGeometryKHR{geometry},
	}

	sizeInfo, err := GetAccelerationStructureBuildSizesKHR(context.Device.LogicalDevice, &buildInfo, []uint32{primitiveCount})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	structureBuffer, err := NewVulkanBuffer(context, sizeInfo.AccelerationStructureSize,
		vk.BufferUsageFlags(BufferUsageAccelerationStructureStorageBitKHR|BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	scratchBuffer, err := NewVulkanBuffer(context, sizeInfo.BuildScratchSize,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		structureBuffer.Destroy(context)
		return nil, err
	}
	defer scratchBuffer.Destroy(context)

	var handle AccelerationStructureKHR
	createInfo := AccelerationStructureCreateInfoKHR{
		Buffer: structureBuffer.Handle,
		Size:   sizeInfo.AccelerationStructureSize,
		Type:   AccelerationStructureTypeBottomLevelKHR,
	}
	if err := lockPool.SafeCall(AccelerationStructureManagement, func() error {
		created, res := CreateAccelerationStructureKHR(context.Device.LogicalDevice, &createInfo)
		if !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create bottom level acceleration structure with error `%s`", VulkanResultString(res, true))
		}
		handle = created
		return nil
	}); err != nil {
		structureBuffer.Destroy(context)
		core.LogError(err.Error())
		return nil, err
	}

	buildInfo.DstAccelerationStructure = handle
	buildInfo.ScratchData = scratchBuffer.DeviceAddress(context)

	// Query pool for the compacted size, written right after the build.
	var queryPool vk.QueryPool
	if compact {
		queryInfo := vk.QueryPoolCreateInfo{
			SType:      vk.StructureTypeQueryPoolCreateInfo,
			QueryType:  QueryTypeAccelerationStructureCompactedSizeKHR,
			QueryCount: 1,
		}
		if res := vk.CreateQueryPool(context.Device.LogicalDevice, &queryInfo, context.Allocator, &queryPool); !VulkanResultIsSuccess(res) {
			ab.destroyStructure(handle, structureBuffer)
			err := fmt.Errorf("failed to create compaction query pool with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return nil, err
		}
		defer vk.DestroyQueryPool(context.Device.LogicalDevice, queryPool, context.Allocator)
	}

	rangeInfo := AccelerationStructureBuildRangeInfoKHR{
		PrimitiveCount:  primitiveCount,
		PrimitiveOffset: 0,
		FirstVertex:     0,
		TransformOffset: 0,
	}

	cmd, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		ab.destroyStructure(handle, structureBuffer)
		return nil, err
	}

	if err := CmdBuildAccelerationStructuresKHR(cmd.Handle, &buildInfo,
		[]AccelerationStructureBuildRangeInfoKHR{rangeInfo}); err != nil {
		ab.destroyStructure(handle, structureBuffer)
		core.LogError(err.Error())
		return nil, err
	}

	if compact {
		recordAccelerationBuildBarrier(cmd)
		vk.CmdResetQueryPool(cmd.Handle, queryPool, 0, 1)
		CmdWriteAccelerationStructuresPropertiesKHR(cmd.Handle,
			[]AccelerationStructureKHR{handle},
			QueryTypeAccelerationStructureCompactedSizeKHR, queryPool, 0)
	}

	if err := cmd.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		ab.destroyStructure(handle, structureBuffer)
		return nil, err
	}

	if compact {
		compacted, err := ab.compactBlas(handle, structureBuffer, queryPool)
		if err != nil {
			ab.destroyStructure(handle, structureBuffer)
			return nil, err
		}
		handle = compacted.handle
		structureBuffer = compacted.buffer
	}

	address := GetAccelerationStructureDeviceAddressKHR(context.Device.LogicalDevice, handle)

	return &blasEntry{
		handle:  handle,
		buffer:  structureBuffer,
		address: uint64(address),
	}, nil
}

// compactBlas copies a freshly built structure into right-sized storage and
// releases the original.
func (ab *VulkanAccelerationBuilder) compactBlas(src AccelerationStructureKHR, srcBuffer *VulkanBuffer, queryPool vk.QueryPool) (*blasEntry, error) {
	context := ab.context

	var compactedSize vk.DeviceSize
	if res := vk.GetQueryPoolResults(context.Device.LogicalDevice, queryPool, 0, 1,
		uint64(unsafe.Sizeof(compactedSize)), unsafe.Pointer(&compactedSize),
		vk.DeviceSize(unsafe.Sizeof(compactedSize)),
		vk.QueryResultFlags(vk.QueryResult64Bit|vk.QueryResultWaitBit)); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to read compacted size query with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	compactBuffer, err := NewVulkanBuffer(context, compactedSize,
		vk.BufferUsageFlags(BufferUsageAccelerationStructureStorageBitKHR|BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	createInfo := AccelerationStructureCreateInfoKHR{
		Buffer: compactBuffer.Handle,
		Size:   compactedSize,
		Type:   AccelerationStructureTypeBottomLevelKHR,
	}
	compactHandle, res := CreateAccelerationStructureKHR(context.Device.LogicalDevice, &createInfo)
	if !VulkanResultIsSuccess(res) {
		compactBuffer.Destroy(context)
		err := fmt.Errorf("failed to create compacted acceleration structure with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	cmd, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		ab.destroyStructure(compactHandle, compactBuffer)
		return nil, err
	}

	CmdCopyAccelerationStructureKHR(cmd.Handle, src, compactHandle, CopyAccelerationStructureModeCompactKHR)

	if err := cmd.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		ab.destroyStructure(compactHandle, compactBuffer)
		return nil, err
	}

	ab.destroyStructure(src, srcBuffer)

	return &blasEntry{handle: compactHandle, buffer: compactBuffer}, nil
}

// BuildTlas encodes the instance records, uploads them and builds the top
// level structure referencing the bottom level addresses. BuildBlas must have
// completed first.
func (ab *VulkanAccelerationBuilder) BuildTlas(instances []AccelerationInstance) error {
	if !ab.blasBuilt {
		core.LogError(core.ErrNotBuilt.Error())
		return core.ErrNotBuilt
	}
	if ab.tlasBuilt {
		core.LogError(core.ErrAlreadyBuilt.Error())
		return core.ErrAlreadyBuilt
	}
	if len(instances) == 0 {
		err := fmt.Errorf("no instances provided for top level build")
		core.LogError(err.Error())
		return err
	}

	context := ab.context

	records, err := EncodeInstances(instances)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	instanceBuffer, err := NewDeviceLocalBuffer(context, records,
		vk.BufferUsageFlags(BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR|BufferUsageShaderDeviceAddressBit))
	if err != nil {
		return err
	}
	ab.instanceBuffer = instanceBuffer

	geometry := AccelerationStructureGeometryKHR{
		Instances: &AccelerationStructureGeometryInstancesDataKHR{
			Data: instanceBuffer.DeviceAddress(context),
		},
	}

	buildInfo := AccelerationStructureBuildGeometryInfoKHR{
		Type:       AccelerationStructureTypeTopLevelKHR,
		Flags:      BuildAccelerationStructurePreferFastTraceBitKHR,
		Mode:       BuildAccelerationStructureModeBuildKHR,
		Geometries: []AccelerationStructureGeometryKHR{geometry},
	}

	instanceCount := uint32(len(instances))
	sizeInfo, err := GetAccelerationStructureBuildSizesKHR(context.Device.LogicalDevice, &buildInfo, []uint32{instanceCount})
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	tlasBuffer, err := NewVulkanBuffer(context, sizeInfo.AccelerationStructureSize,
		vk.BufferUsageFlags(BufferUsageAccelerationStructureStorageBitKHR|BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return err
	}
	ab.tlasBuffer = tlasBuffer

	scratchBuffer, err := NewVulkanBuffer(context, sizeInfo.BuildScratchSize,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return err
	}
	defer scratchBuffer.Destroy(context)

	createInfo := AccelerationStructureCreateInfoKHR{
		Buffer: tlasBuffer.Handle,
		Size:   sizeInfo.AccelerationStructureSize,
		Type:   AccelerationStructureTypeTopLevelKHR,
	}
	if err := lockPool.SafeCall(AccelerationStructureManagement, func() error {
		handle, res := CreateAccelerationStructureKHR(context.Device.LogicalDevice, &createInfo)
		if !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create top level acceleration structure with error `%s`", VulkanResultString(res, true))
		}
		ab.tlas = handle
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}

	buildInfo.DstAccelerationStructure = ab.tlas
	buildInfo.ScratchData = scratchBuffer.DeviceAddress(context)

	rangeInfo := AccelerationStructureBuildRangeInfoKHR{
		PrimitiveCount: instanceCount,
	}

	cmd, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	// The instance records written by the transfer stage must be visible to
	// the acceleration structure build.
	memBarrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask: vk.AccessFlags(AccessAccelerationStructureReadBitKHR),
	}
	vk.CmdPipelineBarrier(cmd.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(PipelineStageAccelerationStructureBuildBitKHR),
		0, 1, []vk.MemoryBarrier{memBarrier}, 0, nil, 0, nil)

	if err := CmdBuildAccelerationStructuresKHR(cmd.Handle, &buildInfo,
		[]AccelerationStructureBuildRangeInfoKHR{rangeInfo}); err != nil {
		core.LogError(err.Error())
		return err
	}

	if err := cmd.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		return err
	}

	ab.tlasBuilt = true
	core.LogInfo("Built top level acceleration structure with %d instance(s).", instanceCount)
	return nil
}

// BlasDeviceAddress returns the device address of the i-th bottom level
// structure, as placed into instance records.
func (ab *VulkanAccelerationBuilder) BlasDeviceAddress(i int) (uint64, error) {
	if !ab.blasBuilt {
		return 0, core.ErrNotBuilt
	}
	if i < 0 || i >= len(ab.blas) {
		return 0, fmt.Errorf("bottom level structure index %d out of range [0,%d)", i, len(ab.blas))
	}
	return ab.blas[i].address, nil
}

// Tlas returns the top level structure handle for descriptor binding.
func (ab *VulkanAccelerationBuilder) Tlas() (AccelerationStructureKHR, error) {
	if !ab.tlasBuilt {
		return NullAccelerationStructureKHR, core.ErrNotBuilt
	}
	return ab.tlas, nil
}

func (ab *VulkanAccelerationBuilder) destroyStructure(handle AccelerationStructureKHR, buffer *VulkanBuffer) {
	if handle != NullAccelerationStructureKHR {
		DestroyAccelerationStructureKHR(ab.context.Device.LogicalDevice, handle)
	}
	if buffer != nil {
		buffer.Destroy(ab.context)
	}
}

// Destroy releases the top level structure first, then every bottom level
// structure, then the instance upload buffer.
func (ab *VulkanAccelerationBuilder) Destroy() {
	if ab.tlas != NullAccelerationStructureKHR {
		DestroyAccelerationStructureKHR(ab.context.Device.LogicalDevice, ab.tlas)
		ab.tlas = NullAccelerationStructureKHR
	}
	if ab.tlasBuffer != nil {
		ab.tlasBuffer.Destroy(ab.context)
		ab.tlasBuffer = nil
	}
	for i := len(ab.blas) - 1; i >= 0; i-- {
		ab.destroyStructure(ab.blas[i].handle, ab.blas[i].buffer)
	}
	ab.blas = nil
	if ab.instanceBuffer != nil {
		ab.instanceBuffer.Destroy(ab.context)
		ab.instanceBuffer = nil
	}
	ab.blasBuilt = false
	ab.tlasBuilt = false
}

func recordAccelerationBuildBarrier(cmd *VulkanCommandBuffer) {
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(AccessAccelerationStructureWriteBitKHR),
		DstAccessMask: vk.AccessFlags(AccessAccelerationStructureReadBitKHR),
	}
	vk.CmdPipelineBarrier(cmd.Handle,
		vk.PipelineStageFlags(PipelineStageAccelerationStructureBuildBitKHR),
		vk.PipelineStageFlags(PipelineStageAccelerationStructureBuildBitKHR),
		0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
}
