package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/spaghettifunk/vortex/engine/math"
)

// ShaderGroupCounts is the number of shader groups per binding table region,
// in pipeline group creation order: raygen first, then miss, hit, callable.
type ShaderGroupCounts struct {
	Raygen   uint32
	Miss     uint32
	Hit      uint32
	Callable uint32
}

func (c ShaderGroupCounts) Total() uint32 {
	return c.Raygen + c.Miss + c.Hit + c.Callable
}

type SBTRegion struct {
	Offset vk.DeviceSize
	Size   vk.DeviceSize
	Stride vk.DeviceSize
}

/**
 * @brief Byte layout of the shader binding table, derived purely from the
 * device limits and group counts so the arithmetic can be checked without a
 * device.
 */
type SBTLayout struct {
	HandleSize uint32
	Stride     uint32

	Raygen   SBTRegion
	Miss     SBTRegion
	Hit      SBTRegion
	Callable SBTRegion

	TotalSize vk.DeviceSize
}

// ComputeSBTLayout rounds the handle size up to the group base alignment to
// get the record stride, then lays the four regions out back to back. The
// raygen region is special cased: its size must equal its stride.
func ComputeSBTLayout(props RayTracingProperties, counts ShaderGroupCounts) (*SBTLayout, error) {
	// The raygen region size is required to equal its stride, so only one
	// raygen record may occupy it.
	if counts.Raygen != 1 {
		return nil, fmt.Errorf("exactly one raygen group is supported, got %d", counts.Raygen)
	}
	if props.ShaderGroupHandleSize == 0 || props.ShaderGroupBaseAlignment == 0 || props.ShaderGroupHandleAlignment == 0 {
		return nil, fmt.Errorf("device reported zero shader group sizing limits")
	}
	if props.ShaderGroupBaseAlignment%props.ShaderGroupHandleAlignment != 0 {
		return nil, fmt.Errorf("group base alignment %d is not a multiple of handle alignment %d",
			props.ShaderGroupBaseAlignment, props.ShaderGroupHandleAlignment)
	}

	stride := math.AlignUp(props.ShaderGroupHandleSize, props.ShaderGroupBaseAlignment)
	if props.MaxShaderGroupStride != 0 && stride > props.MaxShaderGroupStride {
		return nil, fmt.Errorf("record stride %d exceeds device maximum %d", stride, props.MaxShaderGroupStride)
	}

	layout := &SBTLayout{
		HandleSize: props.ShaderGroupHandleSize,
		Stride:     stride,
	}

	offset := vk.DeviceSize(0)
	region := func(count uint32) SBTRegion {
		r := SBTRegion{
			Offset: offset,
			Size:   vk.DeviceSize(stride) * vk.DeviceSize(count),
			Stride: vk.DeviceSize(stride),
		}
		offset += r.Size
		return r
	}

	layout.Raygen = region(counts.Raygen)
	layout.Miss = region(counts.Miss)
	layout.Hit = region(counts.Hit)
	layout.Callable = region(counts.Callable)
	layout.TotalSize = offset

	return layout, nil
}

// PackHandles spreads contiguous queried handles out to stride spacing. Bytes
// between a handle and the next record boundary stay zero.
func PackHandles(handles []byte, handleSize, stride, groupCount uint32) ([]byte, error) {
	if uint32(len(handles)) != handleSize*groupCount {
		return nil, fmt.Errorf("handle blob of %d bytes does not match %d groups of %d bytes",
			len(handles), groupCount, handleSize)
	}
	if stride < handleSize {
		return nil, fmt.Errorf("stride %d smaller than handle size %d", stride, handleSize)
	}
	out := make([]byte, stride*groupCount)
	for g := uint32(0); g < groupCount; g++ {
		copy(out[g*stride:], handles[g*handleSize:(g+1)*handleSize])
	}
	return out, nil
}

/**
 * @brief The device-resident shader binding table: one buffer holding all
 * regions, plus the strided address regions handed to the trace call.
 */
type VulkanShaderBindingTable struct {
	Layout *SBTLayout
	Buffer *VulkanBuffer

	RaygenRegion   StridedDeviceAddressRegionKHR
	MissRegion     StridedDeviceAddressRegionKHR
	HitRegion      StridedDeviceAddressRegionKHR
	CallableRegion StridedDeviceAddressRegionKHR
}

// NewShaderBindingTable queries the group handles from the pipeline, packs
// them at record stride and uploads the table. Regions with zero groups keep
// a valid address and stride but report a zero size.
func NewShaderBindingTable(context *VulkanContext, pipeline vk.Pipeline, counts ShaderGroupCounts) (*VulkanShaderBindingTable, error) {
	layout, err := ComputeSBTLayout(context.RayTracingProperties, counts)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	groupCount := counts.Total()
	handleBytes := make([]byte, layout.HandleSize*groupCount)
	if res := GetRayTracingShaderGroupHandlesKHR(
		context.Device.LogicalDevice,
		pipeline,
		0,
		groupCount,
		handleBytes); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to query shader group handles with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	packed, err := PackHandles(handleBytes, layout.HandleSize, layout.Stride, groupCount)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	buffer, err := NewVulkanBuffer(context, layout.TotalSize,
		vk.BufferUsageFlags(BufferUsageShaderBindingTableBitKHR|BufferUsageShaderDeviceAddressBit|vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	if err := buffer.WriteData(context, 0, packed); err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	base := uint64(buffer.DeviceAddress(context))
	region := func(r SBTRegion) StridedDeviceAddressRegionKHR {
		return StridedDeviceAddressRegionKHR{
			DeviceAddress: DeviceAddress(base + uint64(r.Offset)),
			Stride:        r.Stride,
			Size:          r.Size,
		}
	}

	sbt := &VulkanShaderBindingTable{
		Layout:         layout,
		Buffer:         buffer,
		RaygenRegion:   region(layout.Raygen),
		MissRegion:     region(layout.Miss),
		HitRegion:      region(layout.Hit),
		CallableRegion: region(layout.Callable),
	}

	core.LogDebug("Shader binding table: %d group(s), stride %d, %d bytes total.",
		groupCount, layout.Stride, layout.TotalSize)
	return sbt, nil
}

func (s *VulkanShaderBindingTable) Destroy(context *VulkanContext) {
	if s.Buffer != nil {
		s.Buffer.Destroy(context)
		s.Buffer = nil
	}
}
