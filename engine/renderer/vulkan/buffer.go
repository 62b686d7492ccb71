package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

/**
 * @brief A wrapper around a VkBuffer and its backing allocation. Buffers used
 * as acceleration structure storage or shader binding table storage carry the
 * shader device address usage bit so their GPU address can be queried.
 */
type VulkanBuffer struct {
	Handle        vk.Buffer
	Memory        vk.DeviceMemory
	TotalSize     vk.DeviceSize
	Usage         vk.BufferUsageFlags
	MemoryFlags   vk.MemoryPropertyFlags
	deviceAddress bool
	mapped        unsafe.Pointer
}

func NewVulkanBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		err := fmt.Errorf("buffer size must be greater than zero")
		core.LogError(err.Error())
		return nil, err
	}

	buffer := &VulkanBuffer{
		TotalSize:     size,
		Usage:         usage,
		MemoryFlags:   memoryFlags,
		deviceAddress: usage&vk.BufferUsageFlags(BufferUsageShaderDeviceAddressBit) != 0,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	if err := lockPool.SafeCall(BufferManagement, func() error {
		var handle vk.Buffer
		if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create buffer with error `%s`", VulkanResultString(res, true))
		}
		buffer.Handle = handle
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex == -1 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("unable to create buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	// Allocations backing an address-bearing buffer must opt in as well.
	if buffer.deviceAddress {
		allocInfo.PNext = memoryAllocateDeviceAddressPNext()
	}

	if err := lockPool.SafeCall(MemoryManagement, func() error {
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to allocate buffer memory with error `%s`", VulkanResultString(res, true))
		}
		buffer.Memory = memory
		return nil
	}); err != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		core.LogError(err.Error())
		return nil, err
	}

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); !VulkanResultIsSuccess(res) {
		buffer.Destroy(context)
		err := fmt.Errorf("failed to bind buffer memory with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	return buffer, nil
}

// DeviceAddress returns the buffer's GPU virtual address. Only valid for
// buffers created with the shader device address usage bit.
func (b *VulkanBuffer) DeviceAddress(context *VulkanContext) DeviceAddress {
	return GetBufferDeviceAddressKHR(context.Device.LogicalDevice, b.Handle)
}

func (b *VulkanBuffer) Map(context *VulkanContext, offset, size vk.DeviceSize) (unsafe.Pointer, error) {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, offset, size, 0, &ptr); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to map buffer memory with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	b.mapped = ptr
	return ptr, nil
}

func (b *VulkanBuffer) Unmap(context *VulkanContext) {
	if b.mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
		b.mapped = nil
	}
}

// WriteData copies host bytes into the buffer through a transient mapping.
// The buffer must be host visible.
func (b *VulkanBuffer) WriteData(context *VulkanContext, offset vk.DeviceSize, data []byte) error {
	if vk.DeviceSize(len(data))+offset > b.TotalSize {
		err := fmt.Errorf("write of %d bytes at offset %d overruns buffer of size %d", len(data), offset, b.TotalSize)
		core.LogError(err.Error())
		return err
	}
	ptr, err := b.Map(context, offset, vk.DeviceSize(len(data)))
	if err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	b.Unmap(context)
	return nil
}

// NewDeviceLocalBuffer uploads host data into a new device-local buffer by
// staging through a host-visible buffer and a single-use command buffer.
func NewDeviceLocalBuffer(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))

	staging, err := NewVulkanBuffer(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.WriteData(context, 0, data); err != nil {
		return nil, err
	}

	deviceLocal, err := NewVulkanBuffer(context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	cmd, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		deviceLocal.Destroy(context)
		return nil, err
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cmd.Handle, staging.Handle, deviceLocal.Handle, 1, []vk.BufferCopy{copyRegion})

	if err := cmd.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		deviceLocal.Destroy(context)
		return nil, err
	}

	return deviceLocal, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	b.Unmap(context)
	if err := lockPool.SafeCall(BufferManagement, func() error {
		if b.Handle != vk.NullBuffer {
			vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
			b.Handle = vk.NullBuffer
		}
		if b.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
			b.Memory = vk.NullDeviceMemory
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
	}
	b.TotalSize = 0
}
