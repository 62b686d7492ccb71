package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
	Layout vk.ImageLayout
}

func NewVulkanImage(context *VulkanContext, width, height uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags, createView bool) (*VulkanImage, error) {
	image := &VulkanImage{
		Width:  width,
		Height: height,
		Format: format,
		Layout: vk.ImageLayoutUndefined,
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	if err := lockPool.SafeCall(ImageManagement, func() error {
		var handle vk.Image
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create image with error `%s`", VulkanResultString(res, true))
		}
		image.Handle = handle
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex == -1 {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		err := fmt.Errorf("unable to create image because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	if err := lockPool.SafeCall(MemoryManagement, func() error {
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to allocate image memory with error `%s`", VulkanResultString(res, true))
		}
		image.Memory = memory
		return nil
	}); err != nil {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		core.LogError(err.Error())
		return nil, err
	}

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); !VulkanResultIsSuccess(res) {
		image.Destroy(context)
		err := fmt.Errorf("failed to bind image memory with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	if createView {
		if err := image.createView(context); err != nil {
			image.Destroy(context)
			return nil, err
		}
	}

	return image, nil
}

func (i *VulkanImage) createView(context *VulkanContext) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   i.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create image view with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	i.View = view
	return nil
}

// RecordLayoutTransition records a pipeline barrier moving the image from its
// tracked layout to newLayout. The access masks and stage scopes are derived
// from the pair of layouts.
func (i *VulkanImage) RecordLayoutTransition(cmd *VulkanCommandBuffer, newLayout vk.ImageLayout, srcStage, dstStage vk.PipelineStageFlags, srcAccess, dstAccess vk.AccessFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           i.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               i.Handle,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	vk.CmdPipelineBarrier(cmd.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	i.Layout = newLayout
}

// MapPixels maps the whole allocation of a linear, host-visible image and
// returns the pointer together with the row pitch in bytes.
func (i *VulkanImage) MapPixels(context *VulkanContext) (unsafe.Pointer, vk.DeviceSize, error) {
	subresource := vk.ImageSubresource{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:   0,
		ArrayLayer: 0,
	}
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(context.Device.LogicalDevice, i.Handle, &subresource, &layout)
	layout.Deref()

	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, i.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &ptr); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to map image memory with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, 0, err
	}
	return unsafe.Pointer(uintptr(ptr) + uintptr(layout.Offset)), layout.RowPitch, nil
}

func (i *VulkanImage) UnmapPixels(context *VulkanContext) {
	vk.UnmapMemory(context.Device.LogicalDevice, i.Memory)
}

func (i *VulkanImage) Destroy(context *VulkanContext) {
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if i.View != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, i.View, context.Allocator)
			i.View = vk.NullImageView
		}
		if i.Handle != vk.NullImage {
			vk.DestroyImage(context.Device.LogicalDevice, i.Handle, context.Allocator)
			i.Handle = vk.NullImage
		}
		if i.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, i.Memory, context.Allocator)
			i.Memory = vk.NullDeviceMemory
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
	}
}
