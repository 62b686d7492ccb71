package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

/**
 * @brief Runs the synchronous sample batch loop: one single-use command
 * buffer per batch, each traced over the full image and waited on before the
 * next begins. The final batch also copies the render target into the linear
 * readback image.
 */
type VulkanSampleDispatcher struct {
	context  *VulkanContext
	pipeline *VulkanRayTracingPipeline
	sbt      *VulkanShaderBindingTable
	target   *VulkanImage
	readback *VulkanImage
}

func NewSampleDispatcher(context *VulkanContext, pipeline *VulkanRayTracingPipeline, sbt *VulkanShaderBindingTable, target, readback *VulkanImage) *VulkanSampleDispatcher {
	return &VulkanSampleDispatcher{
		context:  context,
		pipeline: pipeline,
		sbt:      sbt,
		target:   target,
		readback: readback,
	}
}

// DispatchBatches traces totalBatches full-image batches. The push constant
// block is re-encoded per batch with the running batch index so the shader
// can blend each batch into the accumulated image.
func (d *VulkanSampleDispatcher) DispatchBatches(push PushConstants, totalBatches uint32) error {
	if totalBatches == 0 {
		err := fmt.Errorf("total batch count must be greater than zero")
		core.LogError(err.Error())
		return err
	}

	for batch := uint32(0); batch < totalBatches; batch++ {
		push.SampleBatch = batch
		push.TotalBatches = totalBatches
		if err := d.dispatchOne(push, batch == 0, batch == totalBatches-1); err != nil {
			return fmt.Errorf("sample batch %d failed: %w", batch, err)
		}
		core.LogDebug("Sample batch %d/%d complete.", batch+1, totalBatches)
	}

	core.LogInfo("Dispatched %d sample batch(es).", totalBatches)
	return nil
}

func (d *VulkanSampleDispatcher) dispatchOne(push PushConstants, first, last bool) error {
	context := d.context

	cmd, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	if first {
		// The render target starts undefined and must be general before the
		// raygen shader can store to it.
		d.target.RecordLayoutTransition(cmd, vk.ImageLayoutGeneral,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(PipelineStageRayTracingShaderBitKHR),
			0,
			vk.AccessFlags(vk.AccessShaderReadBit|vk.AccessShaderWriteBit))
	}

	vk.CmdBindPipeline(cmd.Handle, PipelineBindPointRayTracingKHR, d.pipeline.Handle)
	vk.CmdBindDescriptorSets(cmd.Handle, PipelineBindPointRayTracingKHR,
		d.pipeline.PipelineLayout, 0, 1,
		[]vk.DescriptorSet{d.pipeline.DescriptorSet}, 0, nil)

	encoded, err := push.Encode()
	if err != nil {
		cmd.Free(context, context.Device.GraphicsCommandPool)
		core.LogError(err.Error())
		return err
	}
	vk.CmdPushConstants(cmd.Handle, d.pipeline.PipelineLayout,
		vk.ShaderStageFlags(ShaderStageRaygenBitKHR),
		0, uint32(len(encoded)), unsafe.Pointer(&encoded[0]))

	CmdTraceRaysKHR(cmd.Handle,
		&d.sbt.RaygenRegion,
		&d.sbt.MissRegion,
		&d.sbt.HitRegion,
		&d.sbt.CallableRegion,
		d.target.Width, d.target.Height, 1)

	if last {
		d.recordReadbackCopy(cmd)
	}

	return cmd.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

// recordReadbackCopy moves the accumulated image into the linear host-visible
// image and makes the transfer writes visible to the host.
func (d *VulkanSampleDispatcher) recordReadbackCopy(cmd *VulkanCommandBuffer) {
	d.target.RecordLayoutTransition(cmd, vk.ImageLayoutTransferSrcOptimal,
		vk.PipelineStageFlags(PipelineStageRayTracingShaderBitKHR),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.AccessFlags(vk.AccessShaderWriteBit),
		vk.AccessFlags(vk.AccessTransferReadBit))

	d.readback.RecordLayoutTransition(cmd, vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0,
		vk.AccessFlags(vk.AccessTransferWriteBit))

	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		Extent: vk.Extent3D{
			Width:  d.target.Width,
			Height: d.target.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyImage(cmd.Handle,
		d.target.Handle, vk.ImageLayoutTransferSrcOptimal,
		d.readback.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{region})

	d.readback.RecordLayoutTransition(cmd, vk.ImageLayoutGeneral,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageHostBit),
		vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.AccessFlags(vk.AccessHostReadBit))
}
