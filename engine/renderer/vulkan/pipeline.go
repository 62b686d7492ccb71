package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

// Descriptor bindings of the single ray tracing set.
const (
	BindingStorageImage    = 0
	BindingAccelStructure  = 1
	BindingVertexBuffer    = 2
	BindingIndexBuffer     = 3
	descriptorBindingCount = 4
	rayTracingMaxRecursion = 1
)

// RayTracingShaders holds the SPIR-V words for each stage. Raygen is
// mandatory, the other stages are optional.
type RayTracingShaders struct {
	Raygen     []uint32
	Miss       []uint32
	ClosestHit []uint32
}

func (s *RayTracingShaders) GroupCounts() ShaderGroupCounts {
	counts := ShaderGroupCounts{Raygen: 1}
	if len(s.Miss) > 0 {
		counts.Miss = 1
	}
	if len(s.ClosestHit) > 0 {
		counts.Hit = 1
	}
	return counts
}

/**
 * @brief The ray tracing pipeline together with its descriptor machinery.
 * One descriptor set, written once after the scene resources exist.
 */
type VulkanRayTracingPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
	GroupCounts    ShaderGroupCounts

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	DescriptorSet       vk.DescriptorSet

	shaderModules []vk.ShaderModule
}

func NewRayTracingPipeline(context *VulkanContext, shaders *RayTracingShaders) (*VulkanRayTracingPipeline, error) {
	if len(shaders.Raygen) == 0 {
		err := fmt.Errorf("a raygen shader is required")
		core.LogError(err.Error())
		return nil, err
	}
	if context.RayTracingProperties.MaxRayRecursionDepth < rayTracingMaxRecursion {
		err := fmt.Errorf("device supports recursion depth %d, need %d",
			context.RayTracingProperties.MaxRayRecursionDepth, rayTracingMaxRecursion)
		core.LogError(err.Error())
		return nil, err
	}

	p := &VulkanRayTracingPipeline{
		GroupCounts: shaders.GroupCounts(),
	}

	if err := p.createDescriptorSetLayout(context); err != nil {
		return nil, err
	}
	if err := p.createDescriptorPool(context); err != nil {
		p.Destroy(context)
		return nil, err
	}
	if err := p.allocateDescriptorSet(context); err != nil {
		p.Destroy(context)
		return nil, err
	}
	if err := p.createPipelineLayout(context); err != nil {
		p.Destroy(context)
		return nil, err
	}
	if err := p.createPipeline(context, shaders); err != nil {
		p.Destroy(context)
		return nil, err
	}

	core.LogInfo("Ray tracing pipeline created with %d shader group(s).", p.GroupCounts.Total())
	return p, nil
}

// rayTracingDescriptorBindings is the layout of the single descriptor set.
// The geometry buffers are visible to both raygen and closest hit so either
// stage can fetch triangle attributes.
func rayTracingDescriptorBindings() []vk.DescriptorSetLayoutBinding {
	raygenOnly := vk.ShaderStageFlags(ShaderStageRaygenBitKHR)
	raygenAndHit := vk.ShaderStageFlags(ShaderStageRaygenBitKHR | ShaderStageClosestHitBitKHR)

	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:         BindingStorageImage,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			DescriptorCount: 1,
			StageFlags:      raygenOnly,
		},
		{
			Binding:         BindingAccelStructure,
			DescriptorType:  DescriptorTypeAccelerationStructureKHR,
			DescriptorCount: 1,
			StageFlags:      raygenOnly,
		},
		{
			Binding:         BindingVertexBuffer,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      raygenAndHit,
		},
		{
			Binding:         BindingIndexBuffer,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      raygenAndHit,
		},
	}
}

func (p *VulkanRayTracingPipeline) createDescriptorSetLayout(context *VulkanContext) error {
	bindings := rayTracingDescriptorBindings()

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: descriptorBindingCount,
		PBindings:    bindings,
	}

	return lockPool.SafeCall(DescriptorManagement, func() error {
		var layout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create descriptor set layout with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		p.descriptorSetLayout = layout
		return nil
	})
}

func (p *VulkanRayTracingPipeline) createDescriptorPool(context *VulkanContext) error {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 1},
		{Type: DescriptorTypeAccelerationStructureKHR, DescriptorCount: 1},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 2},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       1,
	}

	return lockPool.SafeCall(DescriptorManagement, func() error {
		var pool vk.DescriptorPool
		if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create descriptor pool with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		p.descriptorPool = pool
		return nil
	})
}

func (p *VulkanRayTracingPipeline) allocateDescriptorSet(context *VulkanContext) error {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{p.descriptorSetLayout},
	}

	return lockPool.SafeCall(DescriptorManagement, func() error {
		sets := make([]vk.DescriptorSet, 1)
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to allocate descriptor set with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		p.DescriptorSet = sets[0]
		return nil
	})
}

func (p *VulkanRayTracingPipeline) createPipelineLayout(context *VulkanContext) error {
	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(ShaderStageRaygenBitKHR),
		Offset:     0,
		Size:       PushConstantsSize,
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{p.descriptorSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}

	return lockPool.SafeCall(PipelineManagement, func() error {
		var layout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create pipeline layout with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		p.PipelineLayout = layout
		return nil
	})
}

func (p *VulkanRayTracingPipeline) newShaderModule(context *VulkanContext, words []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(words) * 4),
		PCode:    words,
	}

	var module vk.ShaderModule
	if err := lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to create shader module with error `%s`", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	p.shaderModules = append(p.shaderModules, module)
	return module, nil
}

func (p *VulkanRayTracingPipeline) createPipeline(context *VulkanContext, shaders *RayTracingShaders) error {
	stages := []RayTracingShaderStageKHR{}
	groups := []RayTracingShaderGroupCreateInfoKHR{}

	generalGroup := func(stageIndex uint32) RayTracingShaderGroupCreateInfoKHR {
		return RayTracingShaderGroupCreateInfoKHR{
			Type:               RayTracingShaderGroupTypeGeneralKHR,
			GeneralShader:      stageIndex,
			ClosestHitShader:   ShaderUnusedKHR,
			AnyHitShader:       ShaderUnusedKHR,
			IntersectionShader: ShaderUnusedKHR,
		}
	}

	raygenModule, err := p.newShaderModule(context, shaders.Raygen)
	if err != nil {
		return err
	}
	stages = append(stages, RayTracingShaderStageKHR{
		Stage:  ShaderStageRaygenBitKHR,
		Module: raygenModule,
		Name:   "main",
	})
	groups = append(groups, generalGroup(0))

	if len(shaders.Miss) > 0 {
		missModule, err := p.newShaderModule(context, shaders.Miss)
		if err != nil {
			return err
		}
		stages = append(stages, RayTracingShaderStageKHR{
			Stage:  ShaderStageMissBitKHR,
			Module: missModule,
			Name:   "main",
		})
		groups = append(groups, generalGroup(uint32(len(stages)-1)))
	}

	if len(shaders.ClosestHit) > 0 {
		hitModule, err := p.newShaderModule(context, shaders.ClosestHit)
		if err != nil {
			return err
		}
		stages = append(stages, RayTracingShaderStageKHR{
			Stage:  ShaderStageClosestHitBitKHR,
			Module: hitModule,
			Name:   "main",
		})
		groups = append(groups, RayTracingShaderGroupCreateInfoKHR{
			Type:               RayTracingShaderGroupTypeTrianglesHitGroupKHR,
			GeneralShader:      ShaderUnusedKHR,
			ClosestHitShader:   uint32(len(stages) - 1),
			AnyHitShader:       ShaderUnusedKHR,
			IntersectionShader: ShaderUnusedKHR,
		})
	}

	createInfo := RayTracingPipelineCreateInfoKHR{
		Stages:                       stages,
		Groups:                       groups,
		MaxPipelineRayRecursionDepth: rayTracingMaxRecursion,
		Layout:                       p.PipelineLayout,
	}

	return lockPool.SafeCall(PipelineManagement, func() error {
		pipeline, res := CreateRayTracingPipelinesKHR(context.Device.LogicalDevice, &createInfo)
		if !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create ray tracing pipeline with error `%s`", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		p.Handle = pipeline
		return nil
	})
}

// WriteDescriptors points the single set at the render target, the top level
// structure and the geometry buffers. Called once before dispatching.
func (p *VulkanRayTracingPipeline) WriteDescriptors(context *VulkanContext, target *VulkanImage, tlas AccelerationStructureKHR, vertexBuffer, indexBuffer *VulkanBuffer) error {
	imageInfo := vk.DescriptorImageInfo{
		ImageView:   target.View,
		ImageLayout: vk.ImageLayoutGeneral,
	}

	vertexInfo := vk.DescriptorBufferInfo{
		Buffer: vertexBuffer.Handle,
		Offset: 0,
		Range:  vertexBuffer.TotalSize,
	}
	indexInfo := vk.DescriptorBufferInfo{
		Buffer: indexBuffer.Handle,
		Offset: 0,
		Range:  indexBuffer.TotalSize,
	}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.DescriptorSet,
			DstBinding:      BindingStorageImage,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.DescriptorSet,
			DstBinding:      BindingAccelStructure,
			DescriptorCount: 1,
			DescriptorType:  DescriptorTypeAccelerationStructureKHR,
			PNext:           accelerationStructureDescriptorPNext(tlas),
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.DescriptorSet,
			DstBinding:      BindingVertexBuffer,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{vertexInfo},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.DescriptorSet,
			DstBinding:      BindingIndexBuffer,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{indexInfo},
		},
	}

	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

func (p *VulkanRayTracingPipeline) Destroy(context *VulkanContext) {
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if p.Handle != vk.NullPipeline {
			vk.DestroyPipeline(context.Device.LogicalDevice, p.Handle, context.Allocator)
			p.Handle = vk.NullPipeline
		}
		if p.PipelineLayout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, p.PipelineLayout, context.Allocator)
			p.PipelineLayout = vk.NullPipelineLayout
		}
		for i := len(p.shaderModules) - 1; i >= 0; i-- {
			vk.DestroyShaderModule(context.Device.LogicalDevice, p.shaderModules[i], context.Allocator)
		}
		p.shaderModules = nil
		if p.descriptorPool != vk.NullDescriptorPool {
			vk.DestroyDescriptorPool(context.Device.LogicalDevice, p.descriptorPool, context.Allocator)
			p.descriptorPool = vk.NullDescriptorPool
		}
		if p.descriptorSetLayout != vk.NullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, p.descriptorSetLayout, context.Allocator)
			p.descriptorSetLayout = vk.NullDescriptorSetLayout
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
	}
}
