package vulkan

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

// Minimal local declarations mirroring vulkan_core.h. Only what the shim
// commands below touch; everything else keeps going through the core binding.

typedef struct VkInstance_T* VkInstance;
typedef struct VkPhysicalDevice_T* VkPhysicalDevice;
typedef struct VkDevice_T* VkDevice;
typedef struct VkCommandBuffer_T* VkCommandBuffer;

typedef uint64_t VkBuffer;
typedef uint64_t VkPipeline;
typedef uint64_t VkPipelineCache;
typedef uint64_t VkPipelineLayout;
typedef uint64_t VkShaderModule;
typedef uint64_t VkQueryPool;
typedef uint64_t VkAccelerationStructureKHR;
typedef uint64_t VkDeferredOperationKHR;

typedef uint32_t VkFlags;
typedef uint32_t VkBool32;
typedef uint64_t VkDeviceSize;
typedef uint64_t VkDeviceAddress;
typedef int32_t  VkResult;
typedef int32_t  VkStructureType;
typedef int32_t  VkFormat;
typedef int32_t  VkIndexType;
typedef int32_t  VkQueryType;
typedef int32_t  VkAccelerationStructureTypeKHR;
typedef int32_t  VkAccelerationStructureBuildTypeKHR;
typedef int32_t  VkBuildAccelerationStructureModeKHR;
typedef int32_t  VkGeometryTypeKHR;
typedef int32_t  VkCopyAccelerationStructureModeKHR;
typedef int32_t  VkRayTracingShaderGroupTypeKHR;
typedef int32_t  VkShaderStageFlagBits;
typedef VkFlags  VkBuildAccelerationStructureFlagsKHR;
typedef VkFlags  VkGeometryFlagsKHR;
typedef VkFlags  VkAccelerationStructureCreateFlagsKHR;
typedef VkFlags  VkPipelineCreateFlags;
typedef VkFlags  VkPipelineShaderStageCreateFlags;
typedef VkFlags  VkMemoryAllocateFlags;

typedef union VkDeviceOrHostAddressConstKHR {
	VkDeviceAddress deviceAddress;
	const void*     hostAddress;
} VkDeviceOrHostAddressConstKHR;

typedef union VkDeviceOrHostAddressKHR {
	VkDeviceAddress deviceAddress;
	void*           hostAddress;
} VkDeviceOrHostAddressKHR;

typedef struct VkStridedDeviceAddressRegionKHR {
	VkDeviceAddress deviceAddress;
	VkDeviceSize    stride;
	VkDeviceSize    size;
} VkStridedDeviceAddressRegionKHR;

typedef struct VkAccelerationStructureBuildRangeInfoKHR {
	uint32_t primitiveCount;
	uint32_t primitiveOffset;
	uint32_t firstVertex;
	uint32_t transformOffset;
} VkAccelerationStructureBuildRangeInfoKHR;

typedef struct VkAccelerationStructureGeometryTrianglesDataKHR {
	VkStructureType               sType;
	const void*                   pNext;
	VkFormat                      vertexFormat;
	VkDeviceOrHostAddressConstKHR vertexData;
	VkDeviceSize                  vertexStride;
	uint32_t                      maxVertex;
	VkIndexType                   indexType;
	VkDeviceOrHostAddressConstKHR indexData;
	VkDeviceOrHostAddressConstKHR transformData;
} VkAccelerationStructureGeometryTrianglesDataKHR;

typedef struct VkAccelerationStructureGeometryAabbsDataKHR {
	VkStructureType               sType;
	const void*                   pNext;
	VkDeviceOrHostAddressConstKHR data;
	VkDeviceSize                  stride;
} VkAccelerationStructureGeometryAabbsDataKHR;

typedef struct VkAccelerationStructureGeometryInstancesDataKHR {
	VkStructureType               sType;
	const void*                   pNext;
	VkBool32                      arrayOfPointers;
	VkDeviceOrHostAddressConstKHR data;
} VkAccelerationStructureGeometryInstancesDataKHR;

typedef union VkAccelerationStructureGeometryDataKHR {
	VkAccelerationStructureGeometryTrianglesDataKHR triangles;
	VkAccelerationStructureGeometryAabbsDataKHR     aabbs;
	VkAccelerationStructureGeometryInstancesDataKHR instances;
} VkAccelerationStructureGeometryDataKHR;

typedef struct VkAccelerationStructureGeometryKHR {
	VkStructureType                        sType;
	const void*                            pNext;
	VkGeometryTypeKHR                      geometryType;
	VkAccelerationStructureGeometryDataKHR geometry;
	VkGeometryFlagsKHR                     flags;
} VkAccelerationStructureGeometryKHR;

typedef struct VkAccelerationStructureBuildGeometryInfoKHR {
	VkStructureType                                  sType;
	const void*                                      pNext;
	VkAccelerationStructureTypeKHR                   type;
	VkBuildAccelerationStructureFlagsKHR             flags;
	VkBuildAccelerationStructureModeKHR              mode;
	VkAccelerationStructureKHR                       srcAccelerationStructure;
	VkAccelerationStructureKHR                       dstAccelerationStructure;
	uint32_t                                         geometryCount;
	const VkAccelerationStructureGeometryKHR*        pGeometries;
	const VkAccelerationStructureGeometryKHR* const* ppGeometries;
	VkDeviceOrHostAddressKHR                         scratchData;
} VkAccelerationStructureBuildGeometryInfoKHR;

typedef struct VkAccelerationStructureBuildSizesInfoKHR {
	VkStructureType sType;
	const void*     pNext;
	VkDeviceSize    accelerationStructureSize;
	VkDeviceSize    updateScratchSize;
	VkDeviceSize    buildScratchSize;
} VkAccelerationStructureBuildSizesInfoKHR;

typedef struct VkAccelerationStructureCreateInfoKHR {
	VkStructureType                       sType;
	const void*                           pNext;
	VkAccelerationStructureCreateFlagsKHR createFlags;
	VkBuffer                              buffer;
	VkDeviceSize                          offset;
	VkDeviceSize                          size;
	VkAccelerationStructureTypeKHR        type;
	VkDeviceAddress                       deviceAddress;
} VkAccelerationStructureCreateInfoKHR;

typedef struct VkAccelerationStructureDeviceAddressInfoKHR {
	VkStructureType            sType;
	const void*                pNext;
	VkAccelerationStructureKHR accelerationStructure;
} VkAccelerationStructureDeviceAddressInfoKHR;

typedef struct VkCopyAccelerationStructureInfoKHR {
	VkStructureType                    sType;
	const void*                        pNext;
	VkAccelerationStructureKHR         src;
	VkAccelerationStructureKHR         dst;
	VkCopyAccelerationStructureModeKHR mode;
} VkCopyAccelerationStructureInfoKHR;

typedef struct VkBufferDeviceAddressInfo {
	VkStructureType sType;
	const void*     pNext;
	VkBuffer        buffer;
} VkBufferDeviceAddressInfo;

typedef struct VkMemoryAllocateFlagsInfo {
	VkStructureType       sType;
	const void*           pNext;
	VkMemoryAllocateFlags flags;
	uint32_t              deviceMask;
} VkMemoryAllocateFlagsInfo;

typedef struct VkPipelineShaderStageCreateInfo {
	VkStructureType                  sType;
	const void*                      pNext;
	VkPipelineShaderStageCreateFlags flags;
	VkShaderStageFlagBits            stage;
	VkShaderModule                   module;
	const char*                      pName;
	const void*                      pSpecializationInfo;
} VkPipelineShaderStageCreateInfo;

typedef struct VkRayTracingShaderGroupCreateInfoKHR {
	VkStructureType                sType;
	const void*                    pNext;
	VkRayTracingShaderGroupTypeKHR type;
	uint32_t                       generalShader;
	uint32_t                       closestHitShader;
	uint32_t                       anyHitShader;
	uint32_t                       intersectionShader;
	const void*                    pShaderGroupCaptureReplayHandle;
} VkRayTracingShaderGroupCreateInfoKHR;

typedef struct VkRayTracingPipelineCreateInfoKHR {
	VkStructureType                             sType;
	const void*                                 pNext;
	VkPipelineCreateFlags                       flags;
	uint32_t                                    stageCount;
	const VkPipelineShaderStageCreateInfo*      pStages;
	uint32_t                                    groupCount;
	const VkRayTracingShaderGroupCreateInfoKHR* pGroups;
	uint32_t                                    maxPipelineRayRecursionDepth;
	const void*                                 pLibraryInfo;
	const void*                                 pLibraryInterface;
	const void*                                 pDynamicState;
	VkPipelineLayout                            layout;
	VkPipeline                                  basePipelineHandle;
	int32_t                                     basePipelineIndex;
} VkRayTracingPipelineCreateInfoKHR;

typedef struct VkWriteDescriptorSetAccelerationStructureKHR {
	VkStructureType                   sType;
	const void*                       pNext;
	uint32_t                          accelerationStructureCount;
	const VkAccelerationStructureKHR* pAccelerationStructures;
} VkWriteDescriptorSetAccelerationStructureKHR;

typedef struct VkPhysicalDeviceRayTracingPipelinePropertiesKHR {
	VkStructureType sType;
	void*           pNext;
	uint32_t        shaderGroupHandleSize;
	uint32_t        maxRayRecursionDepth;
	uint32_t        maxShaderGroupStride;
	uint32_t        shaderGroupBaseAlignment;
	uint32_t        shaderGroupHandleCaptureReplaySize;
	uint32_t        maxRayDispatchInvocationCount;
	uint32_t        shaderGroupHandleAlignment;
	uint32_t        maxRayHitAttributeSize;
} VkPhysicalDeviceRayTracingPipelinePropertiesKHR;

typedef struct VkPhysicalDeviceRayTracingPipelineFeaturesKHR {
	VkStructureType sType;
	void*           pNext;
	VkBool32        rayTracingPipeline;
	VkBool32        rayTracingPipelineShaderGroupHandleCaptureReplay;
	VkBool32        rayTracingPipelineShaderGroupHandleCaptureReplayMixed;
	VkBool32        rayTracingPipelineTraceRaysIndirect;
	VkBool32        rayTraversalPrimitiveCulling;
} VkPhysicalDeviceRayTracingPipelineFeaturesKHR;

typedef struct VkPhysicalDeviceAccelerationStructureFeaturesKHR {
	VkStructureType sType;
	void*           pNext;
	VkBool32        accelerationStructure;
	VkBool32        accelerationStructureCaptureReplay;
	VkBool32        accelerationStructureIndirectBuild;
	VkBool32        accelerationStructureHostCommands;
	VkBool32        descriptorBindingAccelerationStructureUpdateAfterBind;
} VkPhysicalDeviceAccelerationStructureFeaturesKHR;

typedef struct VkPhysicalDeviceBufferDeviceAddressFeatures {
	VkStructureType sType;
	void*           pNext;
	VkBool32        bufferDeviceAddress;
	VkBool32        bufferDeviceAddressCaptureReplay;
	VkBool32        bufferDeviceAddressMultiDevice;
} VkPhysicalDeviceBufferDeviceAddressFeatures;

// sizeof(VkPhysicalDeviceProperties) is 824 on LP64; the blob keeps the query
// struct ABI correct without declaring the full limits block.
typedef struct VkPhysicalDeviceProperties2Shim {
	VkStructureType sType;
	void*           pNext;
	unsigned char   properties[824];
} VkPhysicalDeviceProperties2Shim;

typedef void (*PFN_vkVoidFunction)(void);
typedef PFN_vkVoidFunction (*PFN_vkGetInstanceProcAddr)(VkInstance, const char*);
typedef PFN_vkVoidFunction (*PFN_vkGetDeviceProcAddr)(VkDevice, const char*);
typedef void (*PFN_vkGetPhysicalDeviceProperties2)(VkPhysicalDevice, VkPhysicalDeviceProperties2Shim*);
typedef VkDeviceAddress (*PFN_vkGetBufferDeviceAddress)(VkDevice, const VkBufferDeviceAddressInfo*);
typedef VkResult (*PFN_vkCreateAccelerationStructureKHR)(VkDevice, const VkAccelerationStructureCreateInfoKHR*, const void*, VkAccelerationStructureKHR*);
typedef void (*PFN_vkDestroyAccelerationStructureKHR)(VkDevice, VkAccelerationStructureKHR, const void*);
typedef void (*PFN_vkGetAccelerationStructureBuildSizesKHR)(VkDevice, VkAccelerationStructureBuildTypeKHR, const VkAccelerationStructureBuildGeometryInfoKHR*, const uint32_t*, VkAccelerationStructureBuildSizesInfoKHR*);
typedef VkDeviceAddress (*PFN_vkGetAccelerationStructureDeviceAddressKHR)(VkDevice, const VkAccelerationStructureDeviceAddressInfoKHR*);
typedef void (*PFN_vkCmdBuildAccelerationStructuresKHR)(VkCommandBuffer, uint32_t, const VkAccelerationStructureBuildGeometryInfoKHR*, const VkAccelerationStructureBuildRangeInfoKHR* const*);
typedef void (*PFN_vkCmdWriteAccelerationStructuresPropertiesKHR)(VkCommandBuffer, uint32_t, const VkAccelerationStructureKHR*, VkQueryType, VkQueryPool, uint32_t);
typedef void (*PFN_vkCmdCopyAccelerationStructureKHR)(VkCommandBuffer, const VkCopyAccelerationStructureInfoKHR*);
typedef VkResult (*PFN_vkCreateRayTracingPipelinesKHR)(VkDevice, VkDeferredOperationKHR, VkPipelineCache, uint32_t, const VkRayTracingPipelineCreateInfoKHR*, const void*, VkPipeline*);
typedef VkResult (*PFN_vkGetRayTracingShaderGroupHandlesKHR)(VkDevice, VkPipeline, uint32_t, uint32_t, size_t, void*);
typedef void (*PFN_vkCmdTraceRaysKHR)(VkCommandBuffer, const VkStridedDeviceAddressRegionKHR*, const VkStridedDeviceAddressRegionKHR*, const VkStridedDeviceAddressRegionKHR*, const VkStridedDeviceAddressRegionKHR*, uint32_t, uint32_t, uint32_t);

static PFN_vkGetInstanceProcAddr shim_getInstanceProcAddr = NULL;
static PFN_vkGetPhysicalDeviceProperties2 shim_getPhysicalDeviceProperties2 = NULL;
static PFN_vkGetBufferDeviceAddress shim_getBufferDeviceAddress = NULL;
static PFN_vkCreateAccelerationStructureKHR shim_createAccelerationStructure = NULL;
static PFN_vkDestroyAccelerationStructureKHR shim_destroyAccelerationStructure = NULL;
static PFN_vkGetAccelerationStructureBuildSizesKHR shim_getAccelerationStructureBuildSizes = NULL;
static PFN_vkGetAccelerationStructureDeviceAddressKHR shim_getAccelerationStructureDeviceAddress = NULL;
static PFN_vkCmdBuildAccelerationStructuresKHR shim_cmdBuildAccelerationStructures = NULL;
static PFN_vkCmdWriteAccelerationStructuresPropertiesKHR shim_cmdWriteAccelerationStructuresProperties = NULL;
static PFN_vkCmdCopyAccelerationStructureKHR shim_cmdCopyAccelerationStructure = NULL;
static PFN_vkCreateRayTracingPipelinesKHR shim_createRayTracingPipelines = NULL;
static PFN_vkGetRayTracingShaderGroupHandlesKHR shim_getRayTracingShaderGroupHandles = NULL;
static PFN_vkCmdTraceRaysKHR shim_cmdTraceRays = NULL;

static void shimSetLoader(void* loader) {
	shim_getInstanceProcAddr = (PFN_vkGetInstanceProcAddr)loader;
}

static int shimLoadCommands(VkInstance instance, VkDevice device) {
	if (shim_getInstanceProcAddr == NULL) {
		return 0;
	}
	PFN_vkGetDeviceProcAddr getDeviceProcAddr =
		(PFN_vkGetDeviceProcAddr)shim_getInstanceProcAddr(instance, "vkGetDeviceProcAddr");
	if (getDeviceProcAddr == NULL) {
		return 0;
	}
	shim_getPhysicalDeviceProperties2 =
		(PFN_vkGetPhysicalDeviceProperties2)shim_getInstanceProcAddr(instance, "vkGetPhysicalDeviceProperties2");
	shim_getBufferDeviceAddress =
		(PFN_vkGetBufferDeviceAddress)getDeviceProcAddr(device, "vkGetBufferDeviceAddress");
	if (shim_getBufferDeviceAddress == NULL) {
		shim_getBufferDeviceAddress =
			(PFN_vkGetBufferDeviceAddress)getDeviceProcAddr(device, "vkGetBufferDeviceAddressKHR");
	}
	shim_createAccelerationStructure =
		(PFN_vkCreateAccelerationStructureKHR)getDeviceProcAddr(device, "vkCreateAccelerationStructureKHR");
	shim_destroyAccelerationStructure =
		(PFN_vkDestroyAccelerationStructureKHR)getDeviceProcAddr(device, "vkDestroyAccelerationStructureKHR");
	shim_getAccelerationStructureBuildSizes =
		(PFN_vkGetAccelerationStructureBuildSizesKHR)getDeviceProcAddr(device, "vkGetAccelerationStructureBuildSizesKHR");
	shim_getAccelerationStructureDeviceAddress =
		(PFN_vkGetAccelerationStructureDeviceAddressKHR)getDeviceProcAddr(device, "vkGetAccelerationStructureDeviceAddressKHR");
	shim_cmdBuildAccelerationStructures =
		(PFN_vkCmdBuildAccelerationStructuresKHR)getDeviceProcAddr(device, "vkCmdBuildAccelerationStructuresKHR");
	shim_cmdWriteAccelerationStructuresProperties =
		(PFN_vkCmdWriteAccelerationStructuresPropertiesKHR)getDeviceProcAddr(device, "vkCmdWriteAccelerationStructuresPropertiesKHR");
	shim_cmdCopyAccelerationStructure =
		(PFN_vkCmdCopyAccelerationStructureKHR)getDeviceProcAddr(device, "vkCmdCopyAccelerationStructureKHR");
	shim_createRayTracingPipelines =
		(PFN_vkCreateRayTracingPipelinesKHR)getDeviceProcAddr(device, "vkCreateRayTracingPipelinesKHR");
	shim_getRayTracingShaderGroupHandles =
		(PFN_vkGetRayTracingShaderGroupHandlesKHR)getDeviceProcAddr(device, "vkGetRayTracingShaderGroupHandlesKHR");
	shim_cmdTraceRays =
		(PFN_vkCmdTraceRaysKHR)getDeviceProcAddr(device, "vkCmdTraceRaysKHR");
	return shim_getPhysicalDeviceProperties2 != NULL
		&& shim_getBufferDeviceAddress != NULL
		&& shim_createAccelerationStructure != NULL
		&& shim_destroyAccelerationStructure != NULL
		&& shim_getAccelerationStructureBuildSizes != NULL
		&& shim_getAccelerationStructureDeviceAddress != NULL
		&& shim_cmdBuildAccelerationStructures != NULL
		&& shim_cmdWriteAccelerationStructuresProperties != NULL
		&& shim_cmdCopyAccelerationStructure != NULL
		&& shim_createRayTracingPipelines != NULL
		&& shim_getRayTracingShaderGroupHandles != NULL
		&& shim_cmdTraceRays != NULL;
}

static void* shimRayTracingFeatureChain(void) {
	static VkPhysicalDeviceRayTracingPipelineFeaturesKHR rtPipelineFeatures;
	static VkPhysicalDeviceAccelerationStructureFeaturesKHR accelFeatures;
	static VkPhysicalDeviceBufferDeviceAddressFeatures addressFeatures;
	memset(&rtPipelineFeatures, 0, sizeof(rtPipelineFeatures));
	rtPipelineFeatures.sType = 1000347000; // ..RAY_TRACING_PIPELINE_FEATURES_KHR
	rtPipelineFeatures.rayTracingPipeline = 1;
	memset(&accelFeatures, 0, sizeof(accelFeatures));
	accelFeatures.sType = 1000150013; // ..ACCELERATION_STRUCTURE_FEATURES_KHR
	accelFeatures.pNext = &rtPipelineFeatures;
	accelFeatures.accelerationStructure = 1;
	memset(&addressFeatures, 0, sizeof(addressFeatures));
	addressFeatures.sType = 1000257000; // ..BUFFER_DEVICE_ADDRESS_FEATURES
	addressFeatures.pNext = &accelFeatures;
	addressFeatures.bufferDeviceAddress = 1;
	return &addressFeatures;
}

static void* shimMemoryAllocateDeviceAddressInfo(void) {
	static VkMemoryAllocateFlagsInfo allocFlags;
	memset(&allocFlags, 0, sizeof(allocFlags));
	allocFlags.sType = 1000060000; // ..MEMORY_ALLOCATE_FLAGS_INFO
	allocFlags.flags = 0x00000002; // VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT
	return &allocFlags;
}

// Valid until the next call; the engine writes its single set once.
static void* shimWriteDescriptorSetAccelerationStructure(VkAccelerationStructureKHR structure) {
	static VkAccelerationStructureKHR heldStructure;
	static VkWriteDescriptorSetAccelerationStructureKHR info;
	heldStructure = structure;
	memset(&info, 0, sizeof(info));
	info.sType = 1000150007; // ..WRITE_DESCRIPTOR_SET_ACCELERATION_STRUCTURE_KHR
	info.accelerationStructureCount = 1;
	info.pAccelerationStructures = &heldStructure;
	return &info;
}

static void shimGetPhysicalDeviceRayTracingProperties(VkPhysicalDevice gpu, VkPhysicalDeviceRayTracingPipelinePropertiesKHR* out) {
	VkPhysicalDeviceProperties2Shim props;
	memset(&props, 0, sizeof(props));
	memset(out, 0, sizeof(*out));
	out->sType = 1000347001; // ..RAY_TRACING_PIPELINE_PROPERTIES_KHR
	props.sType = 1000059001; // ..PHYSICAL_DEVICE_PROPERTIES_2
	props.pNext = out;
	shim_getPhysicalDeviceProperties2(gpu, &props);
}

static VkDeviceAddress shimGetBufferDeviceAddress(VkDevice device, VkBuffer buffer) {
	VkBufferDeviceAddressInfo info;
	memset(&info, 0, sizeof(info));
	info.sType = 1000244001; // ..BUFFER_DEVICE_ADDRESS_INFO
	info.buffer = buffer;
	return shim_getBufferDeviceAddress(device, &info);
}

static VkResult shimCreateAccelerationStructure(VkDevice device, const VkAccelerationStructureCreateInfoKHR* info, VkAccelerationStructureKHR* structure) {
	return shim_createAccelerationStructure(device, info, NULL, structure);
}

static void shimDestroyAccelerationStructure(VkDevice device, VkAccelerationStructureKHR structure) {
	shim_destroyAccelerationStructure(device, structure, NULL);
}

static void shimGetAccelerationStructureBuildSizes(VkDevice device, const VkAccelerationStructureBuildGeometryInfoKHR* info, const uint32_t* primitiveCounts, VkAccelerationStructureBuildSizesInfoKHR* sizes) {
	memset(sizes, 0, sizeof(*sizes));
	sizes->sType = 1000150020; // ..BUILD_SIZES_INFO_KHR
	// 1 = VK_ACCELERATION_STRUCTURE_BUILD_TYPE_DEVICE_KHR
	shim_getAccelerationStructureBuildSizes(device, 1, info, primitiveCounts, sizes);
}

static VkDeviceAddress shimGetAccelerationStructureDeviceAddress(VkDevice device, VkAccelerationStructureKHR structure) {
	VkAccelerationStructureDeviceAddressInfoKHR info;
	memset(&info, 0, sizeof(info));
	info.sType = 1000150002; // ..DEVICE_ADDRESS_INFO_KHR
	info.accelerationStructure = structure;
	return shim_getAccelerationStructureDeviceAddress(device, &info);
}

static void shimCmdBuildAccelerationStructures(VkCommandBuffer cb, const VkAccelerationStructureBuildGeometryInfoKHR* info, const VkAccelerationStructureBuildRangeInfoKHR* ranges) {
	const VkAccelerationStructureBuildRangeInfoKHR* rangeList[1] = { ranges };
	shim_cmdBuildAccelerationStructures(cb, 1, info, rangeList);
}

static void shimCmdWriteAccelerationStructuresProperties(VkCommandBuffer cb, uint32_t count, const VkAccelerationStructureKHR* structures, VkQueryType queryType, VkQueryPool pool, uint32_t firstQuery) {
	shim_cmdWriteAccelerationStructuresProperties(cb, count, structures, queryType, pool, firstQuery);
}

static void shimCmdCopyAccelerationStructure(VkCommandBuffer cb, VkAccelerationStructureKHR src, VkAccelerationStructureKHR dst, VkCopyAccelerationStructureModeKHR mode) {
	VkCopyAccelerationStructureInfoKHR info;
	memset(&info, 0, sizeof(info));
	info.sType = 1000150010; // ..COPY_ACCELERATION_STRUCTURE_INFO_KHR
	info.src = src;
	info.dst = dst;
	info.mode = mode;
	shim_cmdCopyAccelerationStructure(cb, &info);
}

static VkResult shimCreateRayTracingPipelines(VkDevice device, const VkRayTracingPipelineCreateInfoKHR* info, VkPipeline* pipeline) {
	return shim_createRayTracingPipelines(device, 0, 0, 1, info, NULL, pipeline);
}

static VkResult shimGetRayTracingShaderGroupHandles(VkDevice device, VkPipeline pipeline, uint32_t firstGroup, uint32_t groupCount, size_t dataSize, void* data) {
	return shim_getRayTracingShaderGroupHandles(device, pipeline, firstGroup, groupCount, dataSize, data);
}

static void shimCmdTraceRays(VkCommandBuffer cb, const VkStridedDeviceAddressRegionKHR* raygen, const VkStridedDeviceAddressRegionKHR* miss, const VkStridedDeviceAddressRegionKHR* hit, const VkStridedDeviceAddressRegionKHR* callable, uint32_t width, uint32_t height, uint32_t depth) {
	shim_cmdTraceRays(cb, raygen, miss, hit, callable, width, height, depth);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

// Structure type values for the structs marshalled on the Go side.
const (
	stypePipelineShaderStageCreateInfo              = 18
	stypeAccelerationStructureBuildGeometryInfoKHR  = 1000150000
	stypeAccelerationStructureGeometryInstancesKHR  = 1000150004
	stypeAccelerationStructureGeometryTrianglesKHR  = 1000150005
	stypeAccelerationStructureGeometryKHR           = 1000150006
	stypeRayTracingPipelineCreateInfoKHR            = 1000150015
	stypeRayTracingShaderGroupCreateInfoKHR         = 1000150016
	stypeAccelerationStructureCreateInfoKHR         = 1000150017
)

func cInstance(i vk.Instance) C.VkInstance {
	return C.VkInstance(unsafe.Pointer(i))
}

func cPhysicalDevice(d vk.PhysicalDevice) C.VkPhysicalDevice {
	return C.VkPhysicalDevice(unsafe.Pointer(d))
}

func cDevice(d vk.Device) C.VkDevice {
	return C.VkDevice(unsafe.Pointer(d))
}

func cCommandBuffer(c vk.CommandBuffer) C.VkCommandBuffer {
	return C.VkCommandBuffer(unsafe.Pointer(c))
}

// Non-dispatchable handles are reinterpreted through memory so the conversion
// holds for both the pointer and the integer handle representations.
func cBuffer(b vk.Buffer) C.VkBuffer             { return C.VkBuffer(*(*uint64)(unsafe.Pointer(&b))) }
func cPipeline(p vk.Pipeline) C.VkPipeline       { return C.VkPipeline(*(*uint64)(unsafe.Pointer(&p))) }
func cQueryPool(q vk.QueryPool) C.VkQueryPool    { return C.VkQueryPool(*(*uint64)(unsafe.Pointer(&q))) }
func cShaderModule(m vk.ShaderModule) C.VkShaderModule {
	return C.VkShaderModule(*(*uint64)(unsafe.Pointer(&m)))
}
func cPipelineLayout(l vk.PipelineLayout) C.VkPipelineLayout {
	return C.VkPipelineLayout(*(*uint64)(unsafe.Pointer(&l)))
}

func goPipeline(h C.VkPipeline) vk.Pipeline {
	var pipeline vk.Pipeline
	*(*uint64)(unsafe.Pointer(&pipeline)) = uint64(h)
	return pipeline
}

// LoadRayTracingCommands resolves the acceleration structure, ray tracing
// pipeline and buffer device address entry points through the same
// vkGetInstanceProcAddr that GLFW hands the core binding. Call once after
// device creation, before any of the wrappers below.
func LoadRayTracingCommands(instance vk.Instance, device vk.Device) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("vkGetInstanceProcAddr is nil; platform startup must run first")
		core.LogError(err.Error())
		return err
	}
	C.shimSetLoader(procAddr)
	if C.shimLoadCommands(cInstance(instance), cDevice(device)) == 0 {
		err := fmt.Errorf("failed to resolve the ray tracing device commands")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func rayTracingFeaturePNext() unsafe.Pointer {
	return C.shimRayTracingFeatureChain()
}

func memoryAllocateDeviceAddressPNext() unsafe.Pointer {
	return C.shimMemoryAllocateDeviceAddressInfo()
}

func accelerationStructureDescriptorPNext(structure AccelerationStructureKHR) unsafe.Pointer {
	return C.shimWriteDescriptorSetAccelerationStructure(C.VkAccelerationStructureKHR(structure))
}

func GetPhysicalDeviceRayTracingPipelinePropertiesKHR(gpu vk.PhysicalDevice) PhysicalDeviceRayTracingPipelinePropertiesKHR {
	var cProps C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR
	C.shimGetPhysicalDeviceRayTracingProperties(cPhysicalDevice(gpu), &cProps)
	return PhysicalDeviceRayTracingPipelinePropertiesKHR{
		ShaderGroupHandleSize:              uint32(cProps.shaderGroupHandleSize),
		MaxRayRecursionDepth:               uint32(cProps.maxRayRecursionDepth),
		MaxShaderGroupStride:               uint32(cProps.maxShaderGroupStride),
		ShaderGroupBaseAlignment:           uint32(cProps.shaderGroupBaseAlignment),
		ShaderGroupHandleCaptureReplaySize: uint32(cProps.shaderGroupHandleCaptureReplaySize),
		MaxRayDispatchInvocationCount:      uint32(cProps.maxRayDispatchInvocationCount),
		ShaderGroupHandleAlignment:         uint32(cProps.shaderGroupHandleAlignment),
		MaxRayHitAttributeSize:             uint32(cProps.maxRayHitAttributeSize),
	}
}

func GetBufferDeviceAddressKHR(device vk.Device, buffer vk.Buffer) DeviceAddress {
	return DeviceAddress(C.shimGetBufferDeviceAddress(cDevice(device), cBuffer(buffer)))
}

func CreateAccelerationStructureKHR(device vk.Device, info *AccelerationStructureCreateInfoKHR) (AccelerationStructureKHR, vk.Result) {
	var cInfo C.VkAccelerationStructureCreateInfoKHR
	cInfo.sType = stypeAccelerationStructureCreateInfoKHR
	cInfo.buffer = cBuffer(info.Buffer)
	cInfo.offset = C.VkDeviceSize(info.Offset)
	cInfo.size = C.VkDeviceSize(info.Size)
	cInfo._type = C.VkAccelerationStructureTypeKHR(info.Type)
	var structure C.VkAccelerationStructureKHR
	res := C.shimCreateAccelerationStructure(cDevice(device), &cInfo, &structure)
	return AccelerationStructureKHR(structure), vk.Result(res)
}

func DestroyAccelerationStructureKHR(device vk.Device, structure AccelerationStructureKHR) {
	C.shimDestroyAccelerationStructure(cDevice(device), C.VkAccelerationStructureKHR(structure))
}

func GetAccelerationStructureDeviceAddressKHR(device vk.Device, structure AccelerationStructureKHR) DeviceAddress {
	return DeviceAddress(C.shimGetAccelerationStructureDeviceAddress(cDevice(device), C.VkAccelerationStructureKHR(structure)))
}

func (g *AccelerationStructureGeometryKHR) toC(out *C.VkAccelerationStructureGeometryKHR) error {
	geometryType, err := g.geometryType()
	if err != nil {
		return err
	}
	*out = C.VkAccelerationStructureGeometryKHR{}
	out.sType = stypeAccelerationStructureGeometryKHR
	out.geometryType = C.VkGeometryTypeKHR(geometryType)
	out.flags = C.VkGeometryFlagsKHR(g.Flags)
	switch geometryType {
	case GeometryTypeTrianglesKHR:
		tri := (*C.VkAccelerationStructureGeometryTrianglesDataKHR)(unsafe.Pointer(&out.geometry))
		tri.sType = stypeAccelerationStructureGeometryTrianglesKHR
		tri.vertexFormat = C.VkFormat(g.Triangles.VertexFormat)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.vertexData)) = C.VkDeviceAddress(g.Triangles.VertexData)
		tri.vertexStride = C.VkDeviceSize(g.Triangles.VertexStride)
		tri.maxVertex = C.uint32_t(g.Triangles.MaxVertex)
		tri.indexType = C.VkIndexType(g.Triangles.IndexType)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.indexData)) = C.VkDeviceAddress(g.Triangles.IndexData)
	case GeometryTypeInstancesKHR:
		inst := (*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&out.geometry))
		inst.sType = stypeAccelerationStructureGeometryInstancesKHR
		inst.arrayOfPointers = 0
		*(*C.VkDeviceAddress)(unsafe.Pointer(&inst.data)) = C.VkDeviceAddress(g.Instances.Data)
	}
	return nil
}

// toC marshals the build info; the geometry array lives in C memory so the
// info struct may sit on the Go stack. The release func frees it.
func (info *AccelerationStructureBuildGeometryInfoKHR) toC(out *C.VkAccelerationStructureBuildGeometryInfoKHR) (func(), error) {
	if len(info.Geometries) == 0 {
		return nil, fmt.Errorf("acceleration structure build needs at least one geometry")
	}
	geomMem := C.calloc(C.size_t(len(info.Geometries)), C.sizeof_VkAccelerationStructureGeometryKHR)
	geoms := unsafe.Slice((*C.VkAccelerationStructureGeometryKHR)(geomMem), len(info.Geometries))
	for i := range info.Geometries {
		if err := info.Geometries[i].toC(&geoms[i]); err != nil {
			C.free(geomMem)
			return nil, err
		}
	}
	*out = C.VkAccelerationStructureBuildGeometryInfoKHR{}
	out.sType = stypeAccelerationStructureBuildGeometryInfoKHR
	out._type = C.VkAccelerationStructureTypeKHR(info.Type)
	out.flags = C.VkBuildAccelerationStructureFlagsKHR(info.Flags)
	out.mode = C.VkBuildAccelerationStructureModeKHR(info.Mode)
	out.dstAccelerationStructure = C.VkAccelerationStructureKHR(info.DstAccelerationStructure)
	out.geometryCount = C.uint32_t(len(info.Geometries))
	out.pGeometries = (*C.VkAccelerationStructureGeometryKHR)(geomMem)
	*(*C.VkDeviceAddress)(unsafe.Pointer(&out.scratchData)) = C.VkDeviceAddress(info.ScratchData)
	return func() { C.free(geomMem) }, nil
}

func GetAccelerationStructureBuildSizesKHR(device vk.Device, info *AccelerationStructureBuildGeometryInfoKHR, primitiveCounts []uint32) (AccelerationStructureBuildSizesInfoKHR, error) {
	var sizes AccelerationStructureBuildSizesInfoKHR
	if len(primitiveCounts) != len(info.Geometries) {
		return sizes, fmt.Errorf("primitive count entries (%d) must match geometry count (%d)",
			len(primitiveCounts), len(info.Geometries))
	}
	var cInfo C.VkAccelerationStructureBuildGeometryInfoKHR
	release, err := info.toC(&cInfo)
	if err != nil {
		return sizes, err
	}
	defer release()
	var cSizes C.VkAccelerationStructureBuildSizesInfoKHR
	C.shimGetAccelerationStructureBuildSizes(cDevice(device), &cInfo,
		(*C.uint32_t)(unsafe.Pointer(&primitiveCounts[0])), &cSizes)
	sizes.AccelerationStructureSize = vk.DeviceSize(cSizes.accelerationStructureSize)
	sizes.UpdateScratchSize = vk.DeviceSize(cSizes.updateScratchSize)
	sizes.BuildScratchSize = vk.DeviceSize(cSizes.buildScratchSize)
	return sizes, nil
}

// CmdBuildAccelerationStructuresKHR records a single structure build. One
// range entry is required per geometry.
func CmdBuildAccelerationStructuresKHR(cmd vk.CommandBuffer, info *AccelerationStructureBuildGeometryInfoKHR, ranges []AccelerationStructureBuildRangeInfoKHR) error {
	if len(ranges) != len(info.Geometries) {
		return fmt.Errorf("range entries (%d) must match geometry count (%d)", len(ranges), len(info.Geometries))
	}
	var cInfo C.VkAccelerationStructureBuildGeometryInfoKHR
	release, err := info.toC(&cInfo)
	if err != nil {
		return err
	}
	defer release()
	cRanges := make([]C.VkAccelerationStructureBuildRangeInfoKHR, len(ranges))
	for i, r := range ranges {
		cRanges[i] = C.VkAccelerationStructureBuildRangeInfoKHR{
			primitiveCount:  C.uint32_t(r.PrimitiveCount),
			primitiveOffset: C.uint32_t(r.PrimitiveOffset),
			firstVertex:     C.uint32_t(r.FirstVertex),
			transformOffset: C.uint32_t(r.TransformOffset),
		}
	}
	C.shimCmdBuildAccelerationStructures(cCommandBuffer(cmd), &cInfo, &cRanges[0])
	return nil
}

func CmdWriteAccelerationStructuresPropertiesKHR(cmd vk.CommandBuffer, structures []AccelerationStructureKHR, queryType vk.QueryType, pool vk.QueryPool, firstQuery uint32) {
	if len(structures) == 0 {
		return
	}
	cStructures := make([]C.VkAccelerationStructureKHR, len(structures))
	for i, s := range structures {
		cStructures[i] = C.VkAccelerationStructureKHR(s)
	}
	C.shimCmdWriteAccelerationStructuresProperties(cCommandBuffer(cmd),
		C.uint32_t(len(structures)), &cStructures[0],
		C.VkQueryType(queryType), cQueryPool(pool), C.uint32_t(firstQuery))
}

func CmdCopyAccelerationStructureKHR(cmd vk.CommandBuffer, src, dst AccelerationStructureKHR, mode CopyAccelerationStructureModeKHR) {
	C.shimCmdCopyAccelerationStructure(cCommandBuffer(cmd),
		C.VkAccelerationStructureKHR(src), C.VkAccelerationStructureKHR(dst),
		C.VkCopyAccelerationStructureModeKHR(mode))
}

func CreateRayTracingPipelinesKHR(device vk.Device, info *RayTracingPipelineCreateInfoKHR) (vk.Pipeline, vk.Result) {
	stageMem := C.calloc(C.size_t(len(info.Stages)), C.sizeof_VkPipelineShaderStageCreateInfo)
	stages := unsafe.Slice((*C.VkPipelineShaderStageCreateInfo)(stageMem), len(info.Stages))
	names := make([]*C.char, len(info.Stages))
	for i, s := range info.Stages {
		names[i] = C.CString(s.Name)
		stages[i].sType = stypePipelineShaderStageCreateInfo
		stages[i].stage = C.VkShaderStageFlagBits(s.Stage)
		stages[i].module = cShaderModule(s.Module)
		stages[i].pName = names[i]
	}

	groupMem := C.calloc(C.size_t(len(info.Groups)), C.sizeof_VkRayTracingShaderGroupCreateInfoKHR)
	groups := unsafe.Slice((*C.VkRayTracingShaderGroupCreateInfoKHR)(groupMem), len(info.Groups))
	for i, g := range info.Groups {
		groups[i].sType = stypeRayTracingShaderGroupCreateInfoKHR
		groups[i]._type = C.VkRayTracingShaderGroupTypeKHR(g.Type)
		groups[i].generalShader = C.uint32_t(g.GeneralShader)
		groups[i].closestHitShader = C.uint32_t(g.ClosestHitShader)
		groups[i].anyHitShader = C.uint32_t(g.AnyHitShader)
		groups[i].intersectionShader = C.uint32_t(g.IntersectionShader)
	}

	var cInfo C.VkRayTracingPipelineCreateInfoKHR
	cInfo.sType = stypeRayTracingPipelineCreateInfoKHR
	cInfo.stageCount = C.uint32_t(len(info.Stages))
	cInfo.pStages = (*C.VkPipelineShaderStageCreateInfo)(stageMem)
	cInfo.groupCount = C.uint32_t(len(info.Groups))
	cInfo.pGroups = (*C.VkRayTracingShaderGroupCreateInfoKHR)(groupMem)
	cInfo.maxPipelineRayRecursionDepth = C.uint32_t(info.MaxPipelineRayRecursionDepth)
	cInfo.layout = cPipelineLayout(info.Layout)

	var cPipe C.VkPipeline
	res := C.shimCreateRayTracingPipelines(cDevice(device), &cInfo, &cPipe)

	for _, name := range names {
		C.free(unsafe.Pointer(name))
	}
	C.free(stageMem)
	C.free(groupMem)

	return goPipeline(cPipe), vk.Result(res)
}

func GetRayTracingShaderGroupHandlesKHR(device vk.Device, pipeline vk.Pipeline, firstGroup, groupCount uint32, data []byte) vk.Result {
	if len(data) == 0 {
		return vk.ErrorInitializationFailed
	}
	return vk.Result(C.shimGetRayTracingShaderGroupHandles(cDevice(device), cPipeline(pipeline),
		C.uint32_t(firstGroup), C.uint32_t(groupCount),
		C.size_t(len(data)), unsafe.Pointer(&data[0])))
}

func CmdTraceRaysKHR(cmd vk.CommandBuffer, raygen, miss, hit, callable *StridedDeviceAddressRegionKHR, width, height, depth uint32) {
	C.shimCmdTraceRays(cCommandBuffer(cmd),
		(*C.VkStridedDeviceAddressRegionKHR)(unsafe.Pointer(raygen)),
		(*C.VkStridedDeviceAddressRegionKHR)(unsafe.Pointer(miss)),
		(*C.VkStridedDeviceAddressRegionKHR)(unsafe.Pointer(hit)),
		(*C.VkStridedDeviceAddressRegionKHR)(unsafe.Pointer(callable)),
		C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

// Sizes and offsets of the locally declared structs. Each must match the
// Vulkan C ABI exactly or every call through the shim would corrupt memory;
// the layout tests pin them.
var khrStructSizes = map[string]uintptr{
	"VkStridedDeviceAddressRegionKHR":                   unsafe.Sizeof(C.VkStridedDeviceAddressRegionKHR{}),
	"VkAccelerationStructureBuildRangeInfoKHR":          unsafe.Sizeof(C.VkAccelerationStructureBuildRangeInfoKHR{}),
	"VkAccelerationStructureGeometryTrianglesDataKHR":   unsafe.Sizeof(C.VkAccelerationStructureGeometryTrianglesDataKHR{}),
	"VkAccelerationStructureGeometryInstancesDataKHR":   unsafe.Sizeof(C.VkAccelerationStructureGeometryInstancesDataKHR{}),
	"VkAccelerationStructureGeometryKHR":                unsafe.Sizeof(C.VkAccelerationStructureGeometryKHR{}),
	"VkAccelerationStructureBuildGeometryInfoKHR":       unsafe.Sizeof(C.VkAccelerationStructureBuildGeometryInfoKHR{}),
	"VkAccelerationStructureBuildSizesInfoKHR":          unsafe.Sizeof(C.VkAccelerationStructureBuildSizesInfoKHR{}),
	"VkAccelerationStructureCreateInfoKHR":              unsafe.Sizeof(C.VkAccelerationStructureCreateInfoKHR{}),
	"VkAccelerationStructureDeviceAddressInfoKHR":       unsafe.Sizeof(C.VkAccelerationStructureDeviceAddressInfoKHR{}),
	"VkCopyAccelerationStructureInfoKHR":                unsafe.Sizeof(C.VkCopyAccelerationStructureInfoKHR{}),
	"VkBufferDeviceAddressInfo":                         unsafe.Sizeof(C.VkBufferDeviceAddressInfo{}),
	"VkMemoryAllocateFlagsInfo":                         unsafe.Sizeof(C.VkMemoryAllocateFlagsInfo{}),
	"VkPipelineShaderStageCreateInfo":                   unsafe.Sizeof(C.VkPipelineShaderStageCreateInfo{}),
	"VkRayTracingShaderGroupCreateInfoKHR":              unsafe.Sizeof(C.VkRayTracingShaderGroupCreateInfoKHR{}),
	"VkRayTracingPipelineCreateInfoKHR":                 unsafe.Sizeof(C.VkRayTracingPipelineCreateInfoKHR{}),
	"VkWriteDescriptorSetAccelerationStructureKHR":      unsafe.Sizeof(C.VkWriteDescriptorSetAccelerationStructureKHR{}),
	"VkPhysicalDeviceRayTracingPipelinePropertiesKHR":   unsafe.Sizeof(C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR{}),
	"VkPhysicalDeviceRayTracingPipelineFeaturesKHR":     unsafe.Sizeof(C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR{}),
	"VkPhysicalDeviceAccelerationStructureFeaturesKHR":  unsafe.Sizeof(C.VkPhysicalDeviceAccelerationStructureFeaturesKHR{}),
	"VkPhysicalDeviceBufferDeviceAddressFeatures":       unsafe.Sizeof(C.VkPhysicalDeviceBufferDeviceAddressFeatures{}),
	"VkPhysicalDeviceProperties2Shim":                   unsafe.Sizeof(C.VkPhysicalDeviceProperties2Shim{}),
}

var khrFieldOffsets = func() map[string]uintptr {
	var build C.VkAccelerationStructureBuildGeometryInfoKHR
	var geometry C.VkAccelerationStructureGeometryKHR
	var create C.VkAccelerationStructureCreateInfoKHR
	var pipeline C.VkRayTracingPipelineCreateInfoKHR
	return map[string]uintptr{
		"VkAccelerationStructureBuildGeometryInfoKHR.pGeometries": unsafe.Offsetof(build.pGeometries),
		"VkAccelerationStructureBuildGeometryInfoKHR.scratchData": unsafe.Offsetof(build.scratchData),
		"VkAccelerationStructureGeometryKHR.geometry":             unsafe.Offsetof(geometry.geometry),
		"VkAccelerationStructureCreateInfoKHR.deviceAddress":      unsafe.Offsetof(create.deviceAddress),
		"VkRayTracingPipelineCreateInfoKHR.layout":                unsafe.Offsetof(pipeline.layout),
	}
}()
