package vulkan

import (
	"testing"
)

// The shim declares its own copies of the extension structs, so their layout
// must match what the driver expects on LP64 platforms. These values come
// straight from vulkan_core.h compiled for x86-64.
func TestAccelerationStructureStructLayouts(t *testing.T) {
	expectedSizes := map[string]uintptr{
		"VkStridedDeviceAddressRegionKHR":                  24,
		"VkAccelerationStructureBuildRangeInfoKHR":         16,
		"VkAccelerationStructureGeometryTrianglesDataKHR":  64,
		"VkAccelerationStructureGeometryInstancesDataKHR":  32,
		"VkAccelerationStructureGeometryKHR":               96,
		"VkAccelerationStructureBuildGeometryInfoKHR":      80,
		"VkAccelerationStructureBuildSizesInfoKHR":         40,
		"VkAccelerationStructureCreateInfoKHR":             64,
		"VkAccelerationStructureDeviceAddressInfoKHR":      24,
		"VkCopyAccelerationStructureInfoKHR":               40,
		"VkBufferDeviceAddressInfo":                        24,
		"VkMemoryAllocateFlagsInfo":                        24,
		"VkPipelineShaderStageCreateInfo":                  48,
		"VkRayTracingShaderGroupCreateInfoKHR":             48,
		"VkRayTracingPipelineCreateInfoKHR":                104,
		"VkWriteDescriptorSetAccelerationStructureKHR":     32,
		"VkPhysicalDeviceRayTracingPipelinePropertiesKHR":  48,
		"VkPhysicalDeviceRayTracingPipelineFeaturesKHR":    40,
		"VkPhysicalDeviceAccelerationStructureFeaturesKHR": 40,
		"VkPhysicalDeviceBufferDeviceAddressFeatures":      32,
		"VkPhysicalDeviceProperties2Shim":                  840,
	}
	if len(khrStructSizes) != len(expectedSizes) {
		t.Errorf("struct size table has %d entries, want %d", len(khrStructSizes), len(expectedSizes))
	}
	for name, want := range expectedSizes {
		if got := khrStructSizes[name]; got != want {
			t.Errorf("sizeof(%s) = %d, want %d", name, got, want)
		}
	}

	expectedOffsets := map[string]uintptr{
		"VkAccelerationStructureBuildGeometryInfoKHR.pGeometries": 56,
		"VkAccelerationStructureBuildGeometryInfoKHR.scratchData": 72,
		"VkAccelerationStructureGeometryKHR.geometry":             24,
		"VkAccelerationStructureCreateInfoKHR.deviceAddress":      56,
		"VkRayTracingPipelineCreateInfoKHR.layout":                80,
	}
	for name, want := range expectedOffsets {
		if got := khrFieldOffsets[name]; got != want {
			t.Errorf("offsetof(%s) = %d, want %d", name, got, want)
		}
	}
}

func TestGeometryTypeSelection(t *testing.T) {
	triangles := AccelerationStructureGeometryKHR{
		Triangles: &AccelerationStructureGeometryTrianglesDataKHR{},
	}
	geomType, err := triangles.geometryType()
	if err != nil {
		t.Fatalf("triangles geometry: %v", err)
	}
	if geomType != GeometryTypeTrianglesKHR {
		t.Errorf("triangles geometry resolved to type %d", geomType)
	}

	instances := AccelerationStructureGeometryKHR{
		Instances: &AccelerationStructureGeometryInstancesDataKHR{},
	}
	geomType, err = instances.geometryType()
	if err != nil {
		t.Fatalf("instances geometry: %v", err)
	}
	if geomType != GeometryTypeInstancesKHR {
		t.Errorf("instances geometry resolved to type %d", geomType)
	}

	var empty AccelerationStructureGeometryKHR
	if _, err := empty.geometryType(); err == nil {
		t.Error("empty geometry should be rejected")
	}

	both := AccelerationStructureGeometryKHR{
		Triangles: &AccelerationStructureGeometryTrianglesDataKHR{},
		Instances: &AccelerationStructureGeometryInstancesDataKHR{},
	}
	if _, err := both.geometryType(); err == nil {
		t.Error("geometry with both payloads should be rejected")
	}
}
