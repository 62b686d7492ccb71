package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestRayTracingDescriptorBindings(t *testing.T) {
	bindings := rayTracingDescriptorBindings()
	if len(bindings) != descriptorBindingCount {
		t.Fatalf("got %d bindings, want %d", len(bindings), descriptorBindingCount)
	}

	byBinding := map[uint32]vk.DescriptorSetLayoutBinding{}
	for _, b := range bindings {
		if _, dup := byBinding[b.Binding]; dup {
			t.Fatalf("binding %d declared twice", b.Binding)
		}
		byBinding[b.Binding] = b
	}

	raygenOnly := vk.ShaderStageFlags(ShaderStageRaygenBitKHR)
	raygenAndHit := vk.ShaderStageFlags(ShaderStageRaygenBitKHR | ShaderStageClosestHitBitKHR)

	tests := []struct {
		name       string
		binding    uint32
		wantType   vk.DescriptorType
		wantStages vk.ShaderStageFlags
	}{
		{"storage image", BindingStorageImage, vk.DescriptorTypeStorageImage, raygenOnly},
		{"acceleration structure", BindingAccelStructure, DescriptorTypeAccelerationStructureKHR, raygenOnly},
		{"vertex buffer", BindingVertexBuffer, vk.DescriptorTypeStorageBuffer, raygenAndHit},
		{"index buffer", BindingIndexBuffer, vk.DescriptorTypeStorageBuffer, raygenAndHit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := byBinding[tt.binding]
			if !ok {
				t.Fatalf("binding %d missing", tt.binding)
			}
			if b.DescriptorType != tt.wantType {
				t.Errorf("descriptor type = %d, want %d", b.DescriptorType, tt.wantType)
			}
			if b.DescriptorCount != 1 {
				t.Errorf("descriptor count = %d, want 1", b.DescriptorCount)
			}
			if b.StageFlags != tt.wantStages {
				t.Errorf("stage flags = %#x, want %#x", b.StageFlags, tt.wantStages)
			}
		})
	}
}

func TestShaderGroupCounts(t *testing.T) {
	full := RayTracingShaders{
		Raygen:     []uint32{1},
		Miss:       []uint32{2},
		ClosestHit: []uint32{3},
	}
	counts := full.GroupCounts()
	if counts != (ShaderGroupCounts{Raygen: 1, Miss: 1, Hit: 1}) {
		t.Errorf("full shader set produced counts %+v", counts)
	}

	raygenOnly := RayTracingShaders{Raygen: []uint32{1}}
	counts = raygenOnly.GroupCounts()
	if counts != (ShaderGroupCounts{Raygen: 1}) {
		t.Errorf("raygen-only shader set produced counts %+v", counts)
	}
}
