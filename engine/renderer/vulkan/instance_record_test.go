package vulkan

import (
	"encoding/binary"
	"testing"

	"github.com/spaghettifunk/vortex/engine/math"
)

func identityTransform() math.TransformMatrix {
	return math.NewMat4Identity().ToTransformMatrix()
}

func TestEncodeInstancesRecordSize(t *testing.T) {
	instances := []AccelerationInstance{
		{Transform: identityTransform(), Mask: 0xFF, BlasAddress: 0x1000},
		{Transform: identityTransform(), Mask: 0xFF, BlasAddress: 0x2000},
	}
	records, err := EncodeInstances(instances)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2*InstanceRecordSize {
		t.Errorf("encoded length = %d, want %d", len(records), 2*InstanceRecordSize)
	}
}

func TestEncodeInstancesPackedWords(t *testing.T) {
	inst := AccelerationInstance{
		Transform:           identityTransform(),
		CustomIndex:         0x123456,
		Mask:                0xAB,
		ShaderBindingOffset: 0x654321,
		Flags:               InstanceTriangleFacingCullDisable | InstanceForceOpaque,
		BlasAddress:         0xDEADBEEF12345678,
	}
	records, err := EncodeInstances([]AccelerationInstance{inst})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	word0 := binary.LittleEndian.Uint32(records[48:])
	if word0 != 0x123456|0xAB<<24 {
		t.Errorf("custom index/mask word = %#x, want %#x", word0, uint32(0x123456|0xAB<<24))
	}

	word1 := binary.LittleEndian.Uint32(records[52:])
	wantFlags := InstanceTriangleFacingCullDisable | InstanceForceOpaque
	if word1 != 0x654321|wantFlags<<24 {
		t.Errorf("binding offset/flags word = %#x, want %#x", word1, 0x654321|wantFlags<<24)
	}

	address := binary.LittleEndian.Uint64(records[56:])
	if address != inst.BlasAddress {
		t.Errorf("address = %#x, want %#x", address, inst.BlasAddress)
	}
}

func TestEncodeInstancesTransformLayout(t *testing.T) {
	// Translation (2,3,4) lands in the fourth column of the row-major 3x4.
	world := math.NewMat4Translation(math.NewVec3(2, 3, 4))
	inst := AccelerationInstance{
		Transform:   world.ToTransformMatrix(),
		Mask:        0xFF,
		BlasAddress: 1,
	}
	records, err := EncodeInstances([]AccelerationInstance{inst})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(records[offset:]))
	}

	// Row r occupies bytes [r*16, r*16+16); the translation is its last float.
	if got := readF32(12); got != 2 {
		t.Errorf("row 0 translation = %f, want 2", got)
	}
	if got := readF32(16 + 12); got != 3 {
		t.Errorf("row 1 translation = %f, want 3", got)
	}
	if got := readF32(32 + 12); got != 4 {
		t.Errorf("row 2 translation = %f, want 4", got)
	}
	// Diagonal ones.
	if got := readF32(0); got != 1 {
		t.Errorf("row 0 col 0 = %f, want 1", got)
	}
	if got := readF32(16 + 4); got != 1 {
		t.Errorf("row 1 col 1 = %f, want 1", got)
	}
	if got := readF32(32 + 8); got != 1 {
		t.Errorf("row 2 col 2 = %f, want 1", got)
	}
}

func TestEncodeInstancesValidation(t *testing.T) {
	tests := []struct {
		name string
		inst AccelerationInstance
	}{
		{
			name: "custom index exceeds 24 bits",
			inst: AccelerationInstance{CustomIndex: 1 << 24, Mask: 0xFF, BlasAddress: 1},
		},
		{
			name: "binding offset exceeds 24 bits",
			inst: AccelerationInstance{ShaderBindingOffset: 1 << 24, Mask: 0xFF, BlasAddress: 1},
		},
		{
			name: "mask exceeds 8 bits",
			inst: AccelerationInstance{Mask: 0x100, BlasAddress: 1},
		},
		{
			name: "flags exceed 8 bits",
			inst: AccelerationInstance{Mask: 0xFF, Flags: 0x100, BlasAddress: 1},
		},
		{
			name: "zero structure address",
			inst: AccelerationInstance{Mask: 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.inst.Transform = identityTransform()
			if _, err := EncodeInstances([]AccelerationInstance{tt.inst}); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestBlasInputValidate(t *testing.T) {
	buffer := &VulkanBuffer{}
	good := BlasInput{
		VertexBuffer: buffer,
		VertexCount:  3,
		VertexStride: 12,
		IndexBuffer:  buffer,
		IndexCount:   3,
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}

	noVertices := good
	noVertices.VertexCount = 0
	if err := noVertices.Validate(); err == nil {
		t.Error("expected error for zero vertices")
	}

	badIndices := good
	badIndices.IndexCount = 4
	if err := badIndices.Validate(); err == nil {
		t.Error("expected error for index count not a multiple of 3")
	}

	zeroStride := good
	zeroStride.VertexStride = 0
	if err := zeroStride.Validate(); err == nil {
		t.Error("expected error for zero vertex stride")
	}
}
