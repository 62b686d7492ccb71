package vulkan

import (
	"encoding/binary"
	"testing"

	"github.com/spaghettifunk/vortex/engine/math"
)

func TestPushConstantsEncodeSize(t *testing.T) {
	encoded, err := PushConstants{}.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(encoded) != PushConstantsSize {
		t.Errorf("encoded size = %d, want %d", len(encoded), PushConstantsSize)
	}
	if len(encoded)%4 != 0 {
		t.Errorf("encoded size %d is not a multiple of 4", len(encoded))
	}
}

func TestPushConstantsEncodeLayout(t *testing.T) {
	pc := PushConstants{
		CameraOrigin:   math.NewVec3(1, 2, 3),
		CameraFov:      0.5,
		LightDirection: math.NewVec3(-1, -2, -3),
		LightIntensity: 4.0,
		SampleBatch:    7,
		TotalBatches:   32,
	}
	encoded, err := pc.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(encoded[offset:]))
	}

	if readF32(0) != 1 || readF32(4) != 2 || readF32(8) != 3 {
		t.Errorf("camera origin row wrong: %v", encoded[:12])
	}
	if readF32(12) != 0.5 {
		t.Errorf("fov = %f, want 0.5", readF32(12))
	}
	if readF32(16) != -1 || readF32(20) != -2 || readF32(24) != -3 {
		t.Errorf("light direction row wrong")
	}
	if readF32(28) != 4.0 {
		t.Errorf("light intensity = %f, want 4", readF32(28))
	}
	if got := binary.LittleEndian.Uint32(encoded[32:]); got != 7 {
		t.Errorf("sample batch = %d, want 7", got)
	}
	if got := binary.LittleEndian.Uint32(encoded[36:]); got != 32 {
		t.Errorf("total batches = %d, want 32", got)
	}

	// The shader block ends at byte 40; the tail is reserved padding.
	for i := 40; i < PushConstantsSize; i++ {
		if encoded[i] != 0 {
			t.Errorf("padding byte %d = %#x, want 0", i, encoded[i])
		}
	}
}
