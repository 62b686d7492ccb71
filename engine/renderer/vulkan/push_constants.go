package vulkan

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/vortex/engine/math"
)

// PushConstantsSize is the encoded size handed to the pipeline layout. Two
// full 16 byte rows (camera, light) plus the two batch counters; the
// shader's std430 block ends at byte 40, so the last 8 bytes are padding and
// any new field must land at offset 40.
const PushConstantsSize = 48

/**
 * @brief Per-dispatch shader arguments. The encoded layout mirrors the
 * std430 push constant block in the raygen shader, with vec3 fields padded
 * out to 16 bytes by their trailing scalar.
 */
type PushConstants struct {
	CameraOrigin math.Vec3
	CameraFov    float32

	LightDirection math.Vec3
	LightIntensity float32

	SampleBatch  uint32
	TotalBatches uint32
}

// Encode serializes the block little-endian. Push constant sizes must be a
// multiple of 4 bytes.
func (p PushConstants) Encode() ([]byte, error) {
	out := make([]byte, PushConstantsSize)

	putF32 := func(offset int, f float32) {
		binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(f))
	}

	putF32(0, p.CameraOrigin.X)
	putF32(4, p.CameraOrigin.Y)
	putF32(8, p.CameraOrigin.Z)
	putF32(12, p.CameraFov)

	putF32(16, p.LightDirection.X)
	putF32(20, p.LightDirection.Y)
	putF32(24, p.LightDirection.Z)
	putF32(28, p.LightIntensity)

	binary.LittleEndian.PutUint32(out[32:], p.SampleBatch)
	binary.LittleEndian.PutUint32(out[36:], p.TotalBatches)

	if len(out)%4 != 0 {
		return nil, fmt.Errorf("push constant block of %d bytes is not a multiple of 4", len(out))
	}
	return out, nil
}
