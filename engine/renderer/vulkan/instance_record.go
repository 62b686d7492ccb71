package vulkan

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/vortex/engine/math"
)

// InstanceRecordSize is the wire size of one acceleration structure instance
// as consumed by the device during a top level build.
const InstanceRecordSize = 64

// Instance flag bits as encoded in the high byte of the second packed word.
const (
	InstanceTriangleFacingCullDisable uint32 = 0x01
	InstanceTriangleFlipFacing        uint32 = 0x02
	InstanceForceOpaque               uint32 = 0x04
	InstanceForceNoOpaque             uint32 = 0x08
)

/**
 * @brief One placed copy of a bottom level structure inside the top level
 * structure. CustomIndex and ShaderBindingOffset are 24-bit fields on the
 * device; EncodeInstances rejects values that do not fit.
 */
type AccelerationInstance struct {
	Transform           math.TransformMatrix
	CustomIndex         uint32
	Mask                uint32
	ShaderBindingOffset uint32
	Flags               uint32
	BlasAddress         uint64
}

// EncodeInstances packs instances into the 64 byte per-record device layout:
// a 4x3 row-major transform, two bit-packed words and the bottom level
// structure address. The record layout has to be produced by hand because the
// device format uses C bitfields.
func EncodeInstances(instances []AccelerationInstance) ([]byte, error) {
	out := make([]byte, 0, len(instances)*InstanceRecordSize)
	for idx, inst := range instances {
		if inst.CustomIndex > 0xFFFFFF {
			return nil, fmt.Errorf("instance %d: custom index %d exceeds 24 bits", idx, inst.CustomIndex)
		}
		if inst.ShaderBindingOffset > 0xFFFFFF {
			return nil, fmt.Errorf("instance %d: shader binding offset %d exceeds 24 bits", idx, inst.ShaderBindingOffset)
		}
		if inst.Mask > 0xFF {
			return nil, fmt.Errorf("instance %d: visibility mask %d exceeds 8 bits", idx, inst.Mask)
		}
		if inst.Flags > 0xFF {
			return nil, fmt.Errorf("instance %d: flags %#x exceed 8 bits", idx, inst.Flags)
		}
		if inst.BlasAddress == 0 {
			return nil, fmt.Errorf("instance %d: bottom level structure address is zero", idx)
		}

		var record [InstanceRecordSize]byte
		offset := 0
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				bits := math.Float32bits(inst.Transform.Rows[row][col])
				binary.LittleEndian.PutUint32(record[offset:], bits)
				offset += 4
			}
		}
		binary.LittleEndian.PutUint32(record[48:], inst.CustomIndex|inst.Mask<<24)
		binary.LittleEndian.PutUint32(record[52:], inst.ShaderBindingOffset|inst.Flags<<24)
		binary.LittleEndian.PutUint64(record[56:], inst.BlasAddress)

		out = append(out, record[:]...)
	}
	return out, nil
}
