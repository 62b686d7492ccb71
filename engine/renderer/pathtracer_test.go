package renderer

import (
	"testing"

	"github.com/spaghettifunk/vortex/engine/renderer/vulkan"
)

func TestPlaceInstancesCount(t *testing.T) {
	tests := []struct {
		halfExtent int32
		want       int
	}{
		{0, 1},
		{1, 9},
		{10, 441},
	}
	for _, tt := range tests {
		instances := PlaceInstances(tt.halfExtent, 1, 0x1000)
		if len(instances) != tt.want {
			t.Errorf("half extent %d: %d instances, want %d", tt.halfExtent, len(instances), tt.want)
		}
	}
}

func TestPlaceInstancesDeterministic(t *testing.T) {
	a := PlaceInstances(3, 42, 0x1000)
	b := PlaceInstances(3, 42, 0x1000)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("instance %d differs between runs with the same seed", i)
		}
	}
}

func TestPlaceInstancesSeedChangesJitter(t *testing.T) {
	a := PlaceInstances(1, 1, 0x1000)
	b := PlaceInstances(1, 2, 0x1000)
	same := true
	for i := range a {
		if a[i].Transform != b[i].Transform {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical placements")
	}
}

func TestPlaceInstancesFields(t *testing.T) {
	instances := PlaceInstances(1, 7, 0xABCD)
	for i, inst := range instances {
		if inst.Mask != 0xFF {
			t.Errorf("instance %d mask = %#x, want 0xFF", i, inst.Mask)
		}
		if inst.Flags != vulkan.InstanceTriangleFacingCullDisable {
			t.Errorf("instance %d flags = %#x, want cull disable", i, inst.Flags)
		}
		if inst.BlasAddress != 0xABCD {
			t.Errorf("instance %d address = %#x, want 0xABCD", i, inst.BlasAddress)
		}
		if inst.CustomIndex != uint32(i) {
			t.Errorf("instance %d custom index = %d", i, inst.CustomIndex)
		}
	}

	// All records must survive encoding.
	if _, err := vulkan.EncodeInstances(instances); err != nil {
		t.Errorf("placement produced unencodable instances: %v", err)
	}
}

func TestPlaceInstancesGridAnchors(t *testing.T) {
	instances := PlaceInstances(1, 5, 1)

	// The object point (0,1,0) is recentered onto the origin before the
	// jitter rotation and scale, so every copy maps it exactly onto its grid
	// coordinate regardless of seed.
	apply := func(rows [3][4]float32, x, y, z float32) (float32, float32, float32) {
		return rows[0][0]*x + rows[0][1]*y + rows[0][2]*z + rows[0][3],
			rows[1][0]*x + rows[1][1]*y + rows[1][2]*z + rows[1][3],
			rows[2][0]*x + rows[2][1]*y + rows[2][2]*z + rows[2][3]
	}

	almost := func(a, b float32) bool {
		d := a - b
		if d < 0 {
			d = -d
		}
		return d < 1e-5
	}

	gx, gy, gz := apply(instances[0].Transform.Rows, 0, 1, 0)
	if !almost(gx, -1) || !almost(gy, -1) || !almost(gz, 0) {
		t.Errorf("first anchor = (%f, %f, %f), want (-1, -1, 0)", gx, gy, gz)
	}
	gx, gy, gz = apply(instances[len(instances)-1].Transform.Rows, 0, 1, 0)
	if !almost(gx, 1) || !almost(gy, 1) || !almost(gz, 0) {
		t.Errorf("last anchor = (%f, %f, %f), want (1, 1, 0)", gx, gy, gz)
	}
}
