package vulkan

import (
	"bytes"
	"testing"
)

func TestComputeSBTLayoutStride(t *testing.T) {
	tests := []struct {
		name       string
		props      RayTracingProperties
		wantStride uint32
	}{
		{
			name: "handle smaller than base alignment rounds up",
			props: RayTracingProperties{
				ShaderGroupHandleSize:      32,
				ShaderGroupBaseAlignment:   64,
				ShaderGroupHandleAlignment: 32,
			},
			wantStride: 64,
		},
		{
			name: "handle equal to base alignment stays",
			props: RayTracingProperties{
				ShaderGroupHandleSize:      64,
				ShaderGroupBaseAlignment:   64,
				ShaderGroupHandleAlignment: 32,
			},
			wantStride: 64,
		},
		{
			name: "handle exceeding base alignment takes two units",
			props: RayTracingProperties{
				ShaderGroupHandleSize:      48,
				ShaderGroupBaseAlignment:   32,
				ShaderGroupHandleAlignment: 16,
			},
			wantStride: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := ComputeSBTLayout(tt.props, ShaderGroupCounts{Raygen: 1})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if layout.Stride != tt.wantStride {
				t.Errorf("stride = %d, want %d", layout.Stride, tt.wantStride)
			}
		})
	}
}

func TestComputeSBTLayoutRegions(t *testing.T) {
	props := RayTracingProperties{
		ShaderGroupHandleSize:      32,
		ShaderGroupBaseAlignment:   64,
		ShaderGroupHandleAlignment: 32,
	}
	counts := ShaderGroupCounts{Raygen: 1, Miss: 1, Hit: 1}

	layout, err := ComputeSBTLayout(props, counts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The raygen region size must equal its stride.
	if layout.Raygen.Size != layout.Raygen.Stride {
		t.Errorf("raygen size %d != stride %d", layout.Raygen.Size, layout.Raygen.Stride)
	}
	if layout.Raygen.Offset != 0 {
		t.Errorf("raygen offset = %d, want 0", layout.Raygen.Offset)
	}
	if layout.Miss.Offset != 64 {
		t.Errorf("miss offset = %d, want 64", layout.Miss.Offset)
	}
	if layout.Hit.Offset != 128 {
		t.Errorf("hit offset = %d, want 128", layout.Hit.Offset)
	}
	// Empty callable region keeps offset and stride but has zero size.
	if layout.Callable.Size != 0 {
		t.Errorf("callable size = %d, want 0", layout.Callable.Size)
	}
	if layout.Callable.Stride != 64 {
		t.Errorf("callable stride = %d, want 64", layout.Callable.Stride)
	}
	if layout.TotalSize != 192 {
		t.Errorf("total size = %d, want 192", layout.TotalSize)
	}
}

func TestComputeSBTLayoutErrors(t *testing.T) {
	good := RayTracingProperties{
		ShaderGroupHandleSize:      32,
		ShaderGroupBaseAlignment:   64,
		ShaderGroupHandleAlignment: 32,
	}

	tests := []struct {
		name   string
		props  RayTracingProperties
		counts ShaderGroupCounts
	}{
		{
			name:   "no raygen group",
			props:  good,
			counts: ShaderGroupCounts{},
		},
		{
			name:   "two raygen groups",
			props:  good,
			counts: ShaderGroupCounts{Raygen: 2},
		},
		{
			name: "base alignment not a multiple of handle alignment",
			props: RayTracingProperties{
				ShaderGroupHandleSize:      32,
				ShaderGroupBaseAlignment:   48,
				ShaderGroupHandleAlignment: 32,
			},
			counts: ShaderGroupCounts{Raygen: 1},
		},
		{
			name: "stride exceeds device maximum",
			props: RayTracingProperties{
				ShaderGroupHandleSize:      32,
				ShaderGroupBaseAlignment:   64,
				ShaderGroupHandleAlignment: 32,
				MaxShaderGroupStride:       32,
			},
			counts: ShaderGroupCounts{Raygen: 1},
		},
		{
			name:   "zero limits",
			props:  RayTracingProperties{},
			counts: ShaderGroupCounts{Raygen: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeSBTLayout(tt.props, tt.counts); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestPackHandlesSpreadsAtStride(t *testing.T) {
	handles := []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}
	packed, err := PackHandles(handles, 4, 8, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packed) != 16 {
		t.Fatalf("packed length = %d, want 16", len(packed))
	}
	if !bytes.Equal(packed[0:4], handles[0:4]) {
		t.Errorf("first record = %v, want %v", packed[0:4], handles[0:4])
	}
	if !bytes.Equal(packed[4:8], []byte{0, 0, 0, 0}) {
		t.Errorf("padding after first record not zero: %v", packed[4:8])
	}
	if !bytes.Equal(packed[8:12], handles[4:8]) {
		t.Errorf("second record = %v, want %v", packed[8:12], handles[4:8])
	}
}

func TestPackHandlesErrors(t *testing.T) {
	if _, err := PackHandles([]byte{1, 2, 3}, 4, 8, 1); err == nil {
		t.Error("expected error for short handle blob")
	}
	if _, err := PackHandles([]byte{1, 2, 3, 4}, 4, 2, 1); err == nil {
		t.Error("expected error for stride smaller than handle size")
	}
}

func TestShaderGroupCountsTotal(t *testing.T) {
	counts := ShaderGroupCounts{Raygen: 1, Miss: 2, Hit: 3, Callable: 4}
	if got := counts.Total(); got != 10 {
		t.Errorf("Total() = %d, want 10", got)
	}
}
