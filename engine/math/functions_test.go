package math

import (
	"testing"
)

func almostEqual(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-5
}

func TestMat4TranslationTransformsPoint(t *testing.T) {
	mt := NewMat4Translation(NewVec3(1, 2, 3))
	got := NewVec3(0, 0, 0).Transform(mt)
	want := NewVec3(1, 2, 3)
	if !almostEqual(got.X, want.X) || !almostEqual(got.Y, want.Y) || !almostEqual(got.Z, want.Z) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestMat4MulAppliesRightFirst(t *testing.T) {
	// scale then translate: point (1,1,1) -> (2,2,2) -> (3,2,2)
	translate := NewMat4Translation(NewVec3(1, 0, 0))
	scale := NewMat4Scale(NewVec3(2, 2, 2))
	combined := translate.Mul(scale)

	got := NewVec3(1, 1, 1).Transform(combined)
	want := NewVec3(3, 2, 2)
	if !almostEqual(got.X, want.X) || !almostEqual(got.Y, want.Y) || !almostEqual(got.Z, want.Z) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestMat4IdentityMul(t *testing.T) {
	id := NewMat4Identity()
	mt := NewMat4Translation(NewVec3(4, 5, 6))
	got := id.Mul(mt)
	if got != mt {
		t.Errorf("identity multiplication changed the matrix: %+v", got)
	}
}

func TestToTransformMatrixRowMajor(t *testing.T) {
	mt := NewMat4Translation(NewVec3(7, 8, 9))
	tm := mt.ToTransformMatrix()

	// Translation lands in the last column of each row.
	if tm.Rows[0][3] != 7 || tm.Rows[1][3] != 8 || tm.Rows[2][3] != 9 {
		t.Errorf("translation column wrong: %+v", tm.Rows)
	}
	// Diagonal stays identity.
	if tm.Rows[0][0] != 1 || tm.Rows[1][1] != 1 || tm.Rows[2][2] != 1 {
		t.Errorf("rotation block wrong: %+v", tm.Rows)
	}
}

func TestVec3Normalized(t *testing.T) {
	v := NewVec3(3, 0, 4).Normalized()
	if !almostEqual(v.Length(), 1.0) {
		t.Errorf("normalized length = %f, want 1", v.Length())
	}

	zero := NewVec3Zero().Normalized()
	if zero != NewVec3Zero() {
		t.Errorf("normalizing zero vector changed it: %+v", zero)
	}
}

func TestRunningAverage(t *testing.T) {
	tests := []struct {
		name        string
		accumulated float32
		sample      float32
		frameIndex  uint32
		want        float32
	}{
		{"first frame takes the sample", 0.0, 5.0, 0, 5.0},
		{"second frame averages evenly", 1.0, 3.0, 1, 2.0},
		{"fourth frame weighs by a quarter", 2.0, 6.0, 3, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunningAverage(tt.accumulated, tt.sample, tt.frameIndex)
			if !almostEqual(got, tt.want) {
				t.Errorf("RunningAverage(%f, %f, %d) = %f, want %f",
					tt.accumulated, tt.sample, tt.frameIndex, got, tt.want)
			}
		})
	}
}

func TestRunningAverageMatchesFullMean(t *testing.T) {
	samples := []float32{1, 4, 2, 8, 5, 7}
	var accumulated float32
	var sum float32
	for i, s := range samples {
		accumulated = RunningAverage(accumulated, s, uint32(i))
		sum += s
	}
	want := sum / float32(len(samples))
	if !almostEqual(accumulated, want) {
		t.Errorf("running average = %f, full mean = %f", accumulated, want)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		value     uint32
		alignment uint32
		want      uint32
	}{
		{0, 64, 0},
		{1, 64, 64},
		{32, 64, 64},
		{64, 64, 64},
		{65, 64, 128},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.value, tt.alignment); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.value, tt.alignment, got, tt.want)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	if got := CeilDiv(7, 3); got != 3 {
		t.Errorf("CeilDiv(7, 3) = %d, want 3", got)
	}
	if got := CeilDiv(6, 3); got != 2 {
		t.Errorf("CeilDiv(6, 3) = %d, want 2", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5, 0, 3) = %d, want 3", got)
	}
	if got := Clamp(-1.0, 0.0, 3.0); got != 0.0 {
		t.Errorf("Clamp(-1, 0, 3) = %f, want 0", got)
	}
}
