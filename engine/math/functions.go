package math

import (
	m "math"
)

// Float32bits exposes the IEEE 754 bit pattern so callers packing device
// records do not need a second math import.
func Float32bits(f float32) uint32 {
	return m.Float32bits(f)
}

func Float32frombits(b uint32) float32 {
	return m.Float32frombits(b)
}

func NewVec3Zero() Vec3 {
	return Vec3{X: 0, Y: 0, Z: 0}
}

func NewVec3One() Vec3 {
	return Vec3{X: 1, Y: 1, Z: 1}
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

func (v Vec3) MulScalar(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Length() float32 {
	return float32(m.Sqrt(float64(v.Dot(v))))
}

func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1.0 / l)
}

/** @brief Transforms the vector by the given matrix, treating it as a point (w=1). */
func (v Vec3) Transform(mt Mat4) Vec3 {
	d := mt.Data
	return Vec3{
		X: v.X*d[0] + v.Y*d[4] + v.Z*d[8] + d[12],
		Y: v.X*d[1] + v.Y*d[5] + v.Z*d[9] + d[13],
		Z: v.X*d[2] + v.Y*d[6] + v.Z*d[10] + d[14],
	}
}

func NewMat4Identity() Mat4 {
	mt := Mat4{}
	mt.Data[0] = 1.0
	mt.Data[5] = 1.0
	mt.Data[10] = 1.0
	mt.Data[15] = 1.0
	return mt
}

func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += mt.Data[k*4+row] * other.Data[col*4+k]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	mt := NewMat4Identity()
	mt.Data[12] = position.X
	mt.Data[13] = position.Y
	mt.Data[14] = position.Z
	return mt
}

func NewMat4Scale(scale Vec3) Mat4 {
	mt := NewMat4Identity()
	mt.Data[0] = scale.X
	mt.Data[5] = scale.Y
	mt.Data[10] = scale.Z
	return mt
}

func NewMat4EulerX(angleRadians float32) Mat4 {
	mt := NewMat4Identity()
	c := float32(m.Cos(float64(angleRadians)))
	s := float32(m.Sin(float64(angleRadians)))
	mt.Data[5] = c
	mt.Data[6] = s
	mt.Data[9] = -s
	mt.Data[10] = c
	return mt
}

func NewMat4EulerY(angleRadians float32) Mat4 {
	mt := NewMat4Identity()
	c := float32(m.Cos(float64(angleRadians)))
	s := float32(m.Sin(float64(angleRadians)))
	mt.Data[0] = c
	mt.Data[2] = -s
	mt.Data[8] = s
	mt.Data[10] = c
	return mt
}

func NewMat4Transposed(matrix Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out.Data[row*4+col] = matrix.Data[col*4+row]
		}
	}
	return out
}

/**
 * @brief Packs the upper 3x4 of the matrix into the row-major affine layout
 * used by acceleration structure instances. The projective fourth row is
 * dropped; it must be (0, 0, 0, 1) for an affine transform.
 */
func (mt Mat4) ToTransformMatrix() TransformMatrix {
	out := TransformMatrix{}
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out.Rows[row][col] = mt.Data[col*4+row]
		}
	}
	return out
}
