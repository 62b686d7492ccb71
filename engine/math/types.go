package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief a 4x4 matrix, typically used to represent object transformations.
Stored column-major: element (row, col) lives at Data[col*4+row]. */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief A 3x4 row-major affine transform, the exact memory layout consumed
 * by acceleration structure instance records. The fourth column of each row
 * holds the translation component.
 */
type TransformMatrix struct {
	Rows [3][4]float32
}

/** @brief Represents the extents of a 3d object. */
type Extents3D struct {
	Min Vec3
	Max Vec3
}
