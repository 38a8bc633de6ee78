package geometry

import "math"

// Mat3 is a 3x3 matrix stored as three row vectors.
// When used as a rotation, each row is one axis of the rotated frame, so
// MulVec projects a world vector into that frame and TransposeMulVec maps
// frame coordinates back to world space.
type Mat3 [3]Vector3

// Identity returns the 3x3 identity matrix
func Identity() Mat3 {
	return Mat3{
		{X: 1},
		{Y: 1},
		{Z: 1},
	}
}

// NewMat3FromRows builds a matrix from its three rows
func NewMat3FromRows(r0, r1, r2 Vector3) Mat3 {
	return Mat3{r0, r1, r2}
}

// Row returns the i-th row
func (m Mat3) Row(i int) Vector3 {
	return m[i]
}

// Det returns the determinant
func (m Mat3) Det() float64 {
	return m[0].Dot(m[1].Cross(m[2]))
}

// Transpose returns the transposed matrix
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{X: m[0].X, Y: m[1].X, Z: m[2].X},
		{X: m[0].Y, Y: m[1].Y, Z: m[2].Y},
		{X: m[0].Z, Y: m[1].Z, Z: m[2].Z},
	}
}

// MulVec returns M * v
func (m Mat3) MulVec(v Vector3) Vector3 {
	return Vector3{
		X: m[0].Dot(v),
		Y: m[1].Dot(v),
		Z: m[2].Dot(v),
	}
}

// TransposeMulVec returns Mᵀ * v, which equals v (as a row vector) times M
func (m Mat3) TransposeMulVec(v Vector3) Vector3 {
	return m[0].Mul(v.X).Add(m[1].Mul(v.Y)).Add(m[2].Mul(v.Z))
}

// Mul returns the matrix product M * other
func (m Mat3) Mul(other Mat3) Mat3 {
	t := other.Transpose()
	var out Mat3
	for i := 0; i < 3; i++ {
		out[i] = t.MulVec(m[i])
	}
	return out
}

// IsOrthonormal reports whether all rows are unit length and mutually
// perpendicular within tol
func (m Mat3) IsOrthonormal(tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(m[i].Length()-1) > tol {
			return false
		}
		for j := i + 1; j < 3; j++ {
			if math.Abs(m[i].Dot(m[j])) > tol {
				return false
			}
		}
	}
	return true
}

// RotationAxisAngle returns the matrix rotating vectors by angle radians
// around axis (right-hand rule)
func RotationAxisAngle(axis Vector3, angle float64) Mat3 {
	a := axis.Normalize()
	c := math.Cos(angle)
	s := math.Sin(angle)
	t := 1 - c
	return Mat3{
		{X: t*a.X*a.X + c, Y: t*a.X*a.Y - s*a.Z, Z: t*a.X*a.Z + s*a.Y},
		{X: t*a.X*a.Y + s*a.Z, Y: t*a.Y*a.Y + c, Z: t*a.Y*a.Z - s*a.X},
		{X: t*a.X*a.Z - s*a.Y, Y: t*a.Y*a.Z + s*a.X, Z: t*a.Z*a.Z + c},
	}
}
