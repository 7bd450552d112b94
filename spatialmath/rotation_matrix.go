package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/drivelab/perspective/utils"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m_{ij} = mat[3*i + j].
type RotationMatrix struct {
	mat [9]float64
}

// NewIdentityRotationMatrix returns the rotation matrix of no rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewRotationMatrix creates a rotation matrix from a row major slice of nine values.
// The values are not checked for orthonormality, calibration results are rarely exact.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	var rm RotationMatrix
	copy(rm.mat[:], m)
	return &rm, nil
}

// RotationX returns the rotation about the x axis by theta radians.
func RotationX(theta float64) *RotationMatrix {
	return (&EulerAngles{Roll: utils.RadToDeg(theta)}).RotationMatrix()
}

// RotationY returns the rotation about the y axis by theta radians.
func RotationY(theta float64) *RotationMatrix {
	return (&EulerAngles{Pitch: utils.RadToDeg(theta)}).RotationMatrix()
}

// RotationZ returns the rotation about the z axis by theta radians.
func RotationZ(theta float64) *RotationMatrix {
	return (&EulerAngles{Yaw: utils.RadToDeg(theta)}).RotationMatrix()
}

// At returns the element of the matrix at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Row returns the row of the matrix at the given index.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[row*3], Y: rm.mat[row*3+1], Z: rm.mat[row*3+2]}
}

// Col returns the column of the matrix at the given index.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[col+3], Z: rm.mat[col+6]}
}

// Mul returns the product of the matrix and a vector.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.Row(0).Dot(v),
		Y: rm.Row(1).Dot(v),
		Z: rm.Row(2).Dot(v),
	}
}

// MatMul returns rm·other.
func (rm *RotationMatrix) MatMul(other *RotationMatrix) *RotationMatrix {
	var out RotationMatrix
	for i := 0; i < 3; i++ {
		row := rm.Row(i)
		for j := 0; j < 3; j++ {
			out.mat[i*3+j] = row.Dot(other.Col(j))
		}
	}
	return &out
}

// Transpose returns the transpose, which is also the inverse for a proper rotation.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	m := rm.mat
	return &RotationMatrix{[9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// Dense returns the matrix as a gonum dense matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	data := rm.mat
	return mat.NewDense(3, 3, data[:])
}

// EulerAngles converts the rotation back to roll, pitch and yaw in degrees. At gimbal lock
// (pitch of ±90) the roll is reported as zero and the yaw absorbs the remaining rotation.
func (rm *RotationMatrix) EulerAngles() *EulerAngles {
	sinPitch := -rm.mat[6]
	if sinPitch >= 1-1e-12 || sinPitch <= -1+1e-12 {
		pitch := math.Copysign(math.Pi/2, sinPitch)
		yaw := math.Atan2(-rm.mat[1], rm.mat[4])
		return &EulerAngles{Pitch: utils.RadToDeg(pitch), Yaw: utils.RadToDeg(yaw)}
	}
	return &EulerAngles{
		Roll:  utils.RadToDeg(math.Atan2(rm.mat[7], rm.mat[8])),
		Pitch: utils.RadToDeg(math.Asin(sinPitch)),
		Yaw:   utils.RadToDeg(math.Atan2(rm.mat[3], rm.mat[0])),
	}
}

// Slice returns the row major values of the matrix.
func (rm *RotationMatrix) Slice() []float64 {
	out := make([]float64, 9)
	copy(out, rm.mat[:])
	return out
}

func (rm *RotationMatrix) String() string {
	return fmt.Sprintf("[%.4f %.4f %.4f; %.4f %.4f %.4f; %.4f %.4f %.4f]",
		rm.mat[0], rm.mat[1], rm.mat[2], rm.mat[3], rm.mat[4], rm.mat[5], rm.mat[6], rm.mat[7], rm.mat[8])
}

// RotationMatrixAlmostEqual compares two rotation matrices element-wise within tol.
func RotationMatrixAlmostEqual(a, b *RotationMatrix, tol float64) bool {
	for i := range a.mat {
		d := a.mat[i] - b.mat[i]
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}
