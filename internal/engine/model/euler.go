package model

import "github.com/go-gl/mathgl/mgl32"

// EulerToQuat converts Euler angles in degrees to a quaternion. Rotation is
// applied about Z, then X, then Y, all in world axes.
func EulerToQuat(deg mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(deg.X()), mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(mgl32.DegToRad(deg.Y()), mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(mgl32.DegToRad(deg.Z()), mgl32.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz).Normalize()
}

// AxisVector returns the world unit vector for axis 0, 1 or 2.
func AxisVector(axis int) mgl32.Vec3 {
	var v mgl32.Vec3
	if axis >= 0 && axis < 3 {
		v[axis] = 1
	}
	return v
}
