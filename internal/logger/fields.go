package logger

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Vec3 renders a vector field as "(x, y, z)".
func Vec3(key string, v mgl32.Vec3) zap.Field {
	return zap.String(key, FormatVec3(v))
}

// Quat renders a quaternion field as "(x, y, z, w)".
func Quat(key string, q mgl32.Quat) zap.Field {
	return zap.String(key, fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", q.X(), q.Y(), q.Z(), q.W))
}

// FormatVec3 formats a vector for status messages.
func FormatVec3(v mgl32.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X(), v.Y(), v.Z())
}
