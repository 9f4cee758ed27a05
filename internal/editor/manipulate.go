package editor

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
)

// Axis is a world axis.
type Axis int

// ErrInvalidAxis is returned for an axis outside X, Y and Z.
var ErrInvalidAxis = errors.New("invalid axis")

// World axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the axis letter.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}

func (a Axis) valid() bool {
	return a >= AxisX && a <= AxisZ
}

// ParseAxis converts "x", "y" or "z" to an Axis.
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y":
		return AxisY, true
	case "z", "Z":
		return AxisZ, true
	default:
		return 0, false
	}
}

// Mode is the kind of continuous manipulation being held.
type Mode int

// Manipulation modes.
const (
	ModeNone Mode = iota
	ModeRotate
	ModeScaleUniform
	ModeScaleAxis
	ModeMove
)

// Held is the manipulation intent applied on every tick until released.
type Held struct {
	Mode Mode
	Axis Axis // Rotate and per-axis scale

	// Rotate: signed pointer movement driving the angle.
	PointerDelta float32

	// Scale: +1 grows, -1 shrinks.
	Direction float32

	// Move: pointer movement mapped to world X and Z, plus a vertical nudge in -1..1.
	PointerDX float32
	PointerDY float32
	Vertical  float32
}

// Hold starts or replaces the held manipulation intent.
func (e *Editor) Hold(h Held) {
	e.held = h
}

// Release stops the held manipulation.
func (e *Editor) Release() {
	e.held = Held{}
}

// HeldIntent returns the current held intent.
func (e *Editor) HeldIntent() Held {
	return e.held
}

func (e *Editor) manipulate(obj *scene.Object, h Held, dt float32) {
	cfg := e.opts.Manipulation
	t := obj.Transform()

	switch h.Mode {
	case ModeRotate:
		angle := h.PointerDelta * cfg.RotationSpeed * dt
		if angle == 0 || !h.Axis.valid() {
			return
		}
		q := mgl32.QuatRotate(mgl32.DegToRad(angle), model.AxisVector(int(h.Axis)))
		t.Rotation = q.Mul(t.Rotation).Normalize()

	case ModeScaleUniform:
		delta := h.Direction * cfg.ScaleSpeed
		if cfg.LineAxisScaling && obj.Kind == scene.KindNavigationPoint {
			t.Scale[0] = scaleComponent(t.Scale[0], delta, cfg.ScaleFloor)
			return
		}
		for i := range t.Scale {
			t.Scale[i] = scaleComponent(t.Scale[i], delta, cfg.ScaleFloor)
		}

	case ModeScaleAxis:
		if !h.Axis.valid() {
			return
		}
		i := int(h.Axis)
		t.Scale[i] = scaleComponent(t.Scale[i], h.Direction*cfg.ScaleSpeed, cfg.ScaleFloor)

	case ModeMove:
		t.Position = t.Position.Add(mgl32.Vec3{
			h.PointerDX * cfg.MoveSpeed,
			h.Vertical * cfg.MoveSpeed,
			h.PointerDY * cfg.MoveSpeed,
		})
	}
}

// scaleComponent applies delta to the magnitude of s and clamps the result
// to floor, keeping the sign so flipped axes stay flipped.
func scaleComponent(s, delta, floor float32) float32 {
	sign := float32(1)
	if s < 0 {
		sign, s = -1, -s
	}
	s += delta
	if s < floor {
		s = floor
	}
	return sign * s
}

// Flip negates one scale component of the selected object.
func (e *Editor) Flip(axis Axis) error {
	if e.locked {
		return nil
	}
	if !axis.valid() {
		return ErrInvalidAxis
	}
	obj := e.scene.Selected()
	if obj == nil {
		return ErrNoSelection
	}
	t := obj.Transform()
	t.Scale[axis] = -t.Scale[axis]
	if obj.Kind == scene.KindImportedModel {
		importer.AttachCollider(obj)
	}

	logger.Debug("object flipped", zap.String("id", obj.ID), zap.Stringer("axis", axis), logger.Vec3("scale", t.Scale))
	e.status("flipped " + axis.String() + ", scale " + logger.FormatVec3(t.Scale))
	return nil
}
