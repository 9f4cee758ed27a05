package importer

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Faultbox/navscene/internal/config"
	"github.com/Faultbox/navscene/internal/engine/model"
)

// Correction presets.
const (
	CorrectionNone    = "none"
	CorrectionDefault = "default"
	CorrectionWebGL   = "webgl"
)

// ErrUnknownCorrection is returned for an unrecognized preset name.
var ErrUnknownCorrection = errors.New("unknown correction preset")

// Correction is the fixed transform applied to every freshly decoded model
// to reconcile the mesh source's axes with the render target's.
type Correction struct {
	Rotation mgl32.Quat
	MirrorX  bool
}

// Preset returns the named correction.
func Preset(name string) (Correction, error) {
	turn := mgl32.QuatRotate(gomath.Pi, mgl32.Vec3{0, 1, 0})
	switch name {
	case CorrectionNone:
		return Correction{Rotation: mgl32.QuatIdent()}, nil
	case CorrectionDefault, "":
		return Correction{Rotation: turn}, nil
	case CorrectionWebGL:
		return Correction{Rotation: turn, MirrorX: true}, nil
	default:
		return Correction{}, errors.Wrap(ErrUnknownCorrection, name)
	}
}

// Apply rotates t by the correction, then mirrors it along X.
func (c Correction) Apply(t *model.Transform) {
	t.Rotation = c.Rotation.Mul(t.Rotation).Normalize()
	if c.MirrorX {
		t.Scale[0] = -t.Scale[0]
	}
}

// Config configures a Pipeline.
type Config struct {
	Correction      Correction
	DefaultMaterial string
}

// ConfigFrom resolves the import section of the editor configuration.
// Explicit rotation and mirror settings override the preset.
func ConfigFrom(cfg config.ImportConfig) (Config, error) {
	corr, err := Preset(cfg.Correction)
	if err != nil {
		return Config{}, err
	}
	if cfg.Rotation != nil {
		corr.Rotation = model.EulerToQuat(mgl32.Vec3(*cfg.Rotation))
	}
	if cfg.MirrorX != nil {
		corr.MirrorX = *cfg.MirrorX
	}
	return Config{Correction: corr, DefaultMaterial: cfg.DefaultMaterial}, nil
}
