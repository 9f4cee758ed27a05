// Package archive reads and writes scene archives: a ZIP container holding a
// sceneData.json manifest plus one OBJ mesh file per imported model.
package archive

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/pkg/formats"
)

const (
	// ManifestName is the fixed name of the manifest entry.
	ManifestName = "sceneData.json"

	// NavigationType is the manifest type of navigation points.
	NavigationType = "NavigationLine"

	// MeshExt is appended to a model's type to name its mesh file.
	MeshExt = ".obj"
)

// Manifest is the decoded sceneData.json document.
type Manifest struct {
	Objects []Entry `json:"objects"`
}

// Entry describes one object in the manifest.
type Entry struct {
	Position      [3]float32 `json:"position"`
	Rotation      []float32  `json:"rotation"` // Quaternion [x,y,z,w] or Euler degrees [x,y,z]
	Scale         [3]float32 `json:"scale"`
	Type          string     `json:"type"` // NavigationType or mesh key
	Label         *string    `json:"label"`
	IsSource      bool       `json:"isSource"`
	IsDestination bool       `json:"isDestination"`
}

// IsNavigation reports whether the entry is a navigation point.
func (e *Entry) IsNavigation() bool {
	return e.Type == NavigationType
}

// MeshFile returns the archive name of the entry's mesh file.
func (e *Entry) MeshFile() string {
	return e.Type + MeshExt
}

// LabelString returns the label, or "" when null.
func (e *Entry) LabelString() string {
	if e.Label == nil {
		return ""
	}
	return *e.Label
}

// Transform decodes the entry's transform.
func (e *Entry) Transform() (model.Transform, error) {
	t := model.Transform{
		Position: mgl32.Vec3(e.Position),
		Scale:    mgl32.Vec3(e.Scale),
	}
	switch len(e.Rotation) {
	case 0:
		t.Rotation = mgl32.QuatIdent()
	case 3:
		t.Rotation = model.EulerToQuat(mgl32.Vec3{e.Rotation[0], e.Rotation[1], e.Rotation[2]})
	case 4:
		t.Rotation = mgl32.Quat{
			W: e.Rotation[3],
			V: mgl32.Vec3{e.Rotation[0], e.Rotation[1], e.Rotation[2]},
		}.Normalize()
	default:
		return t, fmt.Errorf("rotation has %d components, want 3 or 4", len(e.Rotation))
	}
	return t, nil
}

// entryFor builds the manifest entry of obj. key is the mesh key under which
// a model's mesh is stored.
func entryFor(obj *scene.Object, key string) Entry {
	t := model.IdentityTransform()
	if obj.Pivot != nil {
		t = *obj.Transform()
	}
	q := t.Rotation
	e := Entry{
		Position: t.Position,
		Rotation: []float32{q.X(), q.Y(), q.Z(), q.W},
		Scale:    t.Scale,
	}

	switch obj.Kind {
	case scene.KindNavigationPoint:
		label := obj.Nav.Label
		e.Type = NavigationType
		e.Label = &label
		e.IsSource = obj.Nav.IsSource
		e.IsDestination = obj.Nav.IsDestination
	default:
		e.Type = key
		if obj.Name != "" {
			label := obj.Name
			e.Label = &label
		}
	}
	return e
}

// ParseManifest decodes manifest JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &formats.FormatError{Record: ManifestName, Err: err}
	}
	return &m, nil
}

// Encode returns the manifest as indented JSON.
func (m *Manifest) Encode() ([]byte, error) {
	if m.Objects == nil {
		m.Objects = []Entry{}
	}
	return json.MarshalIndent(m, "", "  ")
}
