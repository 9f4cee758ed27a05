// Package importer turns raw mesh payloads into scene objects ready to be
// added to a scene.
package importer

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/pkg/formats"
)

// Payload errors.
var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrNotMeshText  = errors.New("payload is not mesh text")
)

// ImportError reports a failed import. The scene is never modified when one is returned.
type ImportError struct {
	Source string // File path, archive entry or payload name
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// Pipeline decodes mesh payloads and builds normalized scene objects.
// It never touches a scene; callers add the returned objects themselves.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// ImportFromBytes decodes mesh text and returns a new imported-model object
// positioned at the origin, with absolute scale, the configured correction
// applied and a collider attached.
func (p *Pipeline) ImportFromBytes(name string, data []byte) (*scene.Object, error) {
	root, err := p.Decode(name, data)
	if err != nil {
		return nil, err
	}

	obj := scene.NewModel(name, NewMeshKey(), root)
	t := obj.Transform()
	t.Position = mgl32.Vec3{}
	t.Scale = absVec(t.Scale)
	p.cfg.Correction.Apply(t)

	AttachCollider(obj)

	logger.Info("model imported",
		zap.String("name", name),
		zap.String("id", obj.ID),
		zap.String("mesh_key", obj.MeshKey),
		zap.Int("vertices", len(obj.Pivot.Mesh.Vertices)),
		zap.Stringer("collider", obj.Collider.Kind),
		logger.Vec3("scale", t.Scale),
	)
	return obj, nil
}

// ImportFromBase64 decodes a base64 payload and imports it.
func (p *Pipeline) ImportFromBase64(name, payload string) (*scene.Object, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, &ImportError{Source: name, Err: errors.Wrap(err, "decoding base64 payload")}
	}
	return p.ImportFromBytes(name, data)
}

// ImportFromPath reads a mesh file and imports it.
func (p *Pipeline) ImportFromPath(path string) (*scene.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImportError{Source: path, Err: err}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.ImportFromBytes(name, data)
}

// Decode validates and parses mesh text into a model hierarchy, filling in
// the default material. No transform normalization is applied.
func (p *Pipeline) Decode(source string, data []byte) (*model.Node, error) {
	if err := checkMeshText(data); err != nil {
		return nil, &ImportError{Source: source, Err: err}
	}

	mesh, err := formats.ParseOBJ(data)
	if err != nil {
		return nil, &ImportError{Source: source, Err: err}
	}

	if p.cfg.DefaultMaterial != "" {
		for i := range mesh.Submeshes {
			if mesh.Submeshes[i].Material == "" {
				mesh.Submeshes[i].Material = p.cfg.DefaultMaterial
			}
		}
	}

	return model.FromMesh(source, mesh), nil
}

// checkMeshText rejects payloads that cannot be OBJ text: empty, binary, or
// without a single vertex record.
func checkMeshText(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyPayload
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return errors.Wrap(ErrNotMeshText, "binary data")
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "v ") || strings.HasPrefix(line, "v\t") {
			return nil
		}
	}
	return errors.Wrap(ErrNotMeshText, "no vertex records")
}

// AttachCollider derives pick geometry for a model: a convex hull when the
// pivot carries a negative scale component, otherwise a box sized from the
// pivot-local bounds.
func AttachCollider(obj *scene.Object) {
	if model.HasNegativeScale(*obj.Transform()) {
		obj.Collider = scene.Collider{
			Kind:   scene.ColliderConvexHull,
			Points: hullPoints(obj.Pivot),
		}
		return
	}

	b := model.ComputeLocalBounds(obj.Pivot)
	obj.Collider = scene.Collider{
		Kind:   scene.ColliderBox,
		Center: b.Center(),
		Size:   absVec(b.Size()),
	}
}

// hullPoints collects the vertex cloud of every mesh under node in node's frame.
func hullPoints(node *model.Node) []mgl32.Vec3 {
	var points []mgl32.Vec3
	local := node.Clone()
	local.Transform = model.IdentityTransform()
	model.Walk(local, func(n *model.Node, world mgl32.Mat4) bool {
		if !n.HasMesh() {
			return true
		}
		for _, v := range n.Mesh.Vertices {
			points = append(points, world.Mul4x1(mgl32.Vec4{v[0], v[1], v[2], 1}).Vec3())
		}
		return true
	})
	return points
}

// NewMeshKey generates an archive key for a model's mesh file.
func NewMeshKey() string {
	return "model-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func absVec(v mgl32.Vec3) mgl32.Vec3 {
	for i := range v {
		if v[i] < 0 {
			v[i] = -v[i]
		}
	}
	return v
}
