// Package editor implements the selection and manipulation state machine that
// drives a scene from decoded host intents, one tick at a time.
package editor

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/config"
	"github.com/Faultbox/navscene/internal/engine/camera"
	"github.com/Faultbox/navscene/internal/engine/picking"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/internal/tasks"
)

// ErrNoSelection is returned by operations that need a selected object.
// Manipulation intents without a selection are ignored rather than failing.
var ErrNoSelection = errors.New("no object selected")

// State is the selection state.
type State int

// Selection states.
const (
	StateIdle State = iota
	StateSelected
)

// String returns the state name.
func (s State) String() string {
	if s == StateSelected {
		return "Selected"
	}
	return "Idle"
}

// Picker resolves a ray to the nearest object it hits, or nil.
type Picker interface {
	Pick(sc *scene.Scene, ray picking.Ray) *scene.Object
}

// Highlighter shows the selection to the user.
type Highlighter interface {
	Highlight(obj *scene.Object)
	Unhighlight(obj *scene.Object)
}

type noHighlight struct{}

func (noHighlight) Highlight(*scene.Object)   {}
func (noHighlight) Unhighlight(*scene.Object) {}

// Options configures an Editor.
type Options struct {
	Manipulation config.ManipulationConfig
	FieldOfView  float32 // Degrees, used when FrameSelection gets no fov
	ScratchDir   string  // Parent of archive extraction directories
	Picker       Picker
	Highlighter  Highlighter
	OnEvent      EventHandler
}

// OptionsFrom builds options from the editor configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Manipulation: cfg.Manipulation,
		FieldOfView:  cfg.Camera.FieldOfView,
		ScratchDir:   cfg.Archive.ScratchDir,
	}
}

// Editor owns the live scene and applies intents to it.
// All methods must be called from the tick goroutine.
type Editor struct {
	scene    *scene.Scene
	pipeline *importer.Pipeline
	runner   *tasks.Runner
	opts     Options

	locked      bool
	pendingPick *picking.Ray
	held        Held

	camera *camera.Camera
}

// New creates an editor over sc.
func New(sc *scene.Scene, pipeline *importer.Pipeline, opts Options) *Editor {
	if opts.Picker == nil {
		opts.Picker = picking.ScenePicker{}
	}
	if opts.Highlighter == nil {
		opts.Highlighter = noHighlight{}
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}
	return &Editor{
		scene:    sc,
		pipeline: pipeline,
		runner:   tasks.NewRunner(),
		opts:     opts,
		camera:   camera.New(opts.FieldOfView),
	}
}

// Scene returns the live scene.
func (e *Editor) Scene() *scene.Scene {
	return e.scene
}

// Runner returns the background task runner.
func (e *Editor) Runner() *tasks.Runner {
	return e.runner
}

// State returns the current selection state.
func (e *Editor) State() State {
	if e.scene.Selected() != nil {
		return StateSelected
	}
	return StateIdle
}

// Selected returns the selected object, or nil.
func (e *Editor) Selected() *scene.Object {
	return e.scene.Selected()
}

// Tick advances the editor by dt seconds: completed background work is
// applied first, then at most one queued pick, then the held manipulation.
func (e *Editor) Tick(dt float32) {
	e.runner.Drain()

	if ray := e.pendingPick; ray != nil {
		e.pendingPick = nil
		if !e.locked {
			e.pick(*ray)
		}
	}

	if e.locked || e.held.Mode == ModeNone {
		return
	}
	obj := e.scene.Selected()
	if obj == nil {
		logger.Debug("manipulation ignored", zap.Error(ErrNoSelection))
		return
	}
	e.manipulate(obj, e.held, dt)
}

// SetInputLocked suppresses selection, manipulation and deletion while locked.
func (e *Editor) SetInputLocked(locked bool) {
	e.locked = locked
	if locked {
		e.pendingPick = nil
	}
	logger.Debug("input lock changed", zap.Bool("locked", locked))
}

// InputLocked reports whether input is locked.
func (e *Editor) InputLocked() bool {
	return e.locked
}

// SetCamera records the host camera pose used to place new navigation points
// and to resolve screen picks.
func (e *Editor) SetCamera(position, forward mgl32.Vec3) {
	e.camera.SetPose(position, forward)
}

// Camera returns the mirrored host camera.
func (e *Editor) Camera() *camera.Camera {
	return e.camera
}

// PickAt queues a selection ray for the next tick. A later call replaces an
// unprocessed one.
func (e *Editor) PickAt(ray picking.Ray) {
	if e.locked {
		return
	}
	e.pendingPick = &ray
}

// PickAtScreen queues a pick through pixel (x, y) of a w by h viewport as
// seen from the mirrored camera.
func (e *Editor) PickAtScreen(x, y, w, h float32) {
	e.PickAt(e.camera.ScreenRay(x, y, w, h))
}

func (e *Editor) pick(ray picking.Ray) {
	hit := e.opts.Picker.Pick(e.scene, ray)
	if hit == nil {
		logger.Debug("pick missed", logger.Vec3("origin", ray.Origin), logger.Vec3("direction", ray.Direction))
		return
	}
	if prev := e.scene.Selected(); prev != nil {
		e.opts.Highlighter.Unhighlight(prev)
	}
	if err := e.scene.Select(hit.ID); err != nil {
		logger.Warn("picked object not in scene", zap.String("id", hit.ID))
		return
	}
	e.opts.Highlighter.Highlight(hit)
	logger.Debug("object selected", zap.String("id", hit.ID), zap.Stringer("kind", hit.Kind))
}

// Select selects the object with the given ID directly.
func (e *Editor) Select(id string) error {
	prev := e.scene.Selected()
	if err := e.scene.Select(id); err != nil {
		return err
	}
	if prev != nil {
		e.opts.Highlighter.Unhighlight(prev)
	}
	e.opts.Highlighter.Highlight(e.scene.Selected())
	return nil
}

// Deselect returns to Idle.
func (e *Editor) Deselect() {
	if prev := e.scene.Selected(); prev != nil {
		e.opts.Highlighter.Unhighlight(prev)
	}
	e.scene.ClearSelection()
	e.held = Held{}
}

// DeleteSelected removes the selected object and returns to Idle.
func (e *Editor) DeleteSelected() error {
	if e.locked {
		return nil
	}
	obj := e.scene.Selected()
	if obj == nil {
		return ErrNoSelection
	}
	e.opts.Highlighter.Unhighlight(obj)
	e.scene.Remove(obj.ID)
	e.held = Held{}
	e.status(fmt.Sprintf("deleted %s %s", obj.Kind, obj.ID))
	return nil
}

// ToggleVisibility hides or shows the selected object.
func (e *Editor) ToggleVisibility() error {
	obj := e.scene.Selected()
	if obj == nil {
		return ErrNoSelection
	}
	obj.Hidden = !obj.Hidden
	return nil
}

// CreateNavigationPoint adds a navigation marker. With a nil position the
// marker is placed two units in front of the camera.
func (e *Editor) CreateNavigationPoint(nav scene.NavInfo, position *mgl32.Vec3) *scene.Object {
	pos := e.camera.PointAhead(2)
	if position != nil {
		pos = *position
	}
	obj := scene.NewNavigationPoint(nav, pos)
	e.scene.Add(obj)

	logger.Info("navigation point added",
		zap.String("label", nav.Label),
		zap.Bool("source", nav.IsSource),
		zap.Bool("destination", nav.IsDestination),
		logger.Vec3("position", pos),
	)
	e.status(fmt.Sprintf("added navigation point %q at %s", nav.Label, logger.FormatVec3(pos)))
	return obj
}

// CreateNavigationLine adds a navigation marker spanning start to end: it is
// placed at start, its X scale is the length and its X axis points at end.
func (e *Editor) CreateNavigationLine(nav scene.NavInfo, start, end mgl32.Vec3) *scene.Object {
	obj := scene.NewNavigationPoint(nav, start)
	t := obj.Transform()

	dir := end.Sub(start)
	length := dir.Len()
	if length > 0 {
		t.Rotation = mgl32.QuatBetweenVectors(mgl32.Vec3{1, 0, 0}, dir.Mul(1/length))
	}
	t.Scale = mgl32.Vec3{max(length, e.opts.Manipulation.ScaleFloor), 1, 1}
	e.scene.Add(obj)

	e.status(fmt.Sprintf("added navigation line from %s to %s", logger.FormatVec3(start), logger.FormatVec3(end)))
	return obj
}

// FrameSelection returns the camera target and distance that fit the
// selection in a field of view of fov degrees (the configured one when fov
// is not positive) and moves the mirrored camera there. A camera-fit event
// carries the same values.
func (e *Editor) FrameSelection(fov float32) (mgl32.Vec3, float32, error) {
	obj := e.scene.Selected()
	if obj == nil {
		return mgl32.Vec3{}, 0, ErrNoSelection
	}
	center, dist := e.camera.FitToBounds(obj.WorldBounds(), fov)
	e.opts.OnEvent(Event{Kind: EventCameraFit, Center: center, Distance: dist})
	return center, dist, nil
}

func (e *Editor) status(msg string) {
	e.opts.OnEvent(Event{Kind: EventStatus, Message: msg})
}
