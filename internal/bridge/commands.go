// Package bridge decodes host commands into editor intents and encodes editor
// events as host notifications. Both directions are JSON objects, one per line.
package bridge

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/editor"
	"github.com/Faultbox/navscene/internal/engine/picking"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
)

// ErrUnknownCommand is returned for a command name with no handler.
var ErrUnknownCommand = errors.New("unknown command")

// ErrMissingField is returned when a command lacks a required field.
var ErrMissingField = errors.New("missing field")

// Command is one inbound host command. Only the fields used by the named
// command are read.
type Command struct {
	Command string `json:"command"`

	// import-model, import-scene, export-scene
	Data string `json:"data,omitempty"`
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`

	// create-navigation-point, create-navigation-line
	Label         string      `json:"label,omitempty"`
	IsSource      bool        `json:"isSource,omitempty"`
	IsDestination bool        `json:"isDestination,omitempty"`
	Position      *[3]float32 `json:"position,omitempty"`
	Start         *[3]float32 `json:"start,omitempty"`
	End           *[3]float32 `json:"end,omitempty"`

	// lock-input
	Locked bool `json:"locked,omitempty"`

	// select-at, set-camera
	Origin    *[3]float32 `json:"origin,omitempty"`
	Direction *[3]float32 `json:"direction,omitempty"`
	Forward   *[3]float32 `json:"forward,omitempty"`

	// hold, flip
	Mode     string  `json:"mode,omitempty"`
	Axis     string  `json:"axis,omitempty"`
	Delta    float32 `json:"delta,omitempty"`
	Sign     float32 `json:"sign,omitempty"`
	DX       float32 `json:"dx,omitempty"`
	DY       float32 `json:"dy,omitempty"`
	Vertical float32 `json:"vertical,omitempty"`

	// select-at-screen
	X      float32 `json:"x,omitempty"`
	Y      float32 `json:"y,omitempty"`
	Width  float32 `json:"width,omitempty"`
	Height float32 `json:"height,omitempty"`

	// frame-selection
	FOV float32 `json:"fov,omitempty"`
}

// Handler executes one decoded command.
type Handler func(cmd Command) error

// Dispatcher routes commands to handlers by name.
type Dispatcher struct {
	editor   *editor.Editor
	handlers map[string]Handler
}

// NewDispatcher creates a dispatcher with the standard command set bound to ed.
func NewDispatcher(ed *editor.Editor) *Dispatcher {
	d := &Dispatcher{
		editor:   ed,
		handlers: make(map[string]Handler),
	}

	d.Register("import-model", d.importModel)
	d.Register("import-scene", d.importScene)
	d.Register("export-scene", d.exportScene)
	d.Register("create-navigation-point", d.createNavigationPoint)
	d.Register("create-navigation-line", d.createNavigationLine)
	d.Register("delete-selected", d.deleteSelected)
	d.Register("lock-input", d.lockInput)
	d.Register("select-at", d.selectAt)
	d.Register("select-at-screen", d.selectAtScreen)
	d.Register("deselect", d.deselect)
	d.Register("hold", d.hold)
	d.Register("release", d.release)
	d.Register("flip", d.flip)
	d.Register("toggle-visibility", d.toggleVisibility)
	d.Register("frame-selection", d.frameSelection)
	d.Register("set-camera", d.setCamera)

	return d
}

// Register binds a handler to a command name, replacing any previous one.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Dispatch runs the handler for cmd. It must be called on the tick goroutine.
func (d *Dispatcher) Dispatch(cmd Command) error {
	h, ok := d.handlers[cmd.Command]
	if !ok {
		return pkgerrors.Wrapf(ErrUnknownCommand, "%q", cmd.Command)
	}
	logger.Debug("command", zap.String("command", cmd.Command))
	return h(cmd)
}

// DispatchJSON decodes one JSON command and dispatches it.
func (d *Dispatcher) DispatchJSON(line []byte) error {
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return pkgerrors.Wrap(err, "invalid command")
	}
	return d.Dispatch(cmd)
}

func vec(v [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func require(name string, v *[3]float32) (mgl32.Vec3, error) {
	if v == nil {
		return mgl32.Vec3{}, pkgerrors.Wrap(ErrMissingField, name)
	}
	return vec(*v), nil
}

func (d *Dispatcher) importModel(cmd Command) error {
	switch {
	case cmd.Data != "":
		name := cmd.Name
		if name == "" {
			name = "model"
		}
		d.editor.ImportModelBase64(name, cmd.Data)
	case cmd.Path != "":
		d.editor.ImportModelFile(cmd.Path)
	default:
		return pkgerrors.Wrap(ErrMissingField, "data")
	}
	return nil
}

func (d *Dispatcher) importScene(cmd Command) error {
	switch {
	case cmd.Data != "":
		data, err := base64.StdEncoding.DecodeString(cmd.Data)
		if err != nil {
			return pkgerrors.Wrap(err, "decoding archive payload")
		}
		d.editor.ImportScene(data)
	case cmd.Path != "":
		d.editor.ImportSceneFile(cmd.Path)
	default:
		return pkgerrors.Wrap(ErrMissingField, "data")
	}
	return nil
}

func (d *Dispatcher) exportScene(cmd Command) error {
	d.editor.ExportScene(cmd.Path)
	return nil
}

func (d *Dispatcher) navInfo(cmd Command) scene.NavInfo {
	return scene.NavInfo{
		Label:         cmd.Label,
		IsSource:      cmd.IsSource,
		IsDestination: cmd.IsDestination,
	}
}

func (d *Dispatcher) createNavigationPoint(cmd Command) error {
	var pos *mgl32.Vec3
	if cmd.Position != nil {
		p := vec(*cmd.Position)
		pos = &p
	}
	d.editor.CreateNavigationPoint(d.navInfo(cmd), pos)
	return nil
}

func (d *Dispatcher) createNavigationLine(cmd Command) error {
	start, err := require("start", cmd.Start)
	if err != nil {
		return err
	}
	end, err := require("end", cmd.End)
	if err != nil {
		return err
	}
	d.editor.CreateNavigationLine(d.navInfo(cmd), start, end)
	return nil
}

func (d *Dispatcher) deleteSelected(Command) error {
	if err := d.editor.DeleteSelected(); err != nil && !errors.Is(err, editor.ErrNoSelection) {
		return err
	}
	return nil
}

func (d *Dispatcher) lockInput(cmd Command) error {
	d.editor.SetInputLocked(cmd.Locked)
	return nil
}

func (d *Dispatcher) selectAt(cmd Command) error {
	origin, err := require("origin", cmd.Origin)
	if err != nil {
		return err
	}
	dir, err := require("direction", cmd.Direction)
	if err != nil {
		return err
	}
	if dir.Len() == 0 {
		return pkgerrors.Wrap(ErrMissingField, "direction is zero")
	}
	d.editor.PickAt(picking.NewRay(origin, dir))
	return nil
}

func (d *Dispatcher) selectAtScreen(cmd Command) error {
	if cmd.Width <= 0 || cmd.Height <= 0 {
		return pkgerrors.Wrap(ErrMissingField, "viewport size")
	}
	d.editor.PickAtScreen(cmd.X, cmd.Y, cmd.Width, cmd.Height)
	return nil
}

func (d *Dispatcher) deselect(Command) error {
	d.editor.Deselect()
	return nil
}

func (d *Dispatcher) hold(cmd Command) error {
	h := editor.Held{
		PointerDelta: cmd.Delta,
		Direction:    cmd.Sign,
		PointerDX:    cmd.DX,
		PointerDY:    cmd.DY,
		Vertical:     cmd.Vertical,
	}

	switch cmd.Mode {
	case "rotate":
		h.Mode = editor.ModeRotate
	case "scale":
		h.Mode = editor.ModeScaleUniform
	case "scale-axis":
		h.Mode = editor.ModeScaleAxis
	case "move":
		h.Mode = editor.ModeMove
	default:
		return fmt.Errorf("unknown hold mode %q", cmd.Mode)
	}

	if h.Mode == editor.ModeRotate || h.Mode == editor.ModeScaleAxis {
		axis, ok := editor.ParseAxis(cmd.Axis)
		if !ok {
			return pkgerrors.Wrapf(editor.ErrInvalidAxis, "%q", cmd.Axis)
		}
		h.Axis = axis
	}

	d.editor.Hold(h)
	return nil
}

func (d *Dispatcher) release(Command) error {
	d.editor.Release()
	return nil
}

func (d *Dispatcher) flip(cmd Command) error {
	axis, ok := editor.ParseAxis(cmd.Axis)
	if !ok {
		return pkgerrors.Wrapf(editor.ErrInvalidAxis, "%q", cmd.Axis)
	}
	if err := d.editor.Flip(axis); err != nil && !errors.Is(err, editor.ErrNoSelection) {
		return err
	}
	return nil
}

func (d *Dispatcher) toggleVisibility(Command) error {
	if err := d.editor.ToggleVisibility(); err != nil && !errors.Is(err, editor.ErrNoSelection) {
		return err
	}
	return nil
}

func (d *Dispatcher) frameSelection(cmd Command) error {
	if _, _, err := d.editor.FrameSelection(cmd.FOV); err != nil && !errors.Is(err, editor.ErrNoSelection) {
		return err
	}
	return nil
}

func (d *Dispatcher) setCamera(cmd Command) error {
	pos, err := require("origin", cmd.Origin)
	if err != nil {
		return err
	}
	fwd, err := require("forward", cmd.Forward)
	if err != nil {
		return err
	}
	d.editor.SetCamera(pos, fwd)
	return nil
}
