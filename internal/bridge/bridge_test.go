package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/navscene/internal/config"
	"github.com/Faultbox/navscene/internal/editor"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/scene"
)

const triOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

func newTestBridge(t *testing.T) (*editor.Editor, *Dispatcher, *bytes.Buffer, *Notifier) {
	t.Helper()
	var out bytes.Buffer
	n := NewNotifier(&out)

	opts := editor.OptionsFrom(config.Default())
	opts.ScratchDir = t.TempDir()
	opts.OnEvent = n.Notify

	corr, err := importer.Preset(importer.CorrectionNone)
	if err != nil {
		t.Fatalf("Preset: %v", err)
	}
	ed := editor.New(scene.New(), importer.New(importer.Config{Correction: corr}), opts)
	return ed, NewDispatcher(ed), &out, n
}

func readNotifications(t *testing.T, r io.Reader) []Notification {
	t.Helper()
	var out []Notification
	dec := json.NewDecoder(r)
	for {
		var n Notification
		err := dec.Decode(&n)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("decoding notification: %v", err)
		}
		out = append(out, n)
	}
}

func ofEvent(ns []Notification, event string) []Notification {
	var out []Notification
	for _, n := range ns {
		if n.Event == event {
			out = append(out, n)
		}
	}
	return out
}

func TestDispatch_Errors(t *testing.T) {
	_, d, _, _ := newTestBridge(t)

	tests := []struct {
		name string
		line string
		want error
	}{
		{"unknown command", `{"command": "teleport"}`, ErrUnknownCommand},
		{"line without start", `{"command": "create-navigation-line", "end": [1, 0, 0]}`, ErrMissingField},
		{"select without direction", `{"command": "select-at", "origin": [0, 0, 0]}`, ErrMissingField},
		{"import without payload", `{"command": "import-model"}`, ErrMissingField},
		{"screen pick without viewport", `{"command": "select-at-screen", "x": 10, "y": 10}`, ErrMissingField},
		{"flip bad axis", `{"command": "flip", "axis": "w"}`, editor.ErrInvalidAxis},
		{"rotate bad axis", `{"command": "hold", "mode": "rotate", "axis": ""}`, editor.ErrInvalidAxis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.DispatchJSON([]byte(tt.line))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if err := d.DispatchJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if err := d.DispatchJSON([]byte(`{"command": "hold", "mode": "spin"}`)); err == nil {
		t.Error("expected error for unknown hold mode")
	}
}

func TestDispatch_NoSelectionIsNotAnError(t *testing.T) {
	_, d, _, _ := newTestBridge(t)
	for _, name := range []string{"delete-selected", "toggle-visibility", "frame-selection", "deselect", "release"} {
		if err := d.Dispatch(Command{Command: name}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if err := d.Dispatch(Command{Command: "flip", Axis: "x"}); err != nil {
		t.Errorf("flip: %v", err)
	}
}

func TestDispatch_SelectAndManipulate(t *testing.T) {
	ed, d, out, _ := newTestBridge(t)

	cmds := []string{
		`{"command": "create-navigation-point", "label": "Lobby", "isSource": true, "position": [0, 0, 5]}`,
		`{"command": "select-at", "origin": [0, 0, 0], "direction": [0, 0, 1]}`,
	}
	for _, c := range cmds {
		if err := d.DispatchJSON([]byte(c)); err != nil {
			t.Fatalf("%s: %v", c, err)
		}
	}
	ed.Tick(0.016)

	obj := ed.Selected()
	if obj == nil {
		t.Fatal("expected the point to be selected")
	}
	if obj.Nav.Label != "Lobby" || !obj.Nav.IsSource || obj.Nav.IsDestination {
		t.Errorf("nav info = %+v", obj.Nav)
	}

	if err := d.DispatchJSON([]byte(`{"command": "hold", "mode": "scale-axis", "axis": "y", "sign": 1}`)); err != nil {
		t.Fatal(err)
	}
	ed.Tick(0.016)
	ed.Tick(0.016)
	if err := d.DispatchJSON([]byte(`{"command": "release"}`)); err != nil {
		t.Fatal(err)
	}
	ed.Tick(0.016)
	if got := obj.Transform().Scale.Y(); got < 1.019 || got > 1.021 {
		t.Errorf("scale y = %f, want 1.02", got)
	}

	if err := d.DispatchJSON([]byte(`{"command": "frame-selection", "fov": 60}`)); err != nil {
		t.Fatal(err)
	}

	ns := readNotifications(t, out)
	if len(ofEvent(ns, "status")) != 1 {
		t.Errorf("expected one status notification, got %+v", ns)
	}
	fits := ofEvent(ns, "camera-fit")
	if len(fits) != 1 || fits[0].Center == nil || fits[0].Center[2] != 5 || fits[0].Distance <= 0 {
		t.Errorf("camera-fit = %+v", fits)
	}

	if err := d.DispatchJSON([]byte(`{"command": "delete-selected"}`)); err != nil {
		t.Fatal(err)
	}
	if ed.Scene().Len() != 0 {
		t.Error("object not deleted")
	}
}

func TestDispatch_SelectAtScreen(t *testing.T) {
	ed, d, _, _ := newTestBridge(t)
	cmds := []string{
		`{"command": "create-navigation-point", "label": "Desk", "position": [0, 1, 0]}`,
		`{"command": "set-camera", "origin": [0, 1, -8], "forward": [0, 0, 1]}`,
		`{"command": "select-at-screen", "x": 640, "y": 360, "width": 1280, "height": 720}`,
	}
	for _, c := range cmds {
		if err := d.DispatchJSON([]byte(c)); err != nil {
			t.Fatalf("%s: %v", c, err)
		}
	}
	ed.Tick(0.016)
	if obj := ed.Selected(); obj == nil || obj.Nav.Label != "Desk" {
		t.Errorf("selected %v, want Desk", obj)
	}
}

func TestDispatch_LockInput(t *testing.T) {
	ed, d, _, _ := newTestBridge(t)
	_ = d.DispatchJSON([]byte(`{"command": "create-navigation-point", "position": [0, 0, 5]}`))
	_ = d.DispatchJSON([]byte(`{"command": "lock-input", "locked": true}`))
	_ = d.DispatchJSON([]byte(`{"command": "select-at", "origin": [0, 0, 0], "direction": [0, 0, 1]}`))
	ed.Tick(0.016)

	if !ed.InputLocked() || ed.Selected() != nil {
		t.Error("selection should be suppressed while locked")
	}
}

func TestDispatch_ImportModel(t *testing.T) {
	ed, d, out, _ := newTestBridge(t)

	payload := base64.StdEncoding.EncodeToString([]byte(triOBJ))
	if err := d.Dispatch(Command{Command: "import-model", Data: payload, Name: "tri"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(Command{Command: "import-model", Data: "!!!"}); err != nil {
		t.Fatal(err)
	}
	ed.Runner().Wait()
	ed.Tick(0.016)

	ns := readNotifications(t, out)
	done := ofEvent(ns, "import-complete")
	if len(done) != 1 || ed.Scene().Get(done[0].ID) == nil {
		t.Errorf("import-complete = %+v", done)
	}
	failed := ofEvent(ns, "import-failed")
	if len(failed) != 1 || failed[0].Reason == "" {
		t.Errorf("import-failed = %+v", failed)
	}
}

func TestServe_ExportOnEOF(t *testing.T) {
	ed, d, out, n := newTestBridge(t)

	input := strings.Join([]string{
		`{"command": "create-navigation-point", "label": "A", "position": [1, 2, 3]}`,
		``,
		`garbage`,
		`{"command": "export-scene"}`,
	}, "\n")

	err := Serve(context.Background(), strings.NewReader(input), d, n, ed, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}

	ns := readNotifications(t, out)
	exports := ofEvent(ns, "export-complete")
	if len(exports) != 1 || len(exports[0].Data) == 0 {
		t.Fatalf("export-complete = %+v", exports)
	}

	var failed int
	for _, s := range ofEvent(ns, "status") {
		if strings.HasPrefix(s.Message, "command failed") {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected one failed-command status, got %d", failed)
	}

	// The exported archive loads back into a fresh editor.
	ed2, d2, out2, _ := newTestBridge(t)
	if err := d2.Dispatch(Command{Command: "import-scene", Data: base64.StdEncoding.EncodeToString(exports[0].Data)}); err != nil {
		t.Fatal(err)
	}
	ed2.Runner().Wait()
	ed2.Tick(0.016)
	if ed2.Scene().Count(scene.KindNavigationPoint) != 1 {
		t.Errorf("reimported scene: %+v", readNotifications(t, out2))
	}
}

func TestServe_ContextCancel(t *testing.T) {
	ed, d, _, n := newTestBridge(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, pr, d, n, ed, time.Millisecond)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
