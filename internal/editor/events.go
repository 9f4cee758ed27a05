package editor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// EventKind names an outbound notification.
type EventKind string

// Event kinds.
const (
	EventImportComplete EventKind = "import-complete"
	EventImportFailed   EventKind = "import-failed"
	EventExportComplete EventKind = "export-complete"
	EventExportFailed   EventKind = "export-failed"
	EventStatus         EventKind = "status"
	EventCameraFit      EventKind = "camera-fit"
)

// Event is a notification for the host.
type Event struct {
	Kind      EventKind
	ObjectIDs []string   // Import: objects added to the scene
	Path      string     // Export: written archive path
	Data      []byte     // Export: archive bytes when no path was given
	Message   string     // Status text or failure reason
	Err       error      // Failure cause
	Warnings  error      // Non-fatal per-object problems
	Center    mgl32.Vec3 // Camera fit target
	Distance  float32    // Camera fit distance
}

// EventHandler receives editor notifications. It is called on the tick goroutine.
type EventHandler func(Event)
