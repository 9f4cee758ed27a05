package bridge

import (
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/editor"
	"github.com/Faultbox/navscene/internal/logger"
)

// Notification is one outbound host message.
type Notification struct {
	Event    string      `json:"event"`
	ID       string      `json:"id,omitempty"`
	IDs      []string    `json:"ids,omitempty"`
	Path     string      `json:"path,omitempty"`
	Data     []byte      `json:"data,omitempty"` // base64 in JSON
	Reason   string      `json:"reason,omitempty"`
	Message  string      `json:"message,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Center   *[3]float32 `json:"center,omitempty"`
	Distance float32     `json:"distance,omitempty"`
}

// FromEvent converts an editor event to its notification form.
func FromEvent(ev editor.Event) Notification {
	n := Notification{Event: string(ev.Kind)}

	switch ev.Kind {
	case editor.EventImportComplete:
		if len(ev.ObjectIDs) == 1 {
			n.ID = ev.ObjectIDs[0]
		} else {
			n.IDs = ev.ObjectIDs
		}
	case editor.EventImportFailed, editor.EventExportFailed:
		n.Reason = ev.Message
	case editor.EventExportComplete:
		n.Path = ev.Path
		n.Data = ev.Data
	case editor.EventStatus:
		n.Message = ev.Message
	case editor.EventCameraFit:
		c := [3]float32(ev.Center)
		n.Center = &c
		n.Distance = ev.Distance
	}

	for _, w := range multierr.Errors(ev.Warnings) {
		n.Warnings = append(n.Warnings, w.Error())
	}
	return n
}

// Notifier writes notifications as JSON lines.
type Notifier struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNotifier creates a notifier writing to w.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{enc: json.NewEncoder(w)}
}

// Notify writes ev. Its signature matches editor.EventHandler.
func (n *Notifier) Notify(ev editor.Event) {
	n.Send(FromEvent(ev))
}

// Status writes a status notification.
func (n *Notifier) Status(msg string) {
	n.Send(Notification{Event: string(editor.EventStatus), Message: msg})
}

// Send writes one notification.
func (n *Notifier) Send(msg Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.enc.Encode(msg); err != nil {
		logger.Warn("notification dropped", zap.String("event", msg.Event), zap.Error(err))
	}
}
