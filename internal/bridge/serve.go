package bridge

import (
	"bufio"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/editor"
	"github.com/Faultbox/navscene/internal/logger"
)

// maxCommandBytes bounds one command line; archive payloads arrive inline.
const maxCommandBytes = 256 << 20

// Serve reads JSON-lines commands from r and runs the editor tick loop until
// ctx is done or r is exhausted. Commands and ticks run on the calling
// goroutine, so the editor is never touched concurrently. Command errors are
// reported as status notifications.
func Serve(ctx context.Context, r io.Reader, d *Dispatcher, n *Notifier, ed *editor.Editor, interval time.Duration) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxCommandBytes)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			// Let in-flight work finish so its notifications are delivered.
			ed.Runner().Wait()
			ed.Tick(float32(time.Since(last).Seconds()))
			return err

		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			if err := d.DispatchJSON(line); err != nil {
				logger.Warn("command failed", zap.Error(err))
				n.Status("command failed: " + err.Error())
			}

		case now := <-ticker.C:
			ed.Tick(float32(now.Sub(last).Seconds()))
			last = now
		}
	}
}
