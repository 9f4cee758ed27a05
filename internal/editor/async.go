package editor

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/archive"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/internal/tasks"
)

// ImportModel decodes mesh text in the background. The object is added to
// the scene on a later tick; failures leave the scene untouched.
func (e *Editor) ImportModel(name string, data []byte) {
	e.submitModel(name, func() (*scene.Object, error) {
		return e.pipeline.ImportFromBytes(name, data)
	})
}

// ImportModelBase64 is ImportModel for a base64 payload.
func (e *Editor) ImportModelBase64(name, payload string) {
	e.submitModel(name, func() (*scene.Object, error) {
		return e.pipeline.ImportFromBase64(name, payload)
	})
}

// ImportModelFile is ImportModel for a mesh file on disk.
func (e *Editor) ImportModelFile(path string) {
	e.submitModel(path, func() (*scene.Object, error) {
		return e.pipeline.ImportFromPath(path)
	})
}

func (e *Editor) submitModel(source string, work func() (*scene.Object, error)) {
	tasks.Submit(e.runner, "import "+source, work, func(obj *scene.Object, err error) {
		if err != nil {
			logger.Warn("model import failed", zap.String("source", source), zap.Error(err))
			e.opts.OnEvent(Event{Kind: EventImportFailed, Message: err.Error(), Err: err})
			return
		}
		e.scene.Add(obj)
		t := obj.Transform()
		e.opts.OnEvent(Event{Kind: EventImportComplete, ObjectIDs: []string{obj.ID}})
		e.status(fmt.Sprintf("imported %s: position %s, scale %s",
			obj.Name, logger.FormatVec3(t.Position), logger.FormatVec3(t.Scale)))
	})
}

// ImportScene reconstructs a scene from archive bytes in the background and,
// on success, replaces the live scene with it in one step.
func (e *Editor) ImportScene(data []byte) {
	e.submitScene("archive", func() (*archive.Result, error) {
		return archive.Import(data, e.pipeline, e.opts.ScratchDir)
	})
}

// ImportSceneFile is ImportScene for an archive on disk.
func (e *Editor) ImportSceneFile(path string) {
	e.submitScene(path, func() (*archive.Result, error) {
		return archive.ImportFile(path, e.pipeline, e.opts.ScratchDir)
	})
}

func (e *Editor) submitScene(source string, work func() (*archive.Result, error)) {
	tasks.Submit(e.runner, "import scene "+source, work, func(res *archive.Result, err error) {
		if err != nil {
			logger.Warn("scene import failed", zap.String("source", source), zap.Error(err))
			e.opts.OnEvent(Event{Kind: EventImportFailed, Message: err.Error(), Err: err})
			return
		}
		if prev := e.scene.Selected(); prev != nil {
			e.opts.Highlighter.Unhighlight(prev)
		}
		e.held = Held{}
		e.scene.Replace(res.Objects)

		ids := make([]string, len(res.Objects))
		for i, obj := range res.Objects {
			ids[i] = obj.ID
		}
		e.opts.OnEvent(Event{Kind: EventImportComplete, ObjectIDs: ids, Warnings: res.Warnings})
		for _, w := range multierr.Errors(res.Warnings) {
			e.status(w.Error())
		}
	})
}

// ExportScene archives a snapshot of the scene in the background. With an
// empty path the archive bytes are delivered in the export-complete event.
func (e *Editor) ExportScene(path string) {
	snap := e.scene.Snapshot()

	type exported struct {
		data   []byte
		report *archive.Report
	}
	work := func() (exported, error) {
		if path == "" {
			data, report, err := archive.Export(snap)
			return exported{data: data, report: report}, err
		}
		report, err := archive.ExportToFile(snap, path)
		return exported{report: report}, err
	}

	tasks.Submit(e.runner, "export", work, func(out exported, err error) {
		if err != nil {
			logger.Warn("scene export failed", zap.String("path", path), zap.Error(err))
			e.opts.OnEvent(Event{Kind: EventExportFailed, Message: err.Error(), Err: err})
			return
		}
		var warnings error
		if out.report != nil {
			warnings = out.report.Warnings
		}
		e.opts.OnEvent(Event{Kind: EventExportComplete, Path: path, Data: out.data, Warnings: warnings})
		for _, w := range multierr.Errors(warnings) {
			e.status(w.Error())
		}
	})
}
