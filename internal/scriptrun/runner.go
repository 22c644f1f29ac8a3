// Package scriptrun evaluates one script fragment at a time, surfacing a
// structured failure (backtrace, failing line, exception message) on error
// and driving the checkpoint/tracing/screenshot hooks the script API surface
// calls before every user-visible action.
package scriptrun

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehrlich-b/deskmonkey/internal/interp"
	"github.com/ehrlich-b/deskmonkey/internal/logging"
	"github.com/ehrlich-b/deskmonkey/internal/shared"
)

// ScreenshotConfig configures the optional checkpoint screenshot dump. A
// zero value disables it (Dir == "").
type ScreenshotConfig struct {
	Dir       string
	Retention int // keep at most this many files, pruned by mtime; 0 means unlimited
	BaseName  string
}

// Snapshotter captures the current screen state, standing in for whatever
// widget/backbuffer capture the concrete toolkit adapter provides. Runner
// treats a nil Snapshotter as "screenshots unavailable" and skips the dump.
type Snapshotter interface {
	Snapshot() (image.Image, error)
}

// Runner evaluates fragments through an interp.Interpreter, installing
// itself as the process's shared.CurrentScriptRunner for the duration of
// each run so GUI-thread timeout reports can reach it.
type Runner struct {
	interp      interp.Interpreter
	current     *shared.CurrentScriptRunner
	tracing     bool
	shot        ScreenshotConfig
	snapshotter Snapshotter
	fileName    string
}

// New builds a Runner around interpreter, registering into current (the
// process-wide scoped register of the running script) during each Run.
func New(interpreter interp.Interpreter, current *shared.CurrentScriptRunner) *Runner {
	return &Runner{interp: interpreter, current: current}
}

// SetTracing turns checkpoint line-logging on or off.
func (r *Runner) SetTracing(on bool) { r.tracing = on }

// SetScreenshots configures checkpoint screenshot dumping. snapshotter may
// be nil, in which case checkpoints log but never write a file.
func (r *Runner) SetScreenshots(cfg ScreenshotConfig, snapshotter Snapshotter) {
	r.shot = cfg
	r.snapshotter = snapshotter
}

// Failure is the structured outcome of a failed Run, re-exported from interp
// so callers of this package don't need to import interp directly.
type Failure = interp.Failure

// Run evaluates one fragment. dispatch is called once per parsed statement;
// it should execute the corresponding script API operation and return its
// error, if any. Run installs itself as the current script runner for the
// duration of the call.
func (r *Runner) Run(fileName, code string, dispatch func(interp.Call) error) *Failure {
	r.fileName = fileName
	restore := r.current.Enter(r)
	defer restore()

	res := r.interp.Eval(fileName, code, dispatch)
	return res.Err
}

// ReportTimeout implements shared.ScriptRunner: a GUI-thread call took too
// long. It surfaces through the same ThrowError path a script-level failure
// would, so the statement whose dispatch is in progress fails with it.
func (r *Runner) ReportTimeout(callDescription string) {
	logging.Warn("gui thread call timed out", "call", callDescription)
	r.interp.ThrowError(fmt.Sprintf("timed out waiting for GUI thread: %s", callDescription))
}

// CurrentLineNum reports the line currently executing, valid only while Run
// is in progress.
func (r *Runner) CurrentLineNum() int { return r.interp.CurrentLine() }

// ThrowError raises a script-visible error from a script API callback.
func (r *Runner) ThrowError(message string) { r.interp.ThrowError(message) }

// Checkpoint is called by the script API surface immediately before each
// user-visible action. It logs the current line under tracing and, if
// screenshots are configured, writes one and then prunes the directory
// down to the newest Retention files.
func (r *Runner) Checkpoint(label string) {
	line := r.interp.CurrentLine()
	if r.tracing {
		logging.Debug("script checkpoint", "file", r.fileName, "line", line, "op", label)
	}
	if r.shot.Dir == "" || r.snapshotter == nil {
		return
	}
	img, err := r.snapshotter.Snapshot()
	if err != nil {
		logging.Warn("checkpoint screenshot failed", "error", err)
		return
	}
	if err := r.writeScreenshot(img, line); err != nil {
		logging.Warn("checkpoint screenshot write failed", "error", err)
	}
}

func (r *Runner) writeScreenshot(img image.Image, line int) error {
	base := r.shot.BaseName
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(r.fileName), filepath.Ext(r.fileName))
	}
	name := fmt.Sprintf("screenshot_%s_%d.png", base, line)
	path := filepath.Join(r.shot.Dir, name)

	if err := os.MkdirAll(r.shot.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	return pruneScreenshots(r.shot.Dir, r.shot.Retention)
}

// pruneScreenshots keeps at most retention files (by newest modification
// time) in dir, deleting the rest. retention <= 0 disables pruning.
func pruneScreenshots(dir string, retention int) error {
	if retention <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	type stamped struct {
		name    string
		modTime int64
	}
	var files []stamped
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "screenshot_") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, stamped{e.Name(), info.ModTime().UnixNano()})
	}
	if len(files) <= retention {
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime > files[j].modTime })
	for _, f := range files[retention:] {
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil {
			return err
		}
	}
	return nil
}
