// Package scriptapi implements the `Test.<op>(...)` operations a running
// script calls: resolve a widget id path to a live widget (getWidget),
// marshal synthetic input to the GUI thread, and raise a script-visible
// error on resolution failure or timeout.
package scriptapi

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/guiexec"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// Clock is the time seam getWidget's poll loop uses, so tests don't sleep
// in wall time.
type Clock struct {
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// RealClock returns a Clock backed by the real wall clock.
func RealClock() Clock {
	return Clock{Now: time.Now, After: time.After}
}

// Stepper is the narrow surface Surface needs from the script runner: the
// per-operation tracing/screenshot checkpoint, and a way to raise a
// script-visible error from a callback running on the worker thread.
type Stepper interface {
	Checkpoint(label string)
	ThrowError(message string)
}

// Config bounds getWidget's polling and the GUI-thread invoke timeout.
type Config struct {
	WaitWidgetTimeout time.Duration
	GuiTimeout        time.Duration
	PollInterval      time.Duration
	DemoStepDelay     time.Duration
	DemoPxDelay       time.Duration
}

// DefaultConfig mirrors the original's constants: 70ms widget poll, a 15s
// widget-appear budget, a 10s GUI-thread round-trip budget, and demonstration
// mode's ~200ms step pause / ~6ms-per-pixel cursor glide.
func DefaultConfig() Config {
	return Config{
		WaitWidgetTimeout: 15 * time.Second,
		GuiTimeout:        10 * time.Second,
		PollInterval:      70 * time.Millisecond,
		DemoStepDelay:     200 * time.Millisecond,
		DemoPxDelay:       6 * time.Millisecond,
	}
}

// Surface is the script-facing API: every exported method here is one
// `Test.<op>` operation.
type Surface struct {
	app     toolkit.Application
	synth   toolkit.InputSynth
	invoker *guiexec.Invoker
	step    Stepper
	emitLog func(string)

	cfg   Config
	clock Clock
	ctx   context.Context

	demo atomic.Bool
}

// New builds a Surface. Its context carries no GUI-thread marker: Surface
// always runs on the worker thread.
func New(app toolkit.Application, synth toolkit.InputSynth, invoker *guiexec.Invoker, step Stepper, emitLog func(string)) *Surface {
	return &Surface{
		app:     app,
		synth:   synth,
		invoker: invoker,
		step:    step,
		emitLog: emitLog,
		cfg:     DefaultConfig(),
		clock:   RealClock(),
		ctx:     context.Background(),
	}
}

// SetConfig overrides the default timeouts/intervals.
func (s *Surface) SetConfig(cfg Config) { s.cfg = cfg }

// SetClock overrides the time seam, for deterministic tests.
func (s *Surface) SetClock(c Clock) { s.clock = c }

// takeStep calls the checkpoint hook and, in demonstration mode, pauses
// briefly so a human watching can follow along.
func (s *Surface) takeStep(label string) {
	s.step.Checkpoint(label)
	if s.demo.Load() {
		<-s.clock.After(s.cfg.DemoStepDelay)
	}
}

func (s *Surface) fail(format string, args ...any) {
	s.step.ThrowError(fmt.Sprintf(format, args...))
}

func (s *Surface) runInGui(f func()) bool {
	err := s.invoker.RunInGuiWithTimeout(s.ctx, f, s.cfg.GuiTimeout)
	if err != nil {
		s.fail("timed out waiting for the GUI thread: %v", err)
		return false
	}
	return true
}

// --- getWidget -------------------------------------------------------

var classNameRx = regexp.MustCompile(`^<class_name=([^,>]+)(?:,(\d+))?>$`)

func parseSegment(seg string) (name, class string, order int) {
	if m := classNameRx.FindStringSubmatch(seg); m != nil {
		class = m[1]
		if m[2] != "" {
			order, _ = strconv.Atoi(m[2])
		}
		return "", class, order
	}
	return seg, "", 0
}

func matchesSegment(w toolkit.Widget, name, class string) bool {
	if class != "" {
		return w.ClassName() == class
	}
	return w.ObjectName() == name
}

func passesEnabled(w toolkit.Widget, requireEnabled bool) bool {
	return !requireEnabled || (w.IsVisible() && w.IsEnabled())
}

// bruteForceSegment scans every widget in the application for one matching
// seg, the original's "bruteForceWidgetSearch".
func (s *Surface) bruteForceSegment(seg string, requireEnabled bool) toolkit.Widget {
	name, class, _ := parseSegment(seg)
	for _, w := range s.app.AllWidgets() {
		if matchesSegment(w, name, class) && passesEnabled(w, requireEnabled) {
			return w
		}
	}
	return nil
}

// findChildSegment looks for seg among parent's direct children, honoring
// a class segment's order index among same-class matches.
func findChildSegment(parent toolkit.Widget, seg string, requireEnabled bool) toolkit.Widget {
	name, class, order := parseSegment(seg)
	count := 0
	for _, child := range parent.Children() {
		if !matchesSegment(child, name, class) {
			continue
		}
		if !passesEnabled(child, requireEnabled) {
			continue
		}
		if count != order {
			count++
			continue
		}
		return child
	}
	return nil
}

// topLevelOf walks up to the root ancestor.
func topLevelOf(w toolkit.Widget) toolkit.Widget {
	for w.Parent() != nil {
		w = w.Parent()
	}
	return w
}

// onScreen verifies w's global-center point resolves back to a widget
// inside the same top-level window, or that w is itself top-level.
func (s *Surface) onScreen(w toolkit.Widget) bool {
	if w.IsTopLevel() {
		return true
	}
	at := s.app.WidgetAt(w.GlobalCenter())
	if at == nil {
		return false
	}
	return topLevelOf(at) == topLevelOf(w)
}

func (s *Surface) resolveOnce(pathID string, requireEnabled bool) toolkit.Widget {
	segs := strings.Split(pathID, ".")
	if len(segs) == 0 || segs[0] == "" {
		return nil
	}
	w := s.bruteForceSegment(segs[0], requireEnabled)
	if w == nil {
		return nil
	}
	for _, seg := range segs[1:] {
		next := findChildSegment(w, seg, requireEnabled)
		if next == nil {
			next = s.bruteForceSegment(seg, requireEnabled)
			if next == nil {
				return nil
			}
		}
		w = next
	}
	if !s.onScreen(w) {
		return nil
	}
	return w
}

// getWidget polls every PollInterval up to WaitWidgetTimeout, resolving
// pathID to a live, on-screen widget (and, if requireEnabled, a visible and
// enabled one).
func (s *Surface) getWidget(pathID string, requireEnabled bool) (toolkit.Widget, error) {
	deadline := s.clock.Now().Add(s.cfg.WaitWidgetTimeout)
	for {
		if w := s.resolveOnce(pathID, requireEnabled); w != nil {
			return w, nil
		}
		if !s.clock.Now().Before(deadline) {
			return nil, fmt.Errorf("can not find widget with such name %s", pathID)
		}
		<-s.clock.After(s.cfg.PollInterval)
	}
}

// GetObjectById resolves a widget id path without requiring it be enabled,
// for scripts that just want to test for presence.
func (s *Surface) GetObjectById(pathID string) (toolkit.Widget, error) {
	return s.getWidget(pathID, false)
}
