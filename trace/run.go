// Package trace keeps the on-disk record of one automation run.
//
// Information Hiding:
// - Run directory naming and file layout
// - Frame index allocation (monotonic, never reused)
// - Which frame is current and which was last described
//
// A RunContext is driven by a single flow. It carries no locks.
package trace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RunDirLayout is the time layout of run directory names.
const RunDirLayout = "20060102_150405"

const noFrame = -1

// RunContext is one automation session: its identity, root directory and
// frame counter.
type RunContext struct {
	ID        string
	Root      string
	CreatedAt time.Time

	next          int
	current       int
	lastDescribed int
}

// NewRun creates baseDir/run-YYYYMMDD_HHMMSS. If that directory already
// exists a numeric suffix is appended so two runs never share a root.
func NewRun(baseDir string, now time.Time) (*RunContext, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}

	name := "run-" + now.Format(RunDirLayout)
	root := filepath.Join(baseDir, name)
	for n := 2; ; n++ {
		err := os.Mkdir(root, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create run dir: %w", err)
		}
		root = filepath.Join(baseDir, name+"-"+strconv.Itoa(n))
	}

	return newRunContext(root, now), nil
}

// NewRunAt uses root as the run directory, creating it if needed.
func NewRunAt(root string, now time.Time) (*RunContext, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return newRunContext(root, now), nil
}

func newRunContext(root string, now time.Time) *RunContext {
	return &RunContext{
		ID:            uuid.NewString(),
		Root:          root,
		CreatedAt:     now,
		current:       noFrame,
		lastDescribed: noFrame,
	}
}

// Name returns the base name of the run directory.
func (r *RunContext) Name() string {
	return filepath.Base(r.Root)
}

// ScreenshotPath returns the raw image path for frame i.
func (r *RunContext) ScreenshotPath(i int) string {
	return filepath.Join(r.Root, fmt.Sprintf("screenshot_%d.png", i))
}

// AnnotatedPath returns the annotated image path for frame i.
func (r *RunContext) AnnotatedPath(i int) string {
	return filepath.Join(r.Root, fmt.Sprintf("screenshot_%d_annotated.png", i))
}

// DescriptionPath returns the scene report path for frame i.
func (r *RunContext) DescriptionPath(i int) string {
	return filepath.Join(r.Root, fmt.Sprintf("screenshot_%d.txt", i))
}

// PromptPath returns the path of the task prompt.
func (r *RunContext) PromptPath() string {
	return filepath.Join(r.Root, "prompt.txt")
}

// Current returns the most recently allocated frame index, whether or not
// its write succeeded.
func (r *RunContext) Current() (int, bool) {
	return r.current, r.current != noFrame
}

// LastDescribed returns the index of the last frame a scene report was written for.
func (r *RunContext) LastDescribed() (int, bool) {
	return r.lastDescribed, r.lastDescribed != noFrame
}

// Allocated returns how many indices have been handed out.
func (r *RunContext) Allocated() int {
	return r.next
}

// allocate hands out the next index and makes it current. Indices are
// consumed even if the subsequent write fails.
func (r *RunContext) allocate() int {
	i := r.next
	r.next++
	r.current = i
	return i
}

func (r *RunContext) markDescribed(i int) {
	if i > r.lastDescribed {
		r.lastDescribed = i
	}
}
