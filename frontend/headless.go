package frontend

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zeozeozeo/gogba/emulator"
)

// A scripted button change, applied once `Frame` frames were presented
type Input struct {
	Frame  uint64
	Button emulator.Button
	State  emulator.ButtonState
}

// Parses a button press of the form "button@frame" or
// "button@frame:release", for example "start@60:90". Without a release
// frame the button is held for one frame
func ParseInput(s string) ([]Input, error) {
	name, frames, ok := strings.Cut(s, "@")
	if !ok {
		return nil, fmt.Errorf("input %q: expected button@frame", s)
	}

	button, ok := emulator.ButtonByName(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return nil, fmt.Errorf("input %q: unknown button %q", s, name)
	}

	pressStr, releaseStr, hasRelease := strings.Cut(frames, ":")
	press, err := strconv.ParseUint(pressStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("input %q: bad frame %q", s, pressStr)
	}
	release := press + 1
	if hasRelease {
		release, err = strconv.ParseUint(releaseStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("input %q: bad frame %q", s, releaseStr)
		}
		if release <= press {
			return nil, fmt.Errorf("input %q: released before it is pressed", s)
		}
	}

	return []Input{
		{Frame: press, Button: button, State: emulator.BUTTON_STATE_PRESSED},
		{Frame: release, Button: button, State: emulator.BUTTON_STATE_RELEASED},
	}, nil
}

// Runs a machine without a window. Frames are counted, the run is stopped
// once `Limit` frames were presented and the key state follows `Script`
type Headless struct {
	Limit  uint64 // Frames to run, 0 runs until the context is done
	Script []Input

	mu      sync.Mutex
	pad     *emulator.Pad
	frames  uint64
	last    *emulator.Frame
	next    int // Index of the next scripted input
	cancel  context.CancelFunc
	reached bool
}

func NewHeadless(limit uint64, script []Input) *Headless {
	sorted := make([]Input, len(script))
	copy(sorted, script)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})

	headless := &Headless{
		Limit:  limit,
		Script: sorted,
		pad:    emulator.NewPad(),
	}
	headless.applyScript()
	return headless
}

func (headless *Headless) Poll() uint16 {
	headless.mu.Lock()
	defer headless.mu.Unlock()
	return headless.pad.Poll()
}

func (headless *Headless) PresentFrame(frame *emulator.Frame) {
	headless.mu.Lock()
	defer headless.mu.Unlock()

	headless.frames++
	if headless.last == nil {
		headless.last = emulator.NewFrame()
	}
	*headless.last = *frame

	headless.applyScriptLocked()

	if headless.Limit != 0 && headless.frames >= headless.Limit && !headless.reached {
		headless.reached = true
		if headless.cancel != nil {
			headless.cancel()
		}
	}
}

func (headless *Headless) applyScript() {
	headless.mu.Lock()
	defer headless.mu.Unlock()
	headless.applyScriptLocked()
}

func (headless *Headless) applyScriptLocked() {
	for headless.next < len(headless.Script) {
		input := headless.Script[headless.next]
		if input.Frame > headless.frames {
			return
		}
		headless.pad.SetButtonState(input.Button, input.State)
		headless.next++
	}
}

// Executes `run` until it returns. Reaching the frame limit is a normal
// end of the run and is reported as a nil error
func (headless *Headless) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headless.mu.Lock()
	headless.cancel = cancel
	headless.mu.Unlock()

	err := run(ctx)

	headless.mu.Lock()
	reached := headless.reached
	headless.mu.Unlock()

	if reached && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Returns the number of presented frames
func (headless *Headless) Frames() uint64 {
	headless.mu.Lock()
	defer headless.mu.Unlock()
	return headless.frames
}

// Returns a copy of the last presented frame, nil before the first one
func (headless *Headless) LastFrame() *emulator.Frame {
	headless.mu.Lock()
	defer headless.mu.Unlock()

	if headless.last == nil {
		return nil
	}
	frame := *headless.last
	return &frame
}

// Writes the last presented frame as a PNG file
func (headless *Headless) SaveScreenshot(path string) error {
	frame := headless.LastFrame()
	if frame == nil {
		return errors.New("screenshot: no frame was presented")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	if err := png.Encode(file, frame.ToImage()); err != nil {
		file.Close()
		return fmt.Errorf("screenshot: %w", err)
	}
	return file.Close()
}
