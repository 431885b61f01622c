//go:build !headless

package frontend

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/zeozeozeo/gogba/emulator"
	"golang.org/x/image/font/basicfont"
)

// Returned from Update to leave the game loop once the machine stopped
var errMachineStopped = errors.New("frontend: machine stopped")

type EbitenOptions struct {
	Title  string
	Scale  int
	Keymap map[string]string // Button name to key name
	Stats  func() emulator.Stats
	Logger *slog.Logger
}

// A window showing the frames of a machine. The machine runs in its own
// goroutine, frames and key state cross over under a mutex
type Ebiten struct {
	title  string
	scale  int
	keys   map[emulator.Button]ebiten.Key
	stats  func() emulator.Stats
	logger *slog.Logger

	mu         sync.Mutex
	pixels     []byte
	dirty      bool
	snapshot   emulator.Stats
	pad        *emulator.Pad
	showStatus bool

	screen *ebiten.Image
	shade  *ebiten.Image
	done   chan struct{}
}

// Returns a window frontend. Every button must be bound to a known key
func NewEbiten(opts EbitenOptions) (*Ebiten, error) {
	keys, err := resolveKeymap(opts.Keymap)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scale := opts.Scale
	if scale < 1 {
		scale = 1
	}

	return &Ebiten{
		title:  opts.Title,
		scale:  scale,
		keys:   keys,
		stats:  opts.Stats,
		logger: logger,
		pixels: make([]byte, emulator.SCREEN_WIDTH*emulator.SCREEN_HEIGHT*4),
		pad:    emulator.NewPad(),
	}, nil
}

// Maps button names to ebiten keys. Key names are matched case
// insensitively against ebiten.Key.String
func resolveKeymap(keymap map[string]string) (map[emulator.Button]ebiten.Key, error) {
	byName := make(map[string]ebiten.Key)
	for key := ebiten.Key(0); key <= ebiten.KeyMax; key++ {
		byName[strings.ToLower(key.String())] = key
	}

	keys := make(map[emulator.Button]ebiten.Key, len(keymap))
	for buttonName, keyName := range keymap {
		button, ok := emulator.ButtonByName(strings.ToLower(buttonName))
		if !ok {
			return nil, fmt.Errorf("keymap: unknown button %q", buttonName)
		}
		key, ok := byName[strings.ToLower(keyName)]
		if !ok {
			return nil, fmt.Errorf("keymap: unknown key %q for button %q", keyName, buttonName)
		}
		keys[button] = key
	}

	for _, button := range emulator.Buttons {
		if _, ok := keys[button]; !ok {
			return nil, fmt.Errorf("keymap: button %q is not bound", button)
		}
	}
	return keys, nil
}

// Called from the machine goroutine
func (e *Ebiten) Poll() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pad.Poll()
}

// Called from the machine goroutine on every vblank
func (e *Ebiten) PresentFrame(frame *emulator.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	frame.CopyRGBA(e.pixels)
	e.dirty = true
	if e.stats != nil {
		e.snapshot = e.stats()
	}
}

// Opens the window and runs the machine until the window is closed or the
// machine stops. Closing the window cancels the context given to `run`
func (e *Ebiten) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var runErr error
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		runErr = run(ctx)
	}()

	ebiten.SetWindowTitle(e.title)
	ebiten.SetWindowSize(emulator.SCREEN_WIDTH*e.scale, emulator.SCREEN_HEIGHT*e.scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err := ebiten.RunGame(e)
	cancel()
	<-e.done

	if err != nil && !errors.Is(err, errMachineStopped) {
		return err
	}
	if err == nil {
		e.logger.Debug("frontend: window closed")
	}
	return runErr
}

func (e *Ebiten) Update() error {
	select {
	case <-e.done:
		return errMachineStopped
	default:
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		e.mu.Lock()
		e.showStatus = !e.showStatus
		e.mu.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	e.mu.Lock()
	for button, key := range e.keys {
		if ebiten.IsKeyPressed(key) {
			e.pad.SetButtonState(button, emulator.BUTTON_STATE_PRESSED)
		} else {
			e.pad.SetButtonState(button, emulator.BUTTON_STATE_RELEASED)
		}
	}
	e.mu.Unlock()
	return nil
}

func (e *Ebiten) Draw(screen *ebiten.Image) {
	if e.screen == nil {
		e.screen = ebiten.NewImage(emulator.SCREEN_WIDTH, emulator.SCREEN_HEIGHT)
	}

	e.mu.Lock()
	if e.dirty {
		e.screen.ReplacePixels(e.pixels)
		e.dirty = false
	}
	showStatus := e.showStatus
	stats := e.snapshot
	e.mu.Unlock()

	screen.DrawImage(e.screen, nil)
	if showStatus {
		e.drawStatus(screen, stats)
	}
}

func (e *Ebiten) Layout(_, _ int) (int, int) {
	return emulator.SCREEN_WIDTH, emulator.SCREEN_HEIGHT
}

var (
	statusShade = color.RGBA{0, 0, 0, 160}
	statusColor = color.RGBA{0, 220, 90, 255}
)

// Draws the frame counters and the bus share of the DMA controller
func (e *Ebiten) drawStatus(screen *ebiten.Image, stats emulator.Stats) {
	face := basicfont.Face7x13
	lines := []string{
		fmt.Sprintf("FPS %.1f", ebiten.ActualFPS()),
		"frame " + humanize.Comma(int64(stats.Frames)),
		"tick  " + humanize.Comma(int64(stats.Ticks)),
		fmt.Sprintf("dma   %.2f%%", DMAShare(stats)),
	}

	if e.shade == nil {
		e.shade = ebiten.NewImage(emulator.SCREEN_WIDTH, len(lines)*13+6)
		e.shade.Fill(statusShade)
	}
	screen.DrawImage(e.shade, nil)

	for i, line := range lines {
		text.Draw(screen, line, face, 4, 13*(i+1), statusColor)
	}
}
