//go:build headless

package frontend

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zeozeozeo/gogba/emulator"
)

// Returned by NewEbiten in binaries built without a window
var ErrNoWindow = errors.New("frontend: built with the headless tag, no window available")

type EbitenOptions struct {
	Title  string
	Scale  int
	Keymap map[string]string
	Stats  func() emulator.Stats
	Logger *slog.Logger
}

type Ebiten struct{}

func NewEbiten(opts EbitenOptions) (*Ebiten, error) {
	return nil, ErrNoWindow
}

func (e *Ebiten) Poll() uint16 {
	return emulator.KEYS_RELEASED
}

func (e *Ebiten) PresentFrame(frame *emulator.Frame) {}

func (e *Ebiten) Run(ctx context.Context, run func(ctx context.Context) error) error {
	return ErrNoWindow
}
