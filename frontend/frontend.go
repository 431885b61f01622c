// Package frontend connects a machine to the outside world: it receives the
// finished frames, supplies the key state and owns the run loop
package frontend

import (
	"context"

	"github.com/zeozeozeo/gogba/emulator"
)

// A frame consumer and key source that drives a run. `run` is executed
// with a context the frontend cancels when it wants the machine to stop
type Frontend interface {
	emulator.FrameSink
	emulator.InputSource
	Run(ctx context.Context, run func(ctx context.Context) error) error
}

var (
	_ Frontend = (*Headless)(nil)
	_ Frontend = (*Ebiten)(nil)
)

// Percentage of bus steps that went to DMA transfers
func DMAShare(stats emulator.Stats) float64 {
	total := stats.Cpu + stats.Dma
	if total == 0 {
		return 0
	}
	return float64(stats.Dma) * 100 / float64(total)
}
