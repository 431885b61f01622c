//go:build statsview

package statsview

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Starts the statistics server in a new goroutine. The returned function
// shuts it down
func Launch(logger *slog.Logger) (stop func()) {
	viewer.SetConfiguration(viewer.WithAddr(Address))
	mgr := statsview.New()

	go func() {
		if err := mgr.Start(); err != nil {
			logger.Debug("statsview: server stopped", "err", err)
		}
	}()

	logger.Info("statsview: stats server available", "url", URL())
	return mgr.Stop
}

// Returns true if the statistics server was compiled in
func Available() bool {
	return true
}
