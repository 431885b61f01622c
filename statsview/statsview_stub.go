//go:build !statsview

package statsview

import "log/slog"

// Does nothing, the binary was built without the statsview tag
func Launch(logger *slog.Logger) (stop func()) {
	logger.Warn("statsview: not available, rebuild with -tags statsview")
	return func() {}
}

func Available() bool {
	return false
}
