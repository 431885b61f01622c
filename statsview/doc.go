// Package statsview serves live runtime statistics of the emulator process
// over HTTP. The server is only compiled in with the statsview build tag:
//
//	go build -tags statsview
//
// Graphs are then available at localhost:12600/debug/statsview and the
// standard pprof endpoints at localhost:12600/debug/pprof/
package statsview

// Listen address of the statistics server
const Address = "localhost:12600"

const path = "/debug/statsview"

// Returns the page showing the graphs
func URL() string {
	return "http://" + Address + path
}
