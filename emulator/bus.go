package emulator

// The device that owns the system bus during a tick
type BusMaster int

const (
	BUS_MASTER_CPU BusMaster = iota // CPU is fetching and executing
	BUS_MASTER_DMA BusMaster = iota // A DMA transfer is in progress, the CPU is stalled
)

func (master BusMaster) String() string {
	switch master {
	case BUS_MASTER_CPU:
		return "cpu"
	case BUS_MASTER_DMA:
		return "dma"
	}
	return "unknown"
}

// Memory interface used by bus masters. Implemented by the Interconnect
type Bus interface {
	Load8(addr uint32) uint8
	Load16(addr uint32) uint16
	Load32(addr uint32) uint32
	Store8(addr uint32, val uint8)
	Store16(addr uint32, val uint16)
	Store32(addr uint32, val uint32)
}
