package emulator

// Size of a sound FIFO in bytes
const FIFO_SIZE = 32

// Holds the 8 bit PCM samples queued for a direct sound channel
type FIFO struct {
	Buffer   [FIFO_SIZE]byte
	WritePtr uint8 // Write pointer (5 bits and carry)
	ReadPtr  uint8 // Read pointer (5 bits and carry)
}

// Returns a new FIFO instance
func NewFIFO() *FIFO {
	return &FIFO{}
}

// No sample queued: both pointers and their carries match
func (fifo *FIFO) IsEmpty() bool {
	return fifo.WritePtr == fifo.ReadPtr
}

// All 32 samples queued: same slot, opposite carry
func (fifo *FIFO) IsFull() bool {
	return fifo.WritePtr == fifo.ReadPtr^FIFO_SIZE
}

// Drops every queued sample, done by the SOUNDCNT_H reset bits
func (fifo *FIFO) Clear() {
	fifo.ReadPtr = 0
	fifo.WritePtr = 0
	fifo.Buffer = [FIFO_SIZE]byte{}
}

// Pushes a value to the FIFO. Writes to a full FIFO are dropped
func (fifo *FIFO) Push(val byte) {
	if fifo.IsFull() {
		return
	}
	fifo.Buffer[fifo.WritePtr&(FIFO_SIZE-1)] = val
	fifo.WritePtr = (fifo.WritePtr + 1) & (FIFO_SIZE*2 - 1)
}

// Pushes the 4 bytes of `word`, lowest first
func (fifo *FIFO) PushWord(word uint32) {
	for i := uint32(0); i < 4; i++ {
		fifo.Push(byte(word >> (i * 8)))
	}
}

// Takes the oldest sample. Callers check IsEmpty first, an empty FIFO
// returns stale data
func (fifo *FIFO) Pop() byte {
	idx := fifo.ReadPtr & (FIFO_SIZE - 1)
	fifo.ReadPtr = (fifo.ReadPtr + 1) & (FIFO_SIZE*2 - 1)
	return fifo.Buffer[idx]
}

// Number of queued samples
func (fifo *FIFO) Length() uint8 {
	return (fifo.WritePtr - fifo.ReadPtr) & (FIFO_SIZE*2 - 1)
}
