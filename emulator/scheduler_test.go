package emulator

import (
	"context"
	"errors"
	"testing"
)

var (
	errStop      = errors.New("test: stop")
	errBadOpcode = errors.New("test: bad opcode")
)

// Calls seen during one tick
type tickLog struct {
	Enabled bool // IsEnabled answered true
	Checks  int
	Cpu     int
	Dma     int
	Timer   int
	Video   int
}

// Shared call log of the fakes. The video controller runs last in every
// tick, so it moves the log to the next tick
type recorder struct {
	Ticks []tickLog
	cur   int
}

func (r *recorder) tick() *tickLog {
	for len(r.Ticks) <= r.cur {
		r.Ticks = append(r.Ticks, tickLog{})
	}
	return &r.Ticks[r.cur]
}

type fakeCPU struct {
	rec    *recorder
	failAt int // Tick index the CPU faults in, -1 for never
}

func (cpu *fakeCPU) Run() error {
	if cpu.rec.cur == cpu.failAt {
		return errBadOpcode
	}
	cpu.rec.tick().Cpu++
	return nil
}

// Scripted DMA controller. A check on a tick listed in `starts` begins a
// transfer of `steps` units
type fakeDMA struct {
	rec       *recorder
	enabled   func(tick int) bool
	starts    map[int]bool
	steps     int
	remaining int
}

func (dma *fakeDMA) IsEnabled() bool {
	enabled := dma.enabled != nil && dma.enabled(dma.rec.cur)
	if enabled {
		dma.rec.tick().Enabled = true
	}
	return enabled
}

func (dma *fakeDMA) CheckStartCond() {
	dma.rec.tick().Checks++
	if dma.remaining == 0 && dma.starts[dma.rec.cur] {
		dma.remaining = dma.steps
	}
}

func (dma *fakeDMA) IsRunning() bool {
	return dma.remaining > 0
}

func (dma *fakeDMA) Run() error {
	dma.rec.tick().Dma++
	dma.remaining--
	return nil
}

type fakeTimers struct {
	rec *recorder
	err error
}

func (timers *fakeTimers) Run() error {
	if timers.err != nil {
		return timers.err
	}
	timers.rec.tick().Timer++
	return nil
}

// Stops the run after `limit` complete ticks, or cancels `cancel` instead
// when set
type fakeVideo struct {
	rec    *recorder
	limit  int
	cancel context.CancelFunc
}

func (video *fakeVideo) Run() error {
	video.rec.tick().Video++
	video.rec.cur++
	if video.rec.cur == video.limit {
		if video.cancel != nil {
			video.cancel()
			return nil
		}
		return errStop
	}
	return nil
}

type fakeMachine struct {
	rec    *recorder
	cpu    *fakeCPU
	dma    *fakeDMA
	timers *fakeTimers
	video  *fakeVideo
	s      *Scheduler
}

func newFakeMachine(t *testing.T, limit int) *fakeMachine {
	rec := &recorder{}
	m := &fakeMachine{
		rec:    rec,
		cpu:    &fakeCPU{rec: rec, failAt: -1},
		dma:    &fakeDMA{rec: rec, starts: map[int]bool{}},
		timers: &fakeTimers{rec: rec},
		video:  &fakeVideo{rec: rec, limit: limit},
	}

	s, err := NewScheduler(m.cpu, m.dma, m.timers, m.video)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	m.s = s
	return m
}

// Runs until the video fake stops the scheduler and checks that it did
func (m *fakeMachine) run(t *testing.T) {
	err := m.s.Run(context.Background())
	if !errors.Is(err, errStop) {
		t.Fatalf("expected the stop fault, got %v", err)
	}
}

func TestSchedulerDMADisabled(t *testing.T) {
	m := newFakeMachine(t, 10)
	m.run(t)

	var cpu, dma, timer, video int
	for _, tick := range m.rec.Ticks {
		cpu += tick.Cpu
		dma += tick.Dma
		timer += tick.Timer
		video += tick.Video
		if tick.Checks != 0 {
			t.Errorf("start condition checked while disabled")
		}
	}

	if cpu != 20 || dma != 0 || timer != 40 || video != 10 {
		t.Errorf("cpu=%d dma=%d timer=%d video=%d, expected 20/0/40/10", cpu, dma, timer, video)
	}
	// the stopping video call is a fault, so the last tick never completes
	if m.s.Time.Cpu != 20 || m.s.Time.Dma != 0 || m.s.Time.Timer != 40 || m.s.Time.Ticks != 9 {
		t.Errorf("time handler disagrees with the fakes: %+v", *m.s.Time)
	}
}

func TestSchedulerDMABusMastership(t *testing.T) {
	m := newFakeMachine(t, 8)
	m.dma.enabled = func(int) bool { return true }
	m.dma.starts[2] = true
	m.dma.steps = 4
	m.run(t)

	for idx, tick := range m.rec.Ticks {
		switch idx {
		case 2, 3:
			if tick.Dma != 2 || tick.Cpu != 0 {
				t.Errorf("tick %d: dma=%d cpu=%d, expected a DMA tick", idx+1, tick.Dma, tick.Cpu)
			}
		default:
			if tick.Cpu != 2 || tick.Dma != 0 {
				t.Errorf("tick %d: dma=%d cpu=%d, expected a CPU tick", idx+1, tick.Dma, tick.Cpu)
			}
		}
		if tick.Timer != 4 || tick.Video != 1 {
			t.Errorf("tick %d: timer=%d video=%d", idx+1, tick.Timer, tick.Video)
		}
	}
}

func TestSchedulerHaltOnFault(t *testing.T) {
	m := newFakeMachine(t, 100)
	// the CPU faults on the 7th tick
	m.cpu.failAt = 6

	err := m.s.Run(context.Background())

	var fault *HardwareFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected a *HardwareFault, got %v", err)
	}
	if fault.Component != COMPONENT_CPU || fault.Tick != 6 {
		t.Errorf("unexpected fault: %v", fault)
	}
	if !errors.Is(err, errBadOpcode) {
		t.Errorf("fault lost its cause: %v", err)
	}
	if m.s.Running() {
		t.Errorf("scheduler still running after a fault")
	}

	// nothing after the faulting dispatch
	if len(m.rec.Ticks) > 7 {
		t.Errorf("tick 8 happened")
	}
	if len(m.rec.Ticks) == 7 {
		last := m.rec.Ticks[6]
		if last.Timer != 0 || last.Video != 0 || last.Cpu != 0 {
			t.Errorf("advances after the fault in tick 7: %+v", last)
		}
	}
	if m.s.Time.Ticks != 6 {
		t.Errorf("expected 6 completed ticks, got %d", m.s.Time.Ticks)
	}

	// no resume
	if err := m.s.Run(context.Background()); !errors.Is(err, ErrHalted) {
		t.Errorf("expected ErrHalted on rerun, got %v", err)
	}
	if m.s.Time.Ticks != 6 {
		t.Errorf("rerun advanced the machine")
	}
}

func TestSchedulerFaultPassthrough(t *testing.T) {
	m := newFakeMachine(t, 100)
	original := newFault(COMPONENT_DMA, "prohibited transfer: %w", ErrUnimplemented)
	m.timers.err = original

	err := m.s.Run(context.Background())

	var fault *HardwareFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected a *HardwareFault, got %v", err)
	}
	if fault.Component != COMPONENT_DMA || fault.Tick != 0 {
		t.Errorf("unexpected fault: %v", fault)
	}
	if fault.Err != original.Err || !errors.Is(err, ErrUnimplemented) {
		t.Errorf("cause was not kept: %v", fault)
	}
}

// A collaborator may keep returning the same fault value, stamping the
// tick must not change it
func TestSchedulerFaultNotMutated(t *testing.T) {
	m := newFakeMachine(t, 100)
	shared := &HardwareFault{Tick: 999, Err: errBadOpcode}
	m.timers.err = shared

	err := m.s.Run(context.Background())

	var fault *HardwareFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected a *HardwareFault, got %v", err)
	}
	if fault == shared {
		t.Fatal("the collaborator's fault was returned instead of a copy")
	}
	if fault.Tick != 0 || fault.Component != COMPONENT_TIMER {
		t.Errorf("unexpected fault: %v", fault)
	}
	if shared.Tick != 999 || shared.Component != "" {
		t.Errorf("collaborator fault was modified: %+v", *shared)
	}
}

func TestSchedulerRatio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const n = STOP_CHECK_INTERVAL
	m := newFakeMachine(t, n)
	m.video.cancel = cancel
	m.dma.enabled = func(tick int) bool { return tick%3 != 0 }
	for tick := 0; tick < n; tick += 7 {
		m.dma.starts[tick] = true
	}
	m.dma.steps = 6

	err := m.s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	time := m.s.Time
	if time.Ticks != n {
		t.Fatalf("expected %d ticks, got %d", n, time.Ticks)
	}
	if time.Timer != 4*n || time.Video != n || time.Cpu+time.Dma != 2*n {
		t.Errorf("ratio broken: %+v", *time)
	}
	if time.Dma == 0 {
		t.Errorf("no DMA transfer happened")
	}
	if time.Cycles() != n*CYCLES_PER_TICK {
		t.Errorf("unexpected cycle count %d", time.Cycles())
	}

	for idx, tick := range m.rec.Ticks {
		// mutual exclusion
		if tick.Cpu != 0 && tick.Dma != 0 {
			t.Errorf("tick %d: both the CPU and the DMA advanced", idx)
		}
		// trigger gating
		if tick.Enabled != (tick.Checks == 1) {
			t.Errorf("tick %d: enabled=%v but %d checks", idx, tick.Enabled, tick.Checks)
		}
	}
}

func TestSchedulerCanceled(t *testing.T) {
	m := newFakeMachine(t, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(m.rec.Ticks) != 0 {
		t.Errorf("collaborators advanced after cancellation")
	}
	if err := m.s.Run(context.Background()); !errors.Is(err, ErrHalted) {
		t.Errorf("expected ErrHalted, got %v", err)
	}
}

func TestSchedulerMissingCollaborator(t *testing.T) {
	rec := &recorder{}
	cpu := &fakeCPU{rec: rec}
	dma := &fakeDMA{rec: rec}
	timers := &fakeTimers{rec: rec}
	video := &fakeVideo{rec: rec}

	if _, err := NewScheduler(nil, dma, timers, video); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("nil CPU accepted")
	}
	var nilDMA *fakeDMA
	if _, err := NewScheduler(cpu, nilDMA, timers, video); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("typed nil DMA accepted")
	}
	if _, err := NewScheduler(cpu, dma, nil, video); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("nil timers accepted")
	}
	if _, err := NewScheduler(cpu, dma, timers, nil); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("nil video accepted")
	}

	s, err := NewScheduler(cpu, dma, timers, video)
	if err != nil || !s.Running() {
		t.Errorf("valid collaborators rejected: %v", err)
	}
}
