package emulator

import "testing"

func runTimers(t *testing.T, timers *Timers, cycles int) {
	for i := 0; i < cycles; i++ {
		if err := timers.Run(); err != nil {
			t.Fatalf("timer fault: %v", err)
		}
	}
}

func TestTimerPrescaler(t *testing.T) {
	timers := NewTimers(NewIrqState())

	timers.Store16(0x0, 0xfff0)
	timers.Store16(0x2, 1<<7|uint16(PRESCALER_64))
	if timers.Load16(0x0) != 0xfff0 {
		t.Fatalf("enable did not load the reload value")
	}

	runTimers(t, timers, 63)
	if timers.Load16(0x0) != 0xfff0 {
		t.Errorf("counter moved before the prescaler period")
	}
	runTimers(t, timers, 1)
	if timers.Load16(0x0) != 0xfff1 {
		t.Errorf("expected 0xfff1, got 0x%04x", timers.Load16(0x0))
	}
}

func TestTimerOverflow(t *testing.T) {
	irq := NewIrqState()
	timers := NewTimers(irq)

	var overflows []int
	timers.OnOverflow = func(index int) {
		overflows = append(overflows, index)
	}

	timers.Store16(0x0, 0xfffe)
	timers.Store16(0x2, 1<<7|1<<6)

	runTimers(t, timers, 2)
	if timers.Load16(0x0) != 0xfffe {
		t.Errorf("overflow did not reload, counter is 0x%04x", timers.Load16(0x0))
	}
	if irq.Flags&(1<<INTERRUPT_TIMER0) == 0 {
		t.Errorf("overflow interrupt not requested")
	}
	if len(overflows) != 1 || overflows[0] != 0 {
		t.Errorf("unexpected overflow callbacks %v", overflows)
	}
}

func TestTimerCascade(t *testing.T) {
	irq := NewIrqState()
	timers := NewTimers(irq)

	// timer 0 overflows every 4 cycles, timer 1 counts the overflows
	timers.Store16(0x0, 0xfffc)
	timers.Store16(0x2, 1<<7)
	timers.Store16(0x4, 0xfffe)
	timers.Store16(0x6, 1<<7|1<<6|1<<2)

	runTimers(t, timers, 4)
	if timers.Load16(0x4) != 0xffff {
		t.Errorf("timer 1 did not count, got 0x%04x", timers.Load16(0x4))
	}
	if irq.Flags&(1<<INTERRUPT_TIMER1) != 0 {
		t.Errorf("timer 1 overflowed too early")
	}

	runTimers(t, timers, 4)
	if irq.Flags&(1<<INTERRUPT_TIMER1) == 0 {
		t.Errorf("timer 1 overflow interrupt not requested")
	}
	if timers.Load16(0x4) != 0xfffe {
		t.Errorf("timer 1 did not reload")
	}
	if irq.Flags&(1<<INTERRUPT_TIMER0) != 0 {
		t.Errorf("timer 0 requested an interrupt without IRQ enable")
	}
}

func TestTimerCountUpIgnoredOnTimer0(t *testing.T) {
	timers := NewTimers(NewIrqState())
	timers.Store16(0x2, 1<<7|1<<2)

	if timers.Timers[0].CountUp {
		t.Errorf("timer 0 accepted count-up mode")
	}
	runTimers(t, timers, 1)
	if timers.Load16(0x0) != 1 {
		t.Errorf("timer 0 did not free run")
	}
}

func TestTimerDisabled(t *testing.T) {
	timers := NewTimers(NewIrqState())
	timers.Store16(0x8, 0x1234)
	runTimers(t, timers, 100)
	if timers.Load16(0x8) != 0 {
		t.Errorf("disabled timer counted")
	}
	if timers.Load16(0xa) != 0 {
		t.Errorf("unexpected control 0x%04x", timers.Load16(0xa))
	}
}
