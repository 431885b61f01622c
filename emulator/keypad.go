package emulator

// Base address of the keypad registers, relative to the I/O region
const KEYPAD_REGISTERS = 0x130

type ButtonState int

const (
	BUTTON_STATE_PRESSED  ButtonState = 0
	BUTTON_STATE_RELEASED ButtonState = 1
)

// Bit index of a button in KEYINPUT
type Button uint

const (
	BUTTON_A      Button = 0
	BUTTON_B      Button = 1
	BUTTON_SELECT Button = 2
	BUTTON_START  Button = 3
	BUTTON_RIGHT  Button = 4
	BUTTON_LEFT   Button = 5
	BUTTON_UP     Button = 6
	BUTTON_DOWN   Button = 7
	BUTTON_R      Button = 8
	BUTTON_L      Button = 9
)

// All buttons
var Buttons = []Button{
	BUTTON_A,
	BUTTON_B,
	BUTTON_SELECT,
	BUTTON_START,
	BUTTON_RIGHT,
	BUTTON_LEFT,
	BUTTON_UP,
	BUTTON_DOWN,
	BUTTON_R,
	BUTTON_L,
}

var buttonNames = map[Button]string{
	BUTTON_A:      "a",
	BUTTON_B:      "b",
	BUTTON_SELECT: "select",
	BUTTON_START:  "start",
	BUTTON_RIGHT:  "right",
	BUTTON_LEFT:   "left",
	BUTTON_UP:     "up",
	BUTTON_DOWN:   "down",
	BUTTON_R:      "r",
	BUTTON_L:      "l",
}

func (button Button) String() string {
	return buttonNames[button]
}

// Returns the button with the given name (as returned by String)
func ButtonByName(name string) (Button, bool) {
	for button, n := range buttonNames {
		if n == name {
			return button, true
		}
	}
	return 0, false
}

// Mask of the 10 button bits, all released
const KEYS_RELEASED uint16 = 0x03ff

// Supplies the key state. The value is active-low: a cleared bit is a
// pressed button
type InputSource interface {
	Poll() uint16
}

// Button state holder implementing InputSource
type Pad struct {
	State uint16 // Only 1 bit per button
}

// Returns a new pad with every button released
func NewPad() *Pad {
	return &Pad{State: KEYS_RELEASED}
}

func (pad *Pad) SetButtonState(button Button, state ButtonState) {
	mask := uint16(1) << button

	switch state {
	case BUTTON_STATE_PRESSED:
		pad.State &^= mask
	case BUTTON_STATE_RELEASED:
		pad.State |= mask
	}
}

func (pad *Pad) Poll() uint16 {
	return pad.State & KEYS_RELEASED
}

// Keypad registers
type Keypad struct {
	Input   InputSource // Polled on every KEYINPUT read, may be nil
	Control uint16      // KEYCNT: interrupt selection and condition
	State   uint16      // Last polled KEYINPUT value
	Irq     *IrqState
}

func NewKeypad(input InputSource, irq *IrqState) *Keypad {
	return &Keypad{
		Input: input,
		State: KEYS_RELEASED,
		Irq:   irq,
	}
}

// Samples the input source and evaluates the keypad interrupt condition
func (keypad *Keypad) Update() {
	if keypad.Input != nil {
		keypad.State = keypad.Input.Poll() & KEYS_RELEASED
	}

	if keypad.Control&(1<<14) == 0 {
		return
	}

	selected := keypad.Control & KEYS_RELEASED
	pressed := ^keypad.State & KEYS_RELEASED & selected
	if keypad.Control&(1<<15) != 0 {
		// logical AND: all the selected buttons are held
		if selected != 0 && pressed == selected {
			keypad.Irq.SetHigh(INTERRUPT_KEYPAD)
		}
	} else if pressed != 0 {
		// logical OR: any of the selected buttons is held
		keypad.Irq.SetHigh(INTERRUPT_KEYPAD)
	}
}

// Returns the value of a keypad register
func (keypad *Keypad) Load16(offset uint32) uint16 {
	switch offset {
	case 0:
		keypad.Update()
		return keypad.State
	case 2:
		return keypad.Control
	}
	return 0
}

// Sets the value of a keypad register. KEYINPUT is read only
func (keypad *Keypad) Store16(offset uint32, val uint16) {
	if offset == 2 {
		keypad.Control = val & 0xc3ff
	}
}
