package emulator

const (
	DOTS_PER_LINE   = 308 // 240 visible dots and 68 dots of horizontal blanking
	LINES_PER_FRAME = 228 // 160 visible lines and 68 lines of vertical blanking
	CYCLES_PER_DOT  = 4   // System clock cycles per dot
	// The vblank flag drops one line before the end of the frame
	VBLANK_LAST_LINE = LINES_PER_FRAME - 2
	// Video capture DMA runs on these lines
	CAPTURE_FIRST_LINE = 2
	CAPTURE_LAST_LINE  = SCREEN_HEIGHT + 1
)

// Background mode selected in DISPCNT
type BgMode uint8

const (
	BG_MODE_TILED0 BgMode = 0 // 4 text backgrounds
	BG_MODE_TILED1 BgMode = 1 // 2 text backgrounds and 1 affine background
	BG_MODE_TILED2 BgMode = 2 // 2 affine backgrounds
	BG_MODE_BITMAP BgMode = 3 // 240x160 direct color, single page
	BG_MODE_PAGED  BgMode = 4 // 240x160 paletted, 2 pages
	BG_MODE_SMALL  BgMode = 5 // 160x128 direct color, 2 pages
)

const (
	// Size of a page in bitmap modes 4 and 5
	BITMAP_PAGE_SIZE = 0xa000
	// Mode 5 dimensions
	SMALL_WIDTH  = 160
	SMALL_HEIGHT = 128
	// Color shown during forced blank
	WHITE = 0x7fff
)

// Video controller: timing, status register and a scanline renderer
type LCD struct {
	Mode        BgMode // Background mode
	FrameSelect bool   // Displayed page in modes 4 and 5
	ForcedBlank bool   // Screen forced to white, VRAM fully accessible
	Bg2Enable   bool   // The bitmap modes draw through BG2
	// Raw DISPCNT value, bits without an emulated effect are kept so they
	// read back
	DisplayControl uint16
	VBlankIrqEn    bool   // Raise an interrupt on vblank
	HBlankIrqEn    bool   // Raise an interrupt on hblank
	VCountIrqEn    bool   // Raise an interrupt when `Line` matches `VCountTarget`
	VCountTarget   uint8  // VCOUNT setting (LYC)
	Line           uint16 // Current scanline (VCOUNT)
	Dot            uint16 // Position in the current scanline
	InVBlank       bool   // Vertical blanking flag
	InHBlank       bool   // Horizontal blanking flag
	VCountMatch    bool   // `Line` equals `VCountTarget`
	Frames         uint64 // Completed frames
	Frame          *Frame // Picture being drawn
	Palette        *RAM
	Vram           *RAM
	Irq            *IrqState
	Dma            *DMA
	Sink           FrameSink // Receives each completed frame, may be nil
}

var _ VideoController = (*LCD)(nil)

func NewLCD(palette, vram *RAM, irq *IrqState, dma *DMA) *LCD {
	return &LCD{
		ForcedBlank: true, // the BIOS clears it
		Frame:       NewFrame(),
		Palette:     palette,
		Vram:        vram,
		Irq:         irq,
		Dma:         dma,
	}
}

// Advances the video timing by one dot
func (lcd *LCD) Run() error {
	lcd.Dot++

	switch lcd.Dot {
	case SCREEN_WIDTH:
		lcd.enterHBlank()
	case DOTS_PER_LINE:
		lcd.Dot = 0
		lcd.nextLine()
	}
	return nil
}

func (lcd *LCD) enterHBlank() {
	lcd.InHBlank = true

	if lcd.HBlankIrqEn {
		lcd.Irq.SetHigh(INTERRUPT_HBLANK)
	}

	if lcd.Line < SCREEN_HEIGHT {
		lcd.renderLine(int(lcd.Line))
		lcd.Dma.RequestBlank(TIMING_HBLANK)
	}

	if lcd.Line >= CAPTURE_FIRST_LINE && lcd.Line <= CAPTURE_LAST_LINE {
		lcd.Dma.RequestCapture()
	}
}

func (lcd *LCD) nextLine() {
	lcd.InHBlank = false

	lcd.Line++
	switch lcd.Line {
	case SCREEN_HEIGHT:
		lcd.enterVBlank()
	case CAPTURE_LAST_LINE + 1:
		lcd.Dma.StopCapture()
	case VBLANK_LAST_LINE + 1:
		lcd.InVBlank = false
	case LINES_PER_FRAME:
		lcd.Line = 0
	}

	lcd.VCountMatch = lcd.Line == uint16(lcd.VCountTarget)
	if lcd.VCountMatch && lcd.VCountIrqEn {
		lcd.Irq.SetHigh(INTERRUPT_VCOUNT)
	}
}

func (lcd *LCD) enterVBlank() {
	lcd.InVBlank = true

	if lcd.VBlankIrqEn {
		lcd.Irq.SetHigh(INTERRUPT_VBLANK)
	}
	lcd.Dma.RequestBlank(TIMING_VBLANK)

	lcd.Frames++
	if lcd.Sink != nil {
		lcd.Sink.PresentFrame(lcd.Frame)
	}
}

// Returns the value of DISPSTAT
func (lcd *LCD) Status() uint16 {
	var r uint16

	r |= uint16(oneIfTrue(lcd.InVBlank))
	r |= uint16(oneIfTrue(lcd.InHBlank)) << 1
	r |= uint16(oneIfTrue(lcd.VCountMatch)) << 2
	r |= uint16(oneIfTrue(lcd.VBlankIrqEn)) << 3
	r |= uint16(oneIfTrue(lcd.HBlankIrqEn)) << 4
	r |= uint16(oneIfTrue(lcd.VCountIrqEn)) << 5
	r |= uint16(lcd.VCountTarget) << 8

	return r
}

// Sets DISPSTAT, the flags in bits [0:2] are read only
func (lcd *LCD) SetStatus(val uint16) {
	lcd.VBlankIrqEn = (val>>3)&1 != 0
	lcd.HBlankIrqEn = (val>>4)&1 != 0
	lcd.VCountIrqEn = (val>>5)&1 != 0
	lcd.VCountTarget = uint8(val >> 8)
}

// Sets DISPCNT
func (lcd *LCD) SetDisplayControl(val uint16) {
	lcd.DisplayControl = val
	lcd.Mode = BgMode(val & 7)
	lcd.FrameSelect = (val>>4)&1 != 0
	lcd.ForcedBlank = (val>>7)&1 != 0
	lcd.Bg2Enable = (val>>10)&1 != 0
}

// Returns the value of an LCD register
func (lcd *LCD) Load16(offset uint32) uint16 {
	switch offset {
	case 0x0:
		return lcd.DisplayControl
	case 0x4:
		return lcd.Status()
	case 0x6:
		return lcd.Line
	}
	return 0
}

// Sets the value of an LCD register. VCOUNT is read only
func (lcd *LCD) Store16(offset uint32, val uint16) {
	switch offset {
	case 0x0:
		lcd.SetDisplayControl(val)
	case 0x4:
		lcd.SetStatus(val)
	}
}

// Returns the backdrop color, entry 0 of the BG palette
func (lcd *LCD) backdrop() uint16 {
	return lcd.Palette.Load16(0) & 0x7fff
}

// Draws scanline `y` into the current frame. Tiled modes only show the
// backdrop color
func (lcd *LCD) renderLine(y int) {
	line := lcd.Frame.Pixels[y*SCREEN_WIDTH : (y+1)*SCREEN_WIDTH]

	if lcd.ForcedBlank {
		for x := range line {
			line[x] = WHITE
		}
		return
	}

	backdrop := lcd.backdrop()
	if !lcd.Bg2Enable || lcd.Mode < BG_MODE_BITMAP {
		for x := range line {
			line[x] = backdrop
		}
		return
	}

	var page uint32
	if lcd.FrameSelect {
		page = BITMAP_PAGE_SIZE
	}

	switch lcd.Mode {
	case BG_MODE_BITMAP:
		for x := range line {
			line[x] = lcd.Vram.Load16(uint32(y*SCREEN_WIDTH+x)*2) & 0x7fff
		}
	case BG_MODE_PAGED:
		for x := range line {
			index := lcd.Vram.Load8(page + uint32(y*SCREEN_WIDTH+x))
			if index == 0 {
				line[x] = backdrop
				continue
			}
			line[x] = lcd.Palette.Load16(uint32(index)*2) & 0x7fff
		}
	case BG_MODE_SMALL:
		for x := range line {
			if x >= SMALL_WIDTH || y >= SMALL_HEIGHT {
				line[x] = backdrop
				continue
			}
			line[x] = lcd.Vram.Load16(page+uint32(y*SMALL_WIDTH+x)*2) & 0x7fff
		}
	default:
		// modes 6 and 7 are invalid and show nothing
		for x := range line {
			line[x] = backdrop
		}
	}
}
