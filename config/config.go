package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zeozeozeo/gogba/emulator"
	"gopkg.in/yaml.v3"
)

// Runtime configuration, read from a YAML file and overridden by the
// command line flags
type Config struct {
	Bios        string            `yaml:"bios"`        // BIOS dump path, empty boots through the built-in BIOS
	SkipBIOS    bool              `yaml:"skip_bios"`   // Jump straight to the cartridge entry point
	Scale       int               `yaml:"scale"`       // Window scale factor
	Headless    bool              `yaml:"headless"`    // Run without a window
	Frames      uint64            `yaml:"frames"`      // Stop after this many frames, 0 runs forever
	LogLevel    string            `yaml:"log_level"`   // debug, info, warn or error
	LogFormat   string            `yaml:"log_format"`  // text or json
	Breakpoints []string          `yaml:"breakpoints"` // PC breakpoints as hex strings
	Keymap      map[string]string `yaml:"keymap"`      // Button name to key name
}

// Default key bindings, keyed by button name
var DefaultKeymap = map[string]string{
	"a":      "X",
	"b":      "Z",
	"select": "Backspace",
	"start":  "Enter",
	"right":  "ArrowRight",
	"left":   "ArrowLeft",
	"up":     "ArrowUp",
	"down":   "ArrowDown",
	"r":      "S",
	"l":      "A",
}

const (
	MIN_SCALE = 1
	MAX_SCALE = 8
)

// Returns the configuration used when no file is given
func Default() Config {
	keymap := make(map[string]string, len(DefaultKeymap))
	for button, key := range DefaultKeymap {
		keymap[button] = key
	}

	return Config{
		Scale:     3,
		LogLevel:  "info",
		LogFormat: "text",
		Keymap:    keymap,
	}
}

// Reads the configuration file at `path` on top of the defaults
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decodes a YAML configuration on top of the defaults. Unknown keys are
// rejected. Bindings missing from the file keep their default key
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	defaults := cfg.Keymap
	cfg.Keymap = nil

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	if cfg.Keymap == nil {
		cfg.Keymap = defaults
	} else {
		for button, key := range defaults {
			if _, ok := cfg.Keymap[button]; !ok {
				cfg.Keymap[button] = key
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Checks the values that can be checked without opening any file
func (cfg *Config) Validate() error {
	if cfg.Scale < MIN_SCALE || cfg.Scale > MAX_SCALE {
		return fmt.Errorf("scale %d out of range [%d, %d]", cfg.Scale, MIN_SCALE, MAX_SCALE)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	for name, key := range cfg.Keymap {
		if _, ok := emulator.ButtonByName(strings.ToLower(name)); !ok {
			return fmt.Errorf("keymap: unknown button %q", name)
		}
		if key == "" {
			return fmt.Errorf("keymap: button %q has no key", name)
		}
	}

	_, err := cfg.BreakpointAddresses()
	return err
}

// Parses the breakpoint list. Addresses are hexadecimal, with or without
// the 0x prefix
func (cfg *Config) BreakpointAddresses() ([]uint32, error) {
	addrs := make([]uint32, 0, len(cfg.Breakpoints))
	for _, s := range cfg.Breakpoints {
		addr, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Parses a 32 bit hexadecimal address
func ParseAddress(s string) (uint32, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")

	val, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(val), nil
}
