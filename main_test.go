package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeozeozeo/gogba/emulator"
)

// Writes a cartridge whose entry point branches to itself
func writeTestROM(t *testing.T) string {
	t.Helper()

	data := make([]byte, emulator.ROM_HEADER_SIZE)
	binary.LittleEndian.PutUint32(data[0:], 0xeafffffe) // b .
	copy(data[0xa0:], "IDLELOOP")
	copy(data[0xac:], "TEST")

	path := filepath.Join(t.TempDir(), "idle.gba")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestRunHeadless(t *testing.T) {
	rom := writeTestROM(t)
	screenshot := filepath.Join(t.TempDir(), "last.png")

	stdout, stderr, err := execute(
		"--headless", "--frames", "2",
		"--press", "start@1",
		"--screenshot", screenshot,
		rom,
	)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}

	if !strings.Contains(stdout, "frames    2") {
		t.Errorf("summary does not report 2 frames:\n%s", stdout)
	}
	if !strings.Contains(stderr, "IDLELOOP") {
		t.Errorf("rom title not logged:\n%s", stderr)
	}
	if _, err := os.Stat(screenshot); err != nil {
		t.Errorf("screenshot not written: %v", err)
	}
}

func TestRunBreakpoint(t *testing.T) {
	rom := writeTestROM(t)

	_, stderr, err := execute("--headless", "--breakpoint", "0x08000000", rom)
	if !errors.Is(err, emulator.ErrBreakpoint) {
		t.Fatalf("expected a breakpoint fault, got %v", err)
	}

	var fault *emulator.HardwareFault
	if !errors.As(err, &fault) || fault.Component != emulator.COMPONENT_CPU {
		t.Errorf("expected a cpu fault, got %v", err)
	}
	if !strings.Contains(stderr, "machine halted") {
		t.Errorf("fault not logged:\n%s", stderr)
	}
}

func TestRunErrors(t *testing.T) {
	rom := writeTestROM(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"no rom", []string{"--headless"}},
		{"missing rom", []string{"--headless", filepath.Join(dir, "missing.gba")}},
		{"missing bios", []string{"--headless", "--bios", filepath.Join(dir, "missing.bin"), rom}},
		{"bad breakpoint", []string{"--headless", "--breakpoint", "nope", rom}},
		{"bad press", []string{"--headless", "--press", "turbo@1", rom}},
		{"bad scale", []string{"--headless", "--scale", "0", rom}},
		{"missing config", []string{"--config", filepath.Join(dir, "missing.yaml"), rom}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, _, err := execute(test.args...); err == nil {
				t.Errorf("expected an error for %v", test.args)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	rom := writeTestROM(t)
	path := filepath.Join(t.TempDir(), "gogba.yaml")
	doc := "headless: true\nframes: 3\nlog_format: json\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	// the flag wins over the file
	stdout, stderr, err := execute("--config", path, "--frames", "1", rom)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "frames    1") {
		t.Errorf("summary does not report 1 frame:\n%s", stdout)
	}
	if !strings.Contains(stderr, `"msg":"loaded rom"`) {
		t.Errorf("expected json logs:\n%s", stderr)
	}
}
