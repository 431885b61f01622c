package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zeozeozeo/gogba/config"
	"github.com/zeozeozeo/gogba/emulator"
	"github.com/zeozeozeo/gogba/frontend"
	"github.com/zeozeozeo/gogba/logging"
	"github.com/zeozeozeo/gogba/statsview"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command line values, applied on top of the configuration file when set
type flags struct {
	configPath  string
	bios        string
	skipBIOS    bool
	headless    bool
	frames      uint64
	scale       int
	logLevel    string
	logFormat   string
	breakpoints []string
	inputs      []string
	screenshot  string
	statsview   bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "gogba [flags] <rom>",
		Short: "Game Boy Advance emulator",
		Long: `gogba runs a Game Boy Advance cartridge.

Without --bios the cartridge is started through a small built-in BIOS that
only handles interrupts and returns from software interrupts.

Examples:
  # Play in a window
  gogba --bios gba_bios.bin game.gba

  # Run 600 frames without a window, pressing start at frame 120
  gogba --headless --frames 600 --press start@120 game.gba
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0])
		},
	}

	fl := root.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fl.StringVar(&f.bios, "bios", "", "path to a 16KB BIOS dump")
	fl.BoolVar(&f.skipBIOS, "skip-bios", false, "start at the cartridge entry point")
	fl.BoolVar(&f.headless, "headless", false, "run without a window")
	fl.Uint64Var(&f.frames, "frames", 0, "stop after this many frames (headless only, 0 runs forever)")
	fl.IntVar(&f.scale, "scale", 3, "window scale factor")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fl.StringVar(&f.logFormat, "log-format", "text", "log format (text, json)")
	fl.StringSliceVar(&f.breakpoints, "breakpoint", nil, "halt when the PC reaches this hex address (repeatable)")
	fl.StringArrayVar(&f.inputs, "press", nil, "scripted button press button@frame[:release] (headless only, repeatable)")
	fl.StringVar(&f.screenshot, "screenshot", "", "write the last frame to this PNG file (headless only)")
	fl.BoolVar(&f.statsview, "statsview", false, "serve runtime statistics on "+statsview.Address)

	return root
}

// Merges the configuration file and the flags that were set explicitly
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("bios") {
		cfg.Bios = f.bios
	}
	if changed("skip-bios") {
		cfg.SkipBIOS = f.skipBIOS
	}
	if changed("headless") {
		cfg.Headless = f.headless
	}
	if changed("frames") {
		cfg.Frames = f.frames
	}
	if changed("scale") {
		cfg.Scale = f.scale
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("breakpoint") {
		cfg.Breakpoints = append(cfg.Breakpoints, f.breakpoints...)
	}

	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, f *flags, romPath string) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logger := logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	if f.statsview {
		stop := statsview.Launch(logger)
		defer stop()
	}

	var bios *emulator.BIOS
	if cfg.Bios != "" {
		if bios, err = loadBios(logger, cfg.Bios); err != nil {
			return err
		}
	} else {
		logger.Info("no bios given, using the built-in bios")
	}

	cart, err := loadROM(logger, romPath)
	if err != nil {
		return err
	}

	breakpoints, err := cfg.BreakpointAddresses()
	if err != nil {
		return err
	}

	var script []frontend.Input
	for _, s := range f.inputs {
		inputs, err := frontend.ParseInput(s)
		if err != nil {
			return err
		}
		script = append(script, inputs...)
	}

	// the machine reports its counters to the window overlay through this
	var gba *emulator.GBA
	stats := func() emulator.Stats { return gba.Stats() }

	var front frontend.Frontend
	var headless *frontend.Headless
	if cfg.Headless {
		headless = frontend.NewHeadless(cfg.Frames, script)
		front = headless
	} else {
		if cfg.Frames != 0 || len(script) != 0 || f.screenshot != "" {
			logger.Warn("--frames, --press and --screenshot only apply to headless runs")
		}
		window, err := frontend.NewEbiten(frontend.EbitenOptions{
			Title:  windowTitle(cart, romPath),
			Scale:  cfg.Scale,
			Keymap: cfg.Keymap,
			Stats:  stats,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		front = window
	}

	gba, err = emulator.NewGBA(emulator.Options{
		Bios:        bios,
		Cart:        cart,
		SkipBIOS:    cfg.SkipBIOS,
		Input:       front,
		Sink:        front,
		Breakpoints: breakpoints,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = front.Run(ctx, gba.Run)
	wall := time.Since(start)

	printSummary(cmd.OutOrStdout(), gba.Stats(), wall)

	if headless != nil && f.screenshot != "" {
		if err := headless.SaveScreenshot(f.screenshot); err != nil {
			logger.Error("screenshot failed", "err", err)
		} else {
			logger.Info("screenshot saved", "path", f.screenshot)
		}
	}

	return runResult(logger, err)
}

// Sorts the end of a run: a stop request is a normal exit, a fault is
// logged with its location and reported
func runResult(logger *slog.Logger, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	var fault *emulator.HardwareFault
	if errors.As(err, &fault) {
		logger.Error(
			"machine halted",
			"component", fault.Component,
			"tick", fault.Tick,
			"err", fault.Err,
		)
	}
	return err
}

func windowTitle(cart *emulator.Cartridge, romPath string) string {
	if cart.Title != "" {
		return "gogba - " + cart.Title
	}
	return "gogba - " + filepath.Base(romPath)
}

func printSummary(w io.Writer, stats emulator.Stats, wall time.Duration) {
	emulated := emulator.CyclesToDuration(stats.Cycles)

	fmt.Fprintf(w, "frames    %s\n", humanize.Comma(int64(stats.Frames)))
	fmt.Fprintf(w, "ticks     %s\n", humanize.Comma(int64(stats.Ticks)))
	fmt.Fprintf(w, "cpu/dma   %s / %s (%.2f%% dma)\n",
		humanize.Comma(int64(stats.Cpu)),
		humanize.Comma(int64(stats.Dma)),
		frontend.DMAShare(stats),
	)
	fmt.Fprintf(w, "emulated  %s in %s\n", emulated.Round(time.Millisecond), wall.Round(time.Millisecond))

	if wall > 0 {
		hz := float64(stats.Cycles) / wall.Seconds()
		fmt.Fprintf(w, "speed     %s (%.0f%%)\n",
			humanize.SIWithDigits(hz, 2, "Hz"),
			hz*100/emulator.CLOCK_HZ,
		)
	}
}

func loadBios(logger *slog.Logger, path string) (*emulator.BIOS, error) {
	logger.Info("loading bios", "path", path)
	start := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	bios, err := emulator.LoadBIOS(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info("loaded bios", "took", time.Since(start))
	return bios, nil
}

func loadROM(logger *slog.Logger, path string) (*emulator.Cartridge, error) {
	logger.Info("loading rom", "path", path)
	start := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cart, err := emulator.LoadROM(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info(
		"loaded rom",
		"title", cart.Title,
		"code", cart.GameCode,
		"size", humanize.IBytes(uint64(len(cart.Data))),
		"took", time.Since(start),
	)
	return cart, nil
}
