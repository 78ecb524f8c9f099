package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"regvm/internal/config"
	"regvm/pkg/bytecode"
	"regvm/pkg/color"
	"regvm/pkg/image"
	"regvm/pkg/interpreter"

	"github.com/charmbracelet/log"
)

type Runner struct {
	Help         bool   // Show help message
	Verbose      bool   // Enable verbose output and the instruction trace
	NoColor      bool   // Disable colored output
	ConfigFile   string // Path to a TOML or YAML config file
	Format       string // Image format (raw, cbor, asm), guessed from the extension if empty
	Disassemble  bool   // Print a listing before running
	ListOnly     bool   // Print a listing and do not run
	Dump         bool   // Print the debug dump after the run
	OutputFile   string // Write the loaded image as a CBOR container
	SnapshotFile string // Write the final state as CBOR
	SourceFile   string // Path to the program image

	Stdout io.Writer // program output, defaults to os.Stdout
}

// Run loads the configuration and the program image, then disassembles,
// re-encodes and executes it based on the options set.
func (opts *Runner) Run() error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return err
		}
		log.Debug("Loaded config", "file", opts.ConfigFile, "memory", cfg.Memory, "registers", cfg.Registers)
	}

	format, err := image.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	log.Info("Processing file", "file", opts.SourceFile)
	prog, err := image.ReadFile(opts.SourceFile, format, cfg.Memory)
	if err != nil {
		return err
	}

	if opts.Disassemble || opts.ListOnly {
		fmt.Fprintln(out, color.Header("=== Disassembly ==="))
		if err := bytecode.Disassemble(out, prog.Words); err != nil {
			return fmt.Errorf("disassembly failed: %w", err)
		}
		if opts.ListOnly {
			return nil
		}
	}

	if opts.OutputFile != "" {
		if err := image.WriteFile(opts.OutputFile, prog); err != nil {
			return err
		}
		log.Info("Image written", "file", opts.OutputFile, "words", len(prog.Words))
	}

	intr := interpreter.NewInterpreter(
		interpreter.WithWriter(out),
		interpreter.WithLogger(log.Default()),
		interpreter.WithCapacity(cfg.Memory, cfg.Registers),
		interpreter.WithMaxSteps(cfg.MaxSteps),
		interpreter.WithMaxCallDepth(cfg.MaxCallDepth),
		interpreter.WithStrict(cfg.Strict),
	)
	intr.Load(prog.Words)

	if opts.Verbose {
		fmt.Fprintln(out, color.GreenText("=== Program Output ==="))
	}

	start := time.Now()
	runErr := intr.Run()
	log.Info("Execution finished", "program", prog.Name, "elapsed", time.Since(start), "steps", intr.Steps())

	diags := intr.Diagnostics()
	if len(diags) > 0 {
		log.Warn("Execution reported diagnostics", "count", len(diags))
	}

	if opts.Dump {
		for _, d := range diags {
			fmt.Fprintln(out, color.Warning(d.String()))
		}
		intr.Dump(cfg.Dump.Memory, cfg.Dump.Registers)
	}

	if opts.SnapshotFile != "" {
		if err := writeSnapshot(opts.SnapshotFile, intr.Snapshot()); err != nil {
			return err
		}
	}

	if runErr != nil {
		var fault *interpreter.Fault
		if errors.As(runErr, &fault) {
			fmt.Fprintln(out, color.Fault(fault.PC, fault.Error()))
		}
		return fmt.Errorf("execution failed: %w", runErr)
	}

	return nil
}

func writeSnapshot(path string, s interpreter.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot %s: %w", path, err)
	}

	if err := interpreter.EncodeSnapshot(file, s); err != nil {
		_ = file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("closing snapshot %s: %w", path, err)
	}

	log.Info("Snapshot written", "file", path)
	return nil
}
