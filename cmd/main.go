package main

import (
	"flag"
	"fmt"
	"os"

	"regvm/internal/logger"
	"regvm/internal/runner"
	"regvm/pkg/color"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Main entry point for the regvm interpreter.
func main() {
	options := runner.Runner{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode (instruction trace)")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.StringVar(&options.ConfigFile, "c", "", "Config file (.toml, .yaml, .yml)")
	flag.StringVar(&options.Format, "f", "", "Image format (raw, cbor, asm), guessed from the extension if empty")
	flag.BoolVar(&options.Disassemble, "d", false, "Disassemble before running")
	flag.BoolVar(&options.ListOnly, "x", false, "Disassemble only, do not run")
	flag.BoolVar(&options.Dump, "dump", false, "Print registers and memory after the run")
	flag.StringVar(&options.OutputFile, "o", "", "Write the loaded image as a CBOR container")
	flag.StringVar(&options.SnapshotFile, "snapshot", "", "Write the final state as CBOR")

	flag.Parse()
	args := flag.Args()

	logger.Init(options.Verbose, options.NoColor)
	if options.Help {
		fmt.Printf("Usage: %s [options] <program>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if options.NoColor {
		color.EnableColor(false)
		color.SetProfile(termenv.Ascii)
	}

	if len(args) == 0 {
		log.Fatal("No program file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}

	options.SourceFile = args[0]

	if err := options.Run(); err != nil {
		log.Fatal("Run failed", "error", err)
	}
}
