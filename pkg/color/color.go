package color

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"
)

// ANSI palette indices understood by termenv
const (
	Red       = "1"
	Green     = "2"
	Yellow    = "3"
	Cyan      = "6"
	Gray      = "8"
	BrightRed = "9"
)

var (
	colorEnabled = true
	profile      = termenv.ANSI256
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !isTerminal() {
		colorEnabled = false
	}
}

func isTerminal() bool {
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

func EnableColor(enable bool) {
	colorEnabled = enable
}

func IsColorEnabled() bool {
	return colorEnabled
}

// SetProfile selects the termenv profile used to render colors
func SetProfile(p termenv.Profile) {
	profile = p
}

func Colorize(color, text string) string {
	if !colorEnabled {
		return text
	}
	return profile.String(text).Foreground(profile.Color(color)).String()
}

func RedText(text string) string {
	return Colorize(Red, text)
}

func BrightRedText(text string) string {
	return Colorize(BrightRed, text)
}

func GreenText(text string) string {
	return Colorize(Green, text)
}

func YellowText(text string) string {
	return Colorize(Yellow, text)
}

func CyanText(text string) string {
	return Colorize(Cyan, text)
}

func GrayText(text string) string {
	return Colorize(Gray, text)
}

func BoldText(text string) string {
	if !colorEnabled {
		return text
	}
	return profile.String(text).Bold().String()
}

// Header renders a section title of the debug dump or a listing
func Header(text string) string {
	if !colorEnabled {
		return text
	}
	return profile.String(text).Foreground(profile.Color(Cyan)).Bold().String()
}

// Warning renders a non-fatal condition reported after a run
func Warning(message string) string {
	if !colorEnabled {
		return message
	}
	return YellowText("Warning: ") + message
}

// Fault renders a fatal interpreter fault with the address it happened at
func Fault(pc int, message string) string {
	addr := fmt.Sprintf("0x%04x", pc)
	if !colorEnabled {
		return fmt.Sprintf("Fault at %s: %s", addr, message)
	}

	return fmt.Sprintf("%s at %s: %s", BrightRedText(BoldText("Fault")), CyanText(addr), message)
}
