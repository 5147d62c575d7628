package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCII logo for the application
const ASCIILogo = `
  ╔════════════════════════════════════════════════════════╗
  ║  _               _ _           _                       ║
  ║ | |___      ____| | | ___  ___| |_ ___  _ __           ║
  ║ | __\ \ /\ / / _| | |/ _ \/ __| __/ _ \| '__|          ║
  ║ | |_ \ V  V / (_| | |  __/ (__| || (_) | |             ║
  ║  \__| \_/\_/ \__|_|_|\___|\___|\__\___/|_|             ║
  ║                                                        ║
  ║           TIMELINE COLLECTION UTILITY                  ║
  ╚════════════════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var (
	mu        sync.Mutex
	output    io.Writer = os.Stdout
	quietMode bool
)

// SetOutput redirects the Print helpers
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetQuietMode suppresses the logo, info and highlight messages
func SetQuietMode(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietMode = quiet
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return quietMode
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

func write(always bool, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if quietMode && !always {
		return
	}
	fmt.Fprintf(output, format, args...)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	write(false, "%s", Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	write(true, "%s\n", Green(msg))
}

// PrintInfo prints a label and value in cyan and yellow
func PrintInfo(label string, value string) {
	write(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	write(true, "%s\n", Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	write(false, "%s\n", Magenta(msg))
}
