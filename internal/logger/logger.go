package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// useColor is evaluated per call so tests that swap os.Stdout get plain text.
func useColor() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string) string {
	if !useColor() {
		return s
	}
	return color + s + colorReset
}

func line(color, level, tag, msg string) {
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stdout, "%s %s %-8s %s\n",
		paint(colorGray, ts),
		paint(color, level),
		paint(colorBold, "["+tag+"]"),
		msg,
	)
}

// Info prints a neutral progress message.
func Info(tag, msg string) { line(colorCyan, "INFO", tag, msg) }

// Success prints a completion message.
func Success(tag, msg string) { line(colorGreen, " OK ", tag, msg) }

// Warn prints a recoverable problem.
func Warn(tag, msg string) { line(colorYellow, "WARN", tag, msg) }

// Error prints a failure.
func Error(tag, msg string) { line(colorRed, "FAIL", tag, msg) }

// Banner prints the start-up banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	title := "Material Route Viewer " + version
	bar := strings.Repeat("─", len(title)+4)
	fmt.Fprintln(os.Stdout, paint(colorCyan, "┌"+bar+"┐"))
	fmt.Fprintln(os.Stdout, paint(colorCyan, "│  ")+paint(colorBold, title)+paint(colorCyan, "  │"))
	fmt.Fprintln(os.Stdout, paint(colorCyan, "└"+bar+"┘"))
}

// Section prints a heading for a block of Stats lines.
func Section(title string) {
	fmt.Fprintf(os.Stdout, "\n%s\n", paint(colorBold, "── "+title+" ──"))
}

// Stats prints one aligned key/value line.
func Stats(key string, value any) {
	fmt.Fprintf(os.Stdout, "   %-20s %v\n", key+":", value)
}

// Server prints the listen address.
func Server(addr string) {
	Success("Server", fmt.Sprintf("Listening on http://%s", addr))
}
