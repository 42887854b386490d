package output

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/tanq16/imgdl/internal/utils"
	"golang.org/x/term"
)

// FormatSpeed renders bytes transferred over elapsed seconds as a rate.
func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return utils.FormatBytes(uint64(float64(bytes)/elapsed)) + "/s"
}

// ProgressBar draws current/total as a fixed-width bar followed by a
// percentage.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	total = max(total, 1)
	current = min(max(current, 0), total)
	percent := float64(current) / float64(total)
	filled := min(int(percent*float64(width)), width)
	bar := StyleSymbols["bullet"] + strings.Repeat(StyleSymbols["hline"], filled) + strings.Repeat(" ", width-filled) + StyleSymbols["bullet"]
	return fmt.Sprintf("%s %.1f%%", bar, percent*100)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalSize(f *os.File) (int, int) {
	width, height, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}

func wrapText(text string, width int) []string {
	if width <= 10 {
		width = 80
	}
	if utf8.RuneCountInString(text) <= width {
		return []string{text}
	}
	var lines []string
	var current []rune
	for _, r := range text {
		if len(current) == width {
			lines = append(lines, string(current))
			current = current[:0]
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}
