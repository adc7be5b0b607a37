// Package telnet serves the slot machine shell to remote players over Telnet
// and provides the ANSI styling shared by every terminal frontend.
package telnet

import "fmt"

// ANSI SGR codes used by the slot screen.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"

	BrightYellow  = "\033[93m"
	BrightMagenta = "\033[95m"
	BgYellow      = "\033[43m"
)

// Cursor and screen control.
const (
	ClearScreen = "\033[2J"
	CursorHome  = "\033[H"
	HideCursor  = "\033[?25l"
	ShowCursor  = "\033[?25h"
)

// Redraw moves to the top-left corner and clears the screen.
const Redraw = CursorHome + ClearScreen

// Colorize wraps text with the given ANSI code and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
// Postcondition: Returns text wrapped with the color code and Reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf wraps a formatted string with the given ANSI code.
func Colorf(color, format string, args ...any) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

// StripANSI removes SGR sequences (ESC [ ... m) so the printable width of
// styled text can be measured. Other escape sequences pass through.
//
// Postcondition: Returns text with every \033[...m sequence removed.
func StripANSI(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == ';') {
				j++
			}
			if j < len(s) && s[j] == 'm' {
				i = j
				continue
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
