package shell

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cory-johannsen/slot/internal/config"
	"github.com/cory-johannsen/slot/internal/frontend/telnet"
	"github.com/cory-johannsen/slot/internal/game/machine"
	"github.com/cory-johannsen/slot/internal/game/symbol"
)

// Screen text.
const (
	Title         = "SLOT HALAL 🎰"
	BalanceLabel  = "💰 Saldo: "
	SpinningLabel = "Spinning..."
	Prompt        = "> "
)

// View is everything drawn on one screen.
type View struct {
	Balance  int64
	Cells    [][]int // cells[reel][row]
	State    machine.State
	CanSpin  bool
	Message  string
	Flags    machine.Flags
	Shake    int // horizontal offset of the grid while it shakes
	Note     []string
	Confetti []string
}

// Renderer turns a View into terminal text. It holds no mutable state.
type Renderer struct {
	symbols  *symbol.Registry
	printer  *message.Printer
	currency string
	spinCost int64
	color    bool
}

// NewRenderer creates a Renderer formatting amounts for cfg.Locale.
//
// Precondition: symbols must be non-nil.
// Postcondition: Returns an error only when cfg.Locale is not a BCP 47 tag.
func NewRenderer(symbols *symbol.Registry, cfg config.FrontendConfig, spinCost int64) (*Renderer, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", cfg.Locale, err)
	}
	return &Renderer{
		symbols:  symbols,
		printer:  message.NewPrinter(tag),
		currency: cfg.Currency,
		spinCost: spinCost,
		color:    cfg.Color,
	}, nil
}

// Color reports whether ANSI colours are emitted.
func (r *Renderer) Color() bool { return r.color }

// Amount formats v with the currency prefix and locale digit grouping,
// e.g. "Rp 90,000" for en-US or "Rp 90.000" for id-ID.
func (r *Renderer) Amount(v int64) string {
	return r.printer.Sprintf("%s %d", r.currency, v)
}

// Button returns the spin button label for v, without styling.
func (r *Renderer) Button(v View) string {
	if v.State != machine.Idle {
		return "[ " + SpinningLabel + " ]"
	}
	return "[ SPIN (" + r.Amount(r.spinCost) + ") ]"
}

// Glyph returns the text drawn for symbol index i.
func (r *Renderer) Glyph(i int) string {
	if i < 0 || i >= r.symbols.Len() {
		return "?"
	}
	return r.symbols.At(i).Glyph
}

func (r *Renderer) style(code, text string) string {
	if !r.color || text == "" {
		return text
	}
	return telnet.Colorize(code, text)
}

// Render draws v. Lines end in CRLF so the output suits raw terminals and
// Telnet alike.
func (r *Renderer) Render(v View) string {
	lines := []string{
		r.style(telnet.Bold, Title),
		BalanceLabel + r.Amount(v.Balance),
		"",
	}
	lines = append(lines, r.grid(v)...)
	lines = append(lines, "", r.button(v))
	lines = append(lines, r.message(v.Message))
	lines = append(lines, v.Note...)
	lines = append(lines, v.Confetti...)
	return strings.Join(lines, "\r\n")
}

func (r *Renderer) grid(v View) []string {
	if len(v.Cells) == 0 {
		return nil
	}
	rows := len(v.Cells[0])
	indent := strings.Repeat(" ", max(0, v.Shake))
	out := make([]string, 0, rows+2)

	var b strings.Builder
	rowText := func(row int) string {
		b.Reset()
		for _, col := range v.Cells {
			b.WriteByte(' ')
			if row < len(col) {
				b.WriteString(r.Glyph(col[row]))
			}
		}
		b.WriteByte(' ')
		return b.String()
	}

	if !v.Flags.Highlight {
		for row := 0; row < rows; row++ {
			out = append(out, indent+rowText(row))
		}
		return out
	}

	// Glyphs are double width.
	bar := strings.Repeat("═", len(v.Cells)*3+1)
	out = append(out, indent+r.style(telnet.BrightYellow, "╔"+bar+"╗"))
	side := r.style(telnet.BrightYellow, "║")
	for row := 0; row < rows; row++ {
		out = append(out, indent+side+rowText(row)+side)
	}
	out = append(out, indent+r.style(telnet.BrightYellow, "╚"+bar+"╝"))
	return out
}

func (r *Renderer) button(v View) string {
	label := r.Button(v)
	if v.State != machine.Idle || !v.CanSpin {
		return r.style(telnet.Dim, label)
	}
	return r.style(telnet.Bold+telnet.Green, label)
}

func (r *Renderer) message(msg string) string {
	switch msg {
	case machine.WinMessage:
		return r.style(telnet.Bold+telnet.BrightMagenta, msg)
	case machine.LoseMessage:
		return r.style(telnet.Yellow, msg)
	default:
		return msg
	}
}
