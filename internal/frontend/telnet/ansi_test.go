package telnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[33mCoba lagi!\033[0m", Colorize(Yellow, "Coba lagi!"))
}

func TestColorf(t *testing.T) {
	assert.Equal(t, "\033[1mSaldo: 90000\033[0m", Colorf(Bold, "Saldo: %d", 90000))
}

func TestStripANSI(t *testing.T) {
	input := Colorize(BrightYellow, "🎉 YOU WIN!") + " " + Dim + Bold + "[ Spinning... ]" + Reset
	assert.Equal(t, "🎉 YOU WIN! [ Spinning... ]", StripANSI(input))
}

func TestStripANSI_KeepsScreenControl(t *testing.T) {
	assert.Equal(t, Redraw+"x", StripANSI(Redraw+Colorize(Red, "x")))
}

func TestStripANSI_Unterminated(t *testing.T) {
	assert.Equal(t, "a\033[12", StripANSI("a\033[12"))
	assert.Equal(t, "", StripANSI(""))
}

// Property: StripANSI(Colorize(color, text)) == text for any ASCII text.
func TestPropertyStripANSIInversesColorize(t *testing.T) {
	codes := []string{Red, Green, Yellow, Magenta, Cyan, BrightYellow, BrightMagenta, BgYellow, Bold, Dim}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 !.]{0,50}`).Draw(t, "text")
		code := codes[rapid.IntRange(0, len(codes)-1).Draw(t, "code")]
		assert.Equal(t, text, StripANSI(Colorize(code, text)))
	})
}

// Property: StripANSI output length <= input length.
func TestPropertyStripANSIOutputShorterOrEqual(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		assert.LessOrEqual(t, len(StripANSI(text)), len(text))
	})
}
