package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_Accepts(t *testing.T) {
	for _, pw := range []string{"Abcdef1!", "Ghijkl2@", "zZ9" + strings.Repeat("x", 5) + "\\", "Passw0rd?"} {
		assert.NoError(t, Check(pw), pw)
	}
}

func TestCheck_FirstUnmetRuleWins(t *testing.T) {
	cases := []struct {
		name string
		pw   string
		want error
	}{
		{"empty", "", ErrTooShort},
		{"short but otherwise weak", "abc", ErrTooShort},
		{"short with every class", "Ab1!", ErrTooShort},
		{"too long", "A" + strings.Repeat("b", 70) + "1!", ErrTooLong},
		{"no upper, no digit, no symbol", "abcdefgh", ErrNoUpper},
		{"no lower", "ABCDEFG1!", ErrNoLower},
		{"no digit, no symbol", "Abcdefgh", ErrNoDigit},
		{"no symbol", "Abcdefg1", ErrNoSymbol},
		{"backtick is not a symbol", "Abcdef1`", ErrNoSymbol},
		{"tilde is not a symbol", "Abcdef1~", ErrNoSymbol},
		{"non-ascii upper does not count", "Ébcdef1!", ErrNoUpper},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Check(tc.pw), tc.want)
		})
	}
}

func TestCheck_EverySymbolAccepted(t *testing.T) {
	for _, r := range Symbols {
		assert.NoError(t, Check("Abcdef1"+string(r)), string(r))
	}
}
