package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain flag", "--headless=new", "--headless=new"},
		{"empty", "", "''"},
		{"spaces", "/opt/google chrome/chrome", "'/opt/google chrome/chrome'"},
		{"single quote", "it's a clip", `'it'"'"'s a clip'`},
		{"query string", "https://clips.twitch.tv/abc?tt_medium=1&x=2", "'https://clips.twitch.tv/abc?tt_medium=1&x=2'"},
		{"double quotes", `display notification "gg"`, `'display notification "gg"'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteArg(tt.input))
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	assert.Equal(t, "notify-send 'Batch Finished' 'ok!'",
		ShellEscapeCommand("notify-send", "Batch Finished", "ok!"))
	assert.Equal(t, "'/tmp/my apps/chrome' --lang=en-US",
		ShellEscapeCommand("/tmp/my apps/chrome", "--lang=en-US"))
}

func TestIsShellSpecialChar(t *testing.T) {
	for _, c := range " \t'\"$`\\!*?[](){}|;<>&~#%\n\r" {
		assert.True(t, isShellSpecialChar(c), "expected %q to be special", c)
	}
	for _, c := range "abcABC123_-./:@=+" {
		assert.False(t, isShellSpecialChar(c), "expected %q to be plain", c)
	}
}
