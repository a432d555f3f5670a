package discord

import (
	"strings"
	"testing"
)

func TestSplitChunks(t *testing.T) {
	t.Run("short content single chunk", func(t *testing.T) {
		got := splitChunks("hello", 10)
		if len(got) != 1 || got[0] != "hello" {
			t.Errorf("splitChunks = %v", got)
		}
	})

	t.Run("empty content no chunks", func(t *testing.T) {
		if got := splitChunks("", 10); len(got) != 0 {
			t.Errorf("splitChunks(empty) = %v", got)
		}
	})

	t.Run("hard cut without newline", func(t *testing.T) {
		got := splitChunks(strings.Repeat("a", 25), 10)
		if len(got) != 3 || got[0] != strings.Repeat("a", 10) || len(got[2]) != 5 {
			t.Errorf("splitChunks = %v", got)
		}
	})

	t.Run("prefers newline in back half", func(t *testing.T) {
		// newline at index 7 of a 10-char limit: cut after it.
		content := "aaaaaaa\nbbbbbbbb"
		got := splitChunks(content, 10)
		if len(got) != 2 || got[0] != "aaaaaaa\n" || got[1] != "bbbbbbbb" {
			t.Errorf("splitChunks = %v", got)
		}
	})

	t.Run("ignores newline in front half", func(t *testing.T) {
		// newline at index 2 is before the midpoint; hard cut wins.
		content := "aa\n" + strings.Repeat("b", 12)
		got := splitChunks(content, 10)
		if got[0] != "aa\nbbbbbbb" {
			t.Errorf("first chunk = %q", got[0])
		}
	})

	t.Run("reassembles to original", func(t *testing.T) {
		content := strings.Repeat("line one\nline two\n", 50)
		got := splitChunks(content, 100)
		if strings.Join(got, "") != content {
			t.Error("chunks must concatenate back to the original content")
		}
		for i, c := range got {
			if len(c) > 100 {
				t.Errorf("chunk %d exceeds limit: %d", i, len(c))
			}
		}
	})
}

func TestLastIndexByte(t *testing.T) {
	tests := []struct {
		s    string
		want int
	}{
		{"a\nb\nc", 3},
		{"abc", -1},
		{"", -1},
		{"\n", 0},
	}

	for _, tt := range tests {
		if got := lastIndexByte(tt.s, '\n'); got != tt.want {
			t.Errorf("lastIndexByte(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}
