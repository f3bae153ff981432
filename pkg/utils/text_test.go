package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("日本語のテキスト", 3); got != "日本語..." {
		t.Errorf("multibyte: got %q", got)
	}
}

func TestHead(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdef", 3, "abc"},
		{"abc", 10, "abc"},
		{"", 5, ""},
		{"abc", 0, ""},
		{"ééé", 2, "éé"},
	}
	for _, tt := range tests {
		if got := Head(tt.in, tt.n); got != tt.want {
			t.Errorf("Head(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
