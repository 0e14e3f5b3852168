package tools

import "testing"

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exact", "abc", 3, "abc"},
		{"cut", "abcdef", 4, "abcd"},
		{"multibyte", "日本語のテキスト", 3, "日本語"},
		{"negative", "abc", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.in, tt.n); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestRuneCounterTruncate(t *testing.T) {
	text := "0123456789abcdef"
	if got := (RuneCounter{}).Truncate(text, 2); got != "01234567" {
		t.Errorf("Truncate(2 tokens) = %q, want 8 characters", got)
	}
	if got := (RuneCounter{}).Truncate(text, 100); got != text {
		t.Errorf("Truncate(100 tokens) = %q, want unchanged", got)
	}
}
