package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/sevadesk/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n", ""},
		{"plain", "moved for family request", "moved for family request"},
		{"trims", "  ok  ", "ok"},
		{"keeps ampersand", "Tom & Jerry", "Tom & Jerry"},
		{"strips tags", "<b>approved</b> by desk", "approved by desk"},
		{"drops script", "<script>alert('x')</script>", ""},
		{"tags only", "<p></p>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlainText_Truncates(t *testing.T) {
	in := strings.Repeat("é", htmlsanitize.MaxTextRunes+50)
	got := htmlsanitize.PlainText(in)
	if n := len([]rune(got)); n != htmlsanitize.MaxTextRunes {
		t.Errorf("expected %d runes, got %d", htmlsanitize.MaxTextRunes, n)
	}
}
