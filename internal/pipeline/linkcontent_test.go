package pipeline

import "testing"

func TestIsShortText(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		threshold int
		want      bool
	}{
		{"bare link", "https://example.com/story", 25, true},
		{"link with short comment", "veja https://example.com/story", 25, true},
		{"link with long comment", "análise completa do novo pacote fiscal do governo https://example.com/story", 25, false},
		{"accents count as single characters", "aprovação unânime é notícia https://x.co/1", 25, false},
		{"empty after stripping", "https://a.co https://b.co", 25, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isShortText(tt.content, tt.threshold); got != tt.want {
				t.Errorf("isShortText(%q, %d) = %v, want %v", tt.content, tt.threshold, got, tt.want)
			}
		})
	}
}
