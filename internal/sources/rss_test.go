package sources

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "governo anuncia pacote", "governo anuncia pacote"},
		{"tags removed", "<p>governo <b>anuncia</b> pacote</p>", "governo anuncia pacote"},
		{"entities decoded", "aprova&ccedil;&atilde;o &amp; cr&iacute;tica", "aprovação & crítica"},
		{"whitespace collapsed", "linha um\n\n   linha  dois", "linha um linha dois"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.in); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("long text capped with ellipsis", func(t *testing.T) {
		got := stripHTML(strings.Repeat("a ", 2000))
		if len(got) != 2000 || !strings.HasSuffix(got, "...") {
			t.Fatalf("len = %d, suffix ok = %v", len(got), strings.HasSuffix(got, "..."))
		}
	})
}

func TestExtractBody(t *testing.T) {
	t.Run("content wins over description", func(t *testing.T) {
		item := &gofeed.Item{
			Title:       "título",
			Content:     "<p>corpo completo</p>",
			Description: "resumo",
		}
		if got := extractBody(item); got != "corpo completo" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("falls back to description then title", func(t *testing.T) {
		item := &gofeed.Item{Title: "título", Description: "resumo"}
		if got := extractBody(item); got != "resumo" {
			t.Fatalf("got %q", got)
		}

		item = &gofeed.Item{Title: "só título"}
		if got := extractBody(item); got != "só título" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("summary extension used before title", func(t *testing.T) {
		item := &gofeed.Item{
			Title:  "título",
			Custom: map[string]string{"summary": "resumo estendido"},
		}
		if got := extractBody(item); got != "resumo estendido" {
			t.Fatalf("got %q", got)
		}
	})
}
