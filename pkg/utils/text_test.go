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
	if got := Truncate("éléphant", 3); got != "élé..." {
		t.Errorf("rune-safe truncate: got %q", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a \t\n b   c "); got != "a b c" {
		t.Errorf("got %q", got)
	}
	if got := CollapseSpace(" \n "); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestFoldAccents(t *testing.T) {
	if got := FoldAccents("Été à Noël, ça"); got != "Ete a Noel, ca" {
		t.Errorf("got %q", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Voir https://exemple.fr/page et www.site.com ici", "voir et ici"},
		{"L'Été   arrive\n\n— vite!", "l'ete arrive vite!"},
		{"prix: 42€ (TTC)", "prix 42 ttc"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("Éléphant rose et chat", 8); got != "elephant" {
		t.Errorf("got %q", got)
	}
	if got := Snippet("court", 200); got != "court" {
		t.Errorf("got %q", got)
	}
}
