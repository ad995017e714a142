package textmatch

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Café Déluxe!!":         "cafe deluxe",
		"  Crème   brûlée  ":    "creme brulee",
		"T-Shirt_XL / coton":    "t shirt xl coton",
		"ÉLÉGANCE":              "elegance",
		"!!!":                   "",
		"Boutique Aïcha & Fils": "boutique aicha fils",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("  Robe, wax  ")
	if !reflect.DeepEqual(got, []string{"robe", "wax"}) {
		t.Fatalf("unexpected tokens %v", got)
	}
}

func TestPatterns(t *testing.T) {
	got := Patterns("Café Dé")
	want := []string{"%c%a%f%e%d%e%", "%c%a%f%e% %d%e%"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Patterns = %v, want %v", got, want)
	}

	single := Patterns("wax")
	if !reflect.DeepEqual(single, []string{"%w%a%x%"}) {
		t.Fatalf("single token should yield one pattern, got %v", single)
	}

	if Patterns("  ?? ") != nil {
		t.Fatalf("empty normalized query must not produce patterns")
	}
}

func TestMatch(t *testing.T) {
	cases := []struct {
		q, target string
		want      bool
	}{
		{"cafe", "Café Déluxe", true},
		{"CFE", "Café Déluxe", true},
		{"deluxe cafe", "Café Déluxe", false},
		{"wdgt", "Widget", true},
		{"widget pro", "Widget Professional", true},
		{"gadget", "Widget", false},
		{"", "anything", true},
	}
	for _, tc := range cases {
		if got := Match(tc.q, tc.target); got != tc.want {
			t.Fatalf("Match(%q, %q) = %v, want %v", tc.q, tc.target, got, tc.want)
		}
	}
}
