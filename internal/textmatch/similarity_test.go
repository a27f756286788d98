package textmatch

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Birrificio Viana", "birrificio viana"},
		{"  Birra-Viana!  ", "birra viana"},
		{"HEINEKEN", "heineken"},
		{"", ""},
		{"...", ""},
	}

	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSimilarityIdentity(t *testing.T) {
	for _, s := range []string{"Heineken", "Birrificio Viana", "a", "craft beer co"} {
		if got := Similarity(s, s); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, want 1.0", s, s, got)
		}
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"Heineken", "Heneken"},
		{"Birrificio Viana", "Birrificio Indipendente Viana"},
		{"stout", "porter"},
		{"", "something"},
	}

	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %f but reversed = %f", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Expected empty-vs-empty similarity 1.0, got %f", got)
	}
	if got := Similarity("", "Heineken"); got != 0.0 {
		t.Errorf("Expected empty-vs-nonempty similarity 0.0, got %f", got)
	}
}

func TestSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"Heineken", "Guinness"},
		{"a", "zzzzzzzzzzzz"},
		{"Birra Moretti", "Moretti"},
	}

	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %f, outside [0,1]", p[0], p[1], got)
		}
	}
}

func TestSimilarityCloseNames(t *testing.T) {
	if got := Similarity("Heineken", "Heneken"); got <= 0.8 {
		t.Errorf("Expected one-typo similarity > 0.8, got %f", got)
	}
	if got := Similarity("Heineken", "Guinness"); got >= 0.6 {
		t.Errorf("Expected unrelated-name similarity < 0.6, got %f", got)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Birrificio Indipendente di Viana", 2)
	want := []string{"birrificio", "indipendente", "viana"}
	if len(got) != len(want) {
		t.Fatalf("Tokens returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
