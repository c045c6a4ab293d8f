package text

import "testing"

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"regalo", "regalo", 0},
		{"regalo", "regao", 1},
		{"", "abc", 3},
		{"abc", "", 3},
		{"peluche", "peluches", 1},
		{"kitten", "sitting", 3},
		{"año", "ano", 1},
	}

	for _, tc := range cases {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Fatalf("Distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDistanceIdentity(t *testing.T) {
	for _, s := range []string{"", "a", "desayuno sorpresa", "Cariñitos 💝"} {
		if got := Distance(s, s); got != 0 {
			t.Fatalf("Distance(%q, %q) = %d, want 0", s, s, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Cariñitos ": "carinitos",
		"DÓNDE ESTÁN":  "donde estan",
		"cumpleaños":   "cumpleanos",
		"":             "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		candidate string
		want      bool
	}{
		{name: "substring", query: "pelu", candidate: "Peluche Oso Gigante", want: true},
		{name: "accent insensitive", query: "anchéta", candidate: "Ancheta Premium", want: true},
		{name: "one typo", query: "pelcuhe", candidate: "Peluche Oso", want: true},
		{name: "two typos", query: "desayuni", candidate: "Desayuno sorpresa", want: true},
		{name: "too far", query: "chocolatina", candidate: "Globo metalizado", want: false},
		{name: "short query no fuzzy", query: "oza", candidate: "Oso", want: false},
		{name: "empty query", query: "   ", candidate: "Oso", want: false},
	}

	for _, tc := range cases {
		if got := Matches(tc.query, tc.candidate); got != tc.want {
			t.Fatalf("%s: Matches(%q, %q) = %v, want %v", tc.name, tc.query, tc.candidate, got, tc.want)
		}
	}
}

func TestForSpeech(t *testing.T) {
	got := ForSpeech("¡Hola! 👋 Soy tu asistente de *Detalles Cariñitos* 🎁")
	want := "¡Hola! Soy tu asistente de Detalles Carinitos"
	if got != want {
		t.Fatalf("ForSpeech = %q, want %q", got, want)
	}
}

func TestWords(t *testing.T) {
	got := Words("calle 34#11-02, guadalupe")
	want := []string{"calle", "34", "11", "02", "guadalupe"}
	if len(got) != len(want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Words = %v, want %v", got, want)
		}
	}
}

func TestPadAndStartsWord(t *testing.T) {
	padded := Pad(Normalize("¿Dónde están, por favor?"))
	if padded != " donde estan por favor " {
		t.Fatalf("Pad = %q", padded)
	}
	if !StartsWord(padded, "donde") || !StartsWord(padded, "por fav") {
		t.Fatalf("expected word-start matches in %q", padded)
	}
	if StartsWord(padded, "nde", "avor", "") {
		t.Fatalf("mid-word keywords must not match in %q", padded)
	}
}
