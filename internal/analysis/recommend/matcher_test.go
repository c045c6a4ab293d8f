package recommend

import (
	"fmt"
	"testing"

	"github.com/carinitosdigital/detalles/internal/model/catalog"
)

// reverseShuffler reverses the slice so sampling is deterministic.
type reverseShuffler struct{ calls int }

func (r *reverseShuffler) Shuffle(n int, swap func(i, j int)) {
	r.calls++
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func newTestMatcher() (*Matcher, *reverseShuffler) {
	r := &reverseShuffler{}
	return NewMatcher(r, 0), r
}

func TestRecommendBrowseSamplesFromRandomSource(t *testing.T) {
	m, r := newTestMatcher()
	items := catalog.Seed()

	got := m.Recommend("Muéstrame el catálogo", items)
	if r.calls != 1 {
		t.Fatalf("expected one shuffle, got %d", r.calls)
	}
	if len(got) != MaxResults {
		t.Fatalf("expected %d items, got %d", MaxResults, len(got))
	}
	if got[0].ID != items[len(items)-1].ID {
		t.Fatalf("expected sample to follow shuffle order, got %s first", got[0].ID)
	}
}

func TestRecommendGroups(t *testing.T) {
	m, _ := newTestMatcher()
	items := catalog.Seed()

	cases := []struct {
		query string
		want  []string
	}{
		{
			query: "algo para mi novia",
			want:  []string{"desayuno-romantico", "peluche-oso-gigante", "peluche-corazon", "cojin-amor", "chocolates-ferrero"},
		},
		{
			query: "regalo de cumpleaños",
			want:  []string{"desayuno-cumpleanos", "ancheta-premium", "globo-helio-personalizado", "bouquet-globos", "kit-pinata"},
		},
		{
			query: "un detalle para el papá",
			want:  []string{"ancheta-caballero", "billetera-cuero", "mug-mejor-papa", "vino-tinto"},
		},
		{
			query: "algo barato",
			want:  []string{"peluche-corazon", "cojin-personalizado", "cojin-amor", "chocolates-ferrero", "globo-helio-personalizado"},
		},
		{
			query: "tienen desayunos?",
			want:  []string{"desayuno-romantico", "desayuno-cumpleanos", "desayuno-clasico"},
		},
		{
			query: "quiero un pelcuhe",
			want:  []string{"peluche-oso-gigante", "peluche-corazon"},
		},
	}

	for _, tc := range cases {
		got := catalog.IDs(m.Recommend(tc.query, items))
		if fmt.Sprint(got) != fmt.Sprint(tc.want) {
			t.Fatalf("Recommend(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestRecommendFirstGroupWins(t *testing.T) {
	m, _ := newTestMatcher()
	// romantic is checked before sweets
	occasion, ok := m.Classify("chocolates para mi novia")
	if !ok || occasion != Romantic {
		t.Fatalf("expected romantic, got %q ok=%v", occasion, ok)
	}
}

func TestRecommendUnmatchedAndEmpty(t *testing.T) {
	m, _ := newTestMatcher()
	if got := m.Recommend("xyzabc123", catalog.Seed()); len(got) != 0 {
		t.Fatalf("expected no recommendations, got %v", catalog.IDs(got))
	}
	if got := m.Recommend("flores", nil); len(got) != 0 {
		t.Fatalf("expected empty result for empty catalog, got %d", len(got))
	}
}

func TestRecommendCapAndUniqueness(t *testing.T) {
	m, _ := newTestMatcher()
	items := catalog.Seed()
	// duplicate the catalog to tempt duplicates
	items = append(items, items...)

	queries := []string{"", "ver productos", "amor", "cumple", "barato", "dulces", "peluche", "flores", "xyz", "para el jefe"}
	for _, q := range queries {
		got := m.Recommend(q, items)
		if len(got) > MaxResults {
			t.Fatalf("Recommend(%q) returned %d items", q, len(got))
		}
		seen := map[string]bool{}
		for _, p := range got {
			if seen[p.ID] {
				t.Fatalf("Recommend(%q) repeated %s", q, p.ID)
			}
			seen[p.ID] = true
		}
	}
}

func TestComplements(t *testing.T) {
	m, _ := newTestMatcher()
	items := catalog.Seed()

	got := catalog.IDs(m.Complements(items, []string{"peluche-oso-gigante", "peluche-corazon"}, 0))
	want := []string{"cojin-personalizado", "cojin-amor", "chocolates-ferrero", "chocolates-corazon"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Complements = %v, want %v", got, want)
	}
}

func TestClassifyMothersDayIsNotForHim(t *testing.T) {
	m, _ := newTestMatcher()
	if occ, ok := m.Classify("un regalo para el día de la madre"); ok && occ == ForHim {
		t.Fatalf("mother's day query classified as %s", occ)
	}
	if occ, ok := m.Classify("un detalle para el señor de la casa"); !ok || occ != ForHim {
		t.Fatalf("expected %s, got %s (ok=%v)", ForHim, occ, ok)
	}
}

func TestIsBrowseMatchesWordStarts(t *testing.T) {
	cases := map[string]bool{
		"muestrame el catalogo":                    true,
		"¿que hay?":                                true,
		"quiero ver los productos":                 true,
		"porque hay trafico":                       false,
		"¿aceptan nequi para pagar los productos?": false,
	}
	for query, want := range cases {
		if got := IsBrowse(query); got != want {
			t.Fatalf("IsBrowse(%q) = %v, want %v", query, got, want)
		}
	}
}
