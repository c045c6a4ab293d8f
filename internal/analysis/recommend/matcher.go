package recommend

import (
	"math/rand"
	"strings"

	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
)

// MaxResults caps every recommendation list.
const MaxResults = 5

// DefaultBudget is the price below which a product counts as economical.
const DefaultBudget int64 = 60000

// Shuffler is the random source used for sampling. *math/rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// SharedRand shuffles with the package-level source, safe for concurrent use.
type SharedRand struct{}

func (SharedRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Occasion names a keyword group.
type Occasion string

const (
	Romantic  Occasion = "romantic"
	Birthday  Occasion = "birthday"
	ForHim    Occasion = "for-him"
	Budget    Occasion = "budget"
	Sweets    Occasion = "sweets"
	Breakfast Occasion = "breakfast"
	Plush     Occasion = "plush"
	Hamper    Occasion = "hamper"
	Liquor    Occasion = "liquor"
	Flowers   Occasion = "flowers"
	Balloons  Occasion = "balloons"
	Mugs      Occasion = "mugs"
	Cushions  Occasion = "cushions"
	Cards     Occasion = "cards"
	Wallets   Occasion = "wallets"
	Cosmetics Occasion = "cosmetics"
	Party     Occasion = "party"
)

// group maps trigger words in a query to the catalog slice it selects.
// triggers and productWords are normalized; a trigger ending in a space must
// be followed by a word boundary.
type group struct {
	occasion     Occasion
	triggers     []string
	categories   []string
	productWords []string
	budget       bool
}

// groups are evaluated in order and the first hit wins.
var groups = []group{
	{
		occasion:     Romantic,
		triggers:     []string{"amor", "novia", "novio", "pareja", "aniversario", "san valentin", "enamorad", "romantic", "esposa", "esposo", "te amo"},
		categories:   []string{"flores", "peluches", "chocolates"},
		productWords: []string{"amor", "corazon", "romantic", "enamorad", "te amo"},
	},
	{
		occasion:     Birthday,
		triggers:     []string{"cumple", "fiesta", "celebra", "sorpresa de cumple"},
		categories:   []string{"globos", "pinateria"},
		productWords: []string{"cumpleanos", "fiesta", "celebracion"},
	},
	{
		occasion:     ForHim,
		triggers:     []string{"papa", "padre", "hombre", "caballero", "hermano", "abuelo", "jefe", "para el senor", "para mi tio"},
		categories:   []string{"billeteras", "licores"},
		productWords: []string{"hombre", "caballero", "papa", "whisky"},
	},
	{
		occasion: Budget,
		triggers: []string{"barat", "economic", "poco dinero", "presupuesto", "precio bajo", "no muy caro", "algo sencillo"},
		budget:   true,
	},
	{
		occasion:     Sweets,
		triggers:     []string{"dulce", "chocolate", "golosina", "bombon"},
		categories:   []string{"chocolates"},
		productWords: []string{"chocolate", "dulce", "golosina", "bombon"},
	},
	{occasion: Breakfast, triggers: []string{"desayuno"}, categories: []string{"desayunos"}, productWords: []string{"desayuno"}},
	{occasion: Plush, triggers: []string{"peluche", "oso", "osito"}, categories: []string{"peluches"}, productWords: []string{"peluche"}},
	{occasion: Hamper, triggers: []string{"ancheta", "canasta"}, categories: []string{"anchetas"}, productWords: []string{"ancheta", "canasta"}},
	{occasion: Liquor, triggers: []string{"licor", "vino", "whisky", "trago"}, categories: []string{"licores"}, productWords: []string{"vino", "whisky", "licor"}},
	{occasion: Flowers, triggers: []string{"flor", "rosa", "ramo"}, categories: []string{"flores"}, productWords: []string{"rosa", "flor"}},
	{occasion: Balloons, triggers: []string{"globo", "helio"}, categories: []string{"globos"}, productWords: []string{"globo"}},
	{occasion: Mugs, triggers: []string{"mug", "taza", "pocillo"}, categories: []string{"mugs"}, productWords: []string{"mug"}},
	{occasion: Cushions, triggers: []string{"cojin", "almohada"}, categories: []string{"cojines"}, productWords: []string{"cojin"}},
	{occasion: Cards, triggers: []string{"tarjeta", "dedicatoria"}, categories: []string{"tarjetas"}, productWords: []string{"tarjeta"}},
	{occasion: Wallets, triggers: []string{"billetera", "cartera"}, categories: []string{"billeteras"}, productWords: []string{"billetera"}},
	{occasion: Cosmetics, triggers: []string{"cosmetic", "maquillaje", "belleza"}, categories: []string{"cosmeticos"}, productWords: []string{"maquillaje", "cosmetic"}},
	{occasion: Party, triggers: []string{"pinata", "infantil", "nino"}, categories: []string{"pinateria"}, productWords: []string{"pinata", "infantil"}},
}

// browseTriggers ask for "anything": they get a random sample.
var browseTriggers = []string{
	"muestrame", "mostrar", "muestra", "catalogo", "opciones", "que tienen", "que venden",
	"ver productos", "ver los productos", "que productos", "sus productos", "todos los productos",
	"que hay", "todo lo que",
}

// minFuzzyTrigger keeps fuzzy classification away from short trigger words.
const minFuzzyTrigger = 5

// Matcher maps free-text queries to a bounded list of catalog products.
type Matcher struct {
	rand   Shuffler
	budget int64
}

// NewMatcher builds a Matcher. budget <= 0 selects DefaultBudget.
func NewMatcher(r Shuffler, budget int64) *Matcher {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Matcher{rand: r, budget: budget}
}

// Budget returns the economical price threshold.
func (m *Matcher) Budget() int64 {
	return m.budget
}

// Recommend returns up to MaxResults products for query, without duplicates.
// Browse queries return a random sample; otherwise the first matching
// occasion group filters the catalog in order. An unmatched query yields nil.
func (m *Matcher) Recommend(query string, items []catalog.Product) []catalog.Product {
	if len(items) == 0 {
		return nil
	}
	normalized := text.Normalize(query)
	if IsBrowse(normalized) {
		return m.Sample(items, MaxResults)
	}

	g, ok := classify(normalized)
	if !ok {
		g, ok = classifyFuzzy(normalized)
	}
	if !ok {
		return nil
	}
	return m.filter(g, items)
}

// Classify reports which occasion group query names by keyword.
func (m *Matcher) Classify(query string) (Occasion, bool) {
	g, ok := classify(text.Normalize(query))
	return g.occasion, ok
}

// ClassifyFuzzy is Classify tolerating up to two typos in longer keywords.
func (m *Matcher) ClassifyFuzzy(query string) (Occasion, bool) {
	g, ok := classifyFuzzy(text.Normalize(query))
	return g.occasion, ok
}

// Sample returns up to n items in a random order drawn from the injected source.
func (m *Matcher) Sample(items []catalog.Product, n int) []catalog.Product {
	pool := dedupe(items)
	if m.rand != nil {
		m.rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}
	if n >= 0 && len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

// IsBrowse reports whether a normalized query asks to see the catalog in
// general. Triggers match at word starts, so "porque hay" is not "que hay".
func IsBrowse(normalized string) bool {
	return text.StartsWord(text.Pad(normalized), browseTriggers...)
}

func classify(normalized string) (group, bool) {
	if normalized == "" {
		return group{}, false
	}
	padded := text.Pad(normalized)
	for _, g := range groups {
		if text.StartsWord(padded, g.triggers...) {
			return g, true
		}
	}
	return group{}, false
}

// classifyFuzzy tolerates typos ("pelcuhe") on longer trigger words.
func classifyFuzzy(normalized string) (group, bool) {
	words := text.Words(normalized)
	for _, g := range groups {
		for _, trigger := range g.triggers {
			if len(trigger) < minFuzzyTrigger || strings.Contains(trigger, " ") {
				continue
			}
			for _, w := range words {
				if len(w) <= 3 {
					continue
				}
				if text.Distance(w, trigger) <= text.MaxFuzzyDistance {
					return g, true
				}
			}
		}
	}
	return group{}, false
}

func (m *Matcher) filter(g group, items []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, 0, MaxResults)
	seen := make(map[string]struct{}, MaxResults)
	for _, item := range items {
		if len(out) == MaxResults {
			break
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		if !m.selects(g, item) {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func (m *Matcher) selects(g group, item catalog.Product) bool {
	if g.budget {
		return item.Price < m.budget
	}
	category := text.Normalize(item.Category)
	for _, c := range g.categories {
		if category == c {
			return true
		}
	}
	body := text.Normalize(item.Name + " " + item.Description)
	return text.ContainsAny(body, g.productWords...)
}

func dedupe(items []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
