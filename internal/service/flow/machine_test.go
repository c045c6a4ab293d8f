package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/model/chat"
)

type identityShuffler struct{}

func (identityShuffler) Shuffle(int, func(i, j int)) {}

func newTestMachine() *Machine {
	return New(recommend.NewMatcher(identityShuffler{}, 0), DefaultShop())
}

func runTurns(t *testing.T, m *Machine, inputs []string) (State, chat.OrderData, Result) {
	t.Helper()
	ctx := context.Background()
	state := Idle
	var order chat.OrderData
	var last Result
	for _, in := range inputs {
		last = m.Step(ctx, state, in, catalog.Seed())
		order = order.Apply(last.Patch)
		state = last.Next
	}
	return state, order, last
}

func TestOrderFlowScenario(t *testing.T) {
	m := newTestMachine()
	state, order, last := runTurns(t, m, []string{
		"quiero pedir", "Ana Gómez", "3001234567", "Calle 1 #2-3", "Juan Pérez", "no", "no",
	})

	want := chat.OrderData{
		Name:      "Ana Gómez",
		Phone:     "3001234567",
		Address:   "Calle 1 #2-3",
		Recipient: "Juan Pérez",
	}
	if order != want {
		t.Fatalf("order = %+v, want %+v", order, want)
	}
	if state != Idle {
		t.Fatalf("expected Idle after add-ons, got %s", state)
	}
	if !last.ReviewPrompt {
		t.Fatal("expected review prompt on final turn")
	}
}

func TestOrderFlowVisitsEveryState(t *testing.T) {
	m := newTestMachine()
	ctx := context.Background()
	want := []State{AskingName, AskingPhone, AskingAddress, AskingRecipient, AskingCardMessage, AskingAddOns, Idle}
	inputs := []string{"quiero comprar", "Luis", "311", "Cra 5", "Marta", "Feliz día mamá", "entregar antes de las 9"}

	state := Idle
	for i, in := range inputs {
		res := m.Step(ctx, state, in, catalog.Seed())
		if res.Next != want[i] {
			t.Fatalf("turn %d: next = %s, want %s", i, res.Next, want[i])
		}
		if i > 0 && res.Intent != IntentCollect {
			t.Fatalf("turn %d: intent = %s, want collect", i, res.Intent)
		}
		state = res.Next
	}
}

func TestOrderFlowPopulatesAllFields(t *testing.T) {
	m := newTestMachine()
	// content of the answers must not matter, even when it looks like another intent
	state, order, _ := runTurns(t, m, []string{
		"hacer un pedido", "hola", "donde", "instagram", "asesor", "te quiero mucho", "globo rojo",
	})
	if state != Idle {
		t.Fatalf("expected Idle, got %s", state)
	}
	if order.Name != "hola" || order.Phone != "donde" || order.Address != "instagram" || order.Recipient != "asesor" {
		t.Fatalf("unexpected captured fields: %+v", order)
	}
	if order.AddOns != "globo rojo" {
		t.Fatalf("expected add-on note, got %q", order.AddOns)
	}
	if order.CardMessage != "te quiero mucho | Adicional: globo rojo" {
		t.Fatalf("unexpected card message %q", order.CardMessage)
	}
}

func TestCardMessageDeclineSentinels(t *testing.T) {
	m := newTestMachine()
	for _, answer := range []string{"no", "No", "none", "ninguno", "No gracias", "nada."} {
		res := m.Step(context.Background(), AskingCardMessage, answer, nil)
		if res.Patch.CardMessage == nil || *res.Patch.CardMessage != "" {
			t.Fatalf("answer %q should clear card message, got %v", answer, res.Patch.CardMessage)
		}
	}
	res := m.Step(context.Background(), AskingCardMessage, "Nonstop love", nil)
	if res.Patch.CardMessage == nil || *res.Patch.CardMessage != "Nonstop love" {
		t.Fatalf("expected card message to be kept, got %v", res.Patch.CardMessage)
	}
}

func TestLocationQuery(t *testing.T) {
	m := newTestMachine()
	res := m.Step(context.Background(), Idle, "donde estan ubicados", catalog.Seed())

	if !strings.Contains(res.Text, "Calle 34#11-02") {
		t.Fatalf("expected address in response, got %q", res.Text)
	}
	if len(res.Links) != 1 || !res.Links[0].IsPrimary {
		t.Fatalf("expected exactly one primary link, got %+v", res.Links)
	}
	if res.Intent != IntentLocation || res.Next != Idle {
		t.Fatalf("unexpected intent %s next %s", res.Intent, res.Next)
	}
}

func TestUnmatchedQueryFallsBack(t *testing.T) {
	m := newTestMachine()
	res := m.Step(context.Background(), Idle, "xyzabc123", catalog.Seed())

	if res.Intent != IntentFallback {
		t.Fatalf("expected fallback, got %s", res.Intent)
	}
	if !strings.Contains(res.Text, "ASESOR") {
		t.Fatalf("fallback should name the human keyword, got %q", res.Text)
	}
	if len(res.Recommendations) != 0 || len(res.Links) != 0 {
		t.Fatalf("fallback must not attach anything: %+v", res)
	}
}

func TestIdleDispatch(t *testing.T) {
	m := newTestMachine()
	cases := []struct {
		utterance string
		intent    Intent
		links     int
		primary   int
		recs      int
	}{
		{utterance: "Hola!", intent: IntentGreeting},
		{utterance: "¿Cuáles son los medios de pago?", intent: IntentPayment},
		{utterance: "¿aceptan Nequi para pagar los productos?", intent: IntentPayment},
		{utterance: "¿Dónde quedan?", intent: IntentLocation},
		{utterance: "hacen domicilios a Pereira?", intent: IntentDelivery},
		{utterance: "tienen instagram?", intent: IntentSocial, links: 2},
		{utterance: "quiero hablar con un asesor", intent: IntentHuman, links: 1, primary: 1},
		{utterance: "busco un regalo para mi novia", intent: IntentRecommend, recs: 5},
		{utterance: "busco algo único", intent: IntentRecommend, recs: 4},
		{utterance: "quiero un pelcuhe", intent: IntentRecommend, recs: 2},
		{utterance: "quiero pedir", intent: IntentOrder},
	}

	for _, tc := range cases {
		res := m.Step(context.Background(), Idle, tc.utterance, catalog.Seed())
		if res.Intent != tc.intent {
			t.Fatalf("%q: intent = %s, want %s", tc.utterance, res.Intent, tc.intent)
		}
		if len(res.Links) != tc.links {
			t.Fatalf("%q: links = %d, want %d", tc.utterance, len(res.Links), tc.links)
		}
		primary := 0
		for _, l := range res.Links {
			if l.IsPrimary {
				primary++
			}
		}
		if primary != tc.primary {
			t.Fatalf("%q: primary links = %d, want %d", tc.utterance, primary, tc.primary)
		}
		if len(res.Recommendations) != tc.recs {
			t.Fatalf("%q: recommendations = %d, want %d", tc.utterance, len(res.Recommendations), tc.recs)
		}
	}
}

func TestStepNeverReturnsEmptyText(t *testing.T) {
	m := newTestMachine()
	utterances := []string{"", " ", "no", "xyz", "quiero pedir", "flores", "🎁", "donde", "123456789"}
	allStates := append([]State{"Unknown"}, states...)
	for _, s := range allStates {
		for _, u := range utterances {
			for _, items := range [][]catalog.Product{nil, catalog.Seed()} {
				res := m.Step(context.Background(), s, u, items)
				if strings.TrimSpace(res.Text) == "" {
					t.Fatalf("empty response for state %s utterance %q", s, u)
				}
				if len(res.Recommendations) > recommend.MaxResults {
					t.Fatalf("too many recommendations for %q", u)
				}
			}
		}
	}
}

func TestParseState(t *testing.T) {
	if s, ok := ParseState("AskingPhone"); !ok || s != AskingPhone {
		t.Fatalf("ParseState(AskingPhone) = %s, %v", s, ok)
	}
	if s, ok := ParseState("bogus"); ok || s != Idle {
		t.Fatalf("ParseState(bogus) = %s, %v", s, ok)
	}
}

func TestAdvanceRejectsOrderOutsideIdle(t *testing.T) {
	if _, err := advance(context.Background(), AskingPhone, eventOrder); err == nil {
		t.Fatal("expected error starting an order mid-collection")
	}
}
