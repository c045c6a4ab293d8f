package flow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/model/chat"
)

// Intent labels which rule produced a response.
type Intent string

const (
	IntentCollect   Intent = "collect"
	IntentOrder     Intent = "order"
	IntentRecommend Intent = "recommend"
	IntentLocation  Intent = "location"
	IntentSocial    Intent = "social"
	IntentHuman     Intent = "human"
	IntentPayment   Intent = "payment"
	IntentDelivery  Intent = "delivery"
	IntentGreeting  Intent = "greeting"
	IntentFallback  Intent = "fallback"
)

// fallbackSampleSize is how many random products back an unmatched recommendation.
const fallbackSampleSize = 4

// Result is the outcome of one turn.
type Result struct {
	Next            State
	Text            string
	Patch           chat.OrderPatch
	Recommendations []catalog.Product
	Links           []chat.ActionLink
	ReviewPrompt    bool
	Intent          Intent
}

// Machine decides the assistant's reply for a state and utterance.
type Machine struct {
	matcher *recommend.Matcher
	shop    Shop
	rules   []rule
}

// New creates a Machine. matcher supplies recommendations and random sampling.
func New(matcher *recommend.Matcher, shop Shop) *Machine {
	m := &Machine{matcher: matcher, shop: shop}
	m.rules = m.idleRules()
	return m
}

// Shop returns the store data the machine quotes.
func (m *Machine) Shop() Shop {
	return m.shop
}

// Step handles one user utterance. It never fails: unknown states are
// treated as Idle and every path yields non-empty text.
func (m *Machine) Step(ctx context.Context, state State, utterance string, items []catalog.Product) Result {
	if state.Collecting() {
		return m.collect(ctx, state, utterance)
	}

	normalized := text.Normalize(utterance)
	padded := text.Pad(normalized)
	for _, r := range m.rules {
		if r.match(normalized, padded) {
			res := r.handle(ctx, utterance, items)
			res.Intent = r.intent
			if res.Next == "" {
				res.Next = Idle
			}
			return res
		}
	}
	return m.fallback()
}

func (m *Machine) collect(ctx context.Context, state State, utterance string) Result {
	answer := strings.TrimSpace(utterance)
	res := Result{Intent: IntentCollect}

	switch state {
	case AskingName:
		res.Patch.Name = &answer
		res.Text = fmt.Sprintf("%s 😊 ¿A qué número de teléfono te podemos contactar? 📞", thanks(answer))
	case AskingPhone:
		res.Patch.Phone = &answer
		res.Text = fmt.Sprintf("Perfecto. ¿Cuál es la dirección de entrega? 📍 Hacemos domicilios en %s.", m.shop.Coverage)
	case AskingAddress:
		res.Patch.Address = &answer
		res.Text = "¡Anotado! ¿Para quién es el regalo? 🎁"
	case AskingRecipient:
		res.Patch.Recipient = &answer
		res.Text = "¿Quieres incluir un mensaje en la tarjeta? ✉️ Escríbelo tal como lo quieres, o responde \"no\" si prefieres enviarlo sin mensaje."
	case AskingCardMessage:
		card := answer
		if declined(answer) {
			card = ""
		}
		res.Patch.CardMessage = &card
		res.Text = "¿Deseas agregar algún adicional o nota especial? 🎈 Por ejemplo un globo, chocolates o una hora de entrega. Si no, responde \"no\"."
	case AskingAddOns:
		if !declined(answer) && answer != "" {
			res.Patch.AddOns = &answer
		}
		res.Text = "¡Listo! ✅ Guardé tus datos en el formulario de pedido. Agrega tus productos al carrito y confirma el pedido por WhatsApp. ¿Nos ayudas con una reseña? ⭐ Tu opinión nos ayuda mucho."
		res.ReviewPrompt = true
		res.Links = []chat.ActionLink{{Label: "Dejar una reseña ⭐", URL: m.shop.ReviewURL, IsPrimary: true}}
	}

	next, err := advance(ctx, state, eventAnswer)
	if err != nil {
		log.Printf("[flow] %v", err)
		next = Idle
	}
	res.Next = next
	return res
}

// declinedAnswers mean "nothing" for the optional steps.
var declinedAnswers = map[string]struct{}{
	"no": {}, "none": {}, "ninguno": {}, "ninguna": {}, "nada": {}, "n/a": {},
	"no gracias": {}, "sin mensaje": {}, "no, gracias": {}, "nop": {},
}

func declined(answer string) bool {
	normalized := strings.Trim(text.Normalize(answer), ".!¡ ")
	_, ok := declinedAnswers[normalized]
	return ok
}

func thanks(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return "¡Gracias, " + fields[0] + "!"
	}
	return "¡Gracias!"
}
