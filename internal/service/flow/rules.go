package flow

import (
	"context"
	"fmt"
	"log"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/model/chat"
)

// rule is one (predicate, handler) pair of the Idle dispatch list.
type rule struct {
	intent Intent
	match  func(normalized, padded string) bool
	handle func(ctx context.Context, utterance string, items []catalog.Product) Result
}

// words matches keywords at a word start.
func words(keywords ...string) func(string, string) bool {
	return func(_, padded string) bool {
		return text.StartsWord(padded, keywords...)
	}
}

var (
	orderWords = []string{
		"quiero pedir", "hacer un pedido", "hacer pedido", "pedir", "pedido", "comprar",
		"ordenar", "encargar", "quiero encargar",
	}
	recommendWords = []string{
		"recomien", "recomend", "sugier", "sugerencia", "busco", "buscando", "regalo", "regalar",
		"ideas", "idea", "ocasion", "precio", "cuanto cuesta", "cuanto vale", "cuanto valen", "detalle",
	}
	locationWords = []string{"donde", "ubica", "direccion", "local", "tienda fisica", "como llego", "mapa"}
	socialWords   = []string{"redes", "instagram", "insta", "facebook", "social", "tiktok"}
	humanWords    = []string{"asesor", "humano", "una persona", "agente", "hablar con", "whatsapp", "contacto", "telefono"}
	paymentWords  = []string{"pago", "pagar", "nequi", "daviplata", "datafono", "efectivo", "metodo", "medio de pago", "medios de pago"}
	deliveryWords = []string{"domicilio", "envio", "envian", "enviar", "entrega", "cobertura", "llevan", "despacho", "horario", "abren", "atienden"}
	greetWords    = []string{"hola", "buenas", "buenos dias", "buen dia", "hey", "saludos", "que tal", "holi"}
)

func (m *Machine) idleRules() []rule {
	return []rule{
		{intent: IntentOrder, match: words(orderWords...), handle: m.startOrder},
		{intent: IntentRecommend, match: m.wantsRecommendation, handle: m.recommend},
		{intent: IntentLocation, match: words(locationWords...), handle: m.location},
		{intent: IntentSocial, match: words(socialWords...), handle: m.social},
		{intent: IntentHuman, match: words(humanWords...), handle: m.human},
		{intent: IntentPayment, match: words(paymentWords...), handle: m.payment},
		{intent: IntentDelivery, match: words(deliveryWords...), handle: m.delivery},
		{intent: IntentGreeting, match: words(greetWords...), handle: m.greeting},
		{intent: IntentRecommend, match: m.fuzzyRecommendation, handle: m.recommend},
	}
}

func (m *Machine) wantsRecommendation(normalized, padded string) bool {
	if recommend.IsBrowse(normalized) {
		return true
	}
	if _, ok := m.matcher.Classify(normalized); ok {
		return true
	}
	return words(recommendWords...)(normalized, padded)
}

func (m *Machine) fuzzyRecommendation(normalized, _ string) bool {
	_, ok := m.matcher.ClassifyFuzzy(normalized)
	return ok
}

func (m *Machine) startOrder(ctx context.Context, _ string, _ []catalog.Product) Result {
	next, err := advance(ctx, Idle, eventOrder)
	if err != nil {
		log.Printf("[flow] %v", err)
	}
	return Result{
		Next: next,
		Text: "¡Qué bien! 🎁 Te ayudo a tomar tu pedido paso a paso. Para empezar, ¿cuál es tu nombre completo?",
	}
}

func (m *Machine) recommend(_ context.Context, utterance string, items []catalog.Product) Result {
	recs := m.matcher.Recommend(utterance, items)
	if len(recs) > 0 {
		return Result{
			Text:            "¡Tengo estas ideas para ti! 💝 Toca cualquiera para agregarla al carrito:",
			Recommendations: recs,
		}
	}
	return Result{
		Text:            "No encontré algo exacto para eso 😅, pero mira estas opciones que a nuestros clientes les encantan:",
		Recommendations: m.matcher.Sample(items, fallbackSampleSize),
	}
}

func (m *Machine) location(context.Context, string, []catalog.Product) Result {
	return Result{
		Text:  fmt.Sprintf("📍 Estamos en %s. Atendemos %s y también hacemos domicilios.", m.shop.Address, m.shop.Hours),
		Links: []chat.ActionLink{{Label: "Ver en el mapa", URL: m.shop.MapURL, IsPrimary: true}},
	}
}

func (m *Machine) social(context.Context, string, []catalog.Product) Result {
	return Result{
		Text: "¡Síguenos en redes! 📱 Ahí publicamos nuestros detalles más recientes y promociones.",
		Links: []chat.ActionLink{
			{Label: "Facebook", URL: m.shop.FacebookURL},
			{Label: "Instagram", URL: m.shop.InstagramURL},
		},
	}
}

func (m *Machine) human(context.Context, string, []catalog.Product) Result {
	return Result{
		Text:  "Claro 🙌 Te comunico con una persona de nuestro equipo por WhatsApp.",
		Links: []chat.ActionLink{{Label: "Hablar con un asesor", URL: m.shop.ChatURL, IsPrimary: true}},
	}
}

func (m *Machine) payment(context.Context, string, []catalog.Product) Result {
	return Result{
		Text: "Aceptamos estos medios de pago 💳:\n• Nequi\n• Daviplata\n• Datáfono\n• Efectivo\nEliges el método al confirmar tu pedido.",
	}
}

func (m *Machine) delivery(context.Context, string, []catalog.Product) Result {
	return Result{
		Text: fmt.Sprintf("🚚 Hacemos domicilios en %s. Atendemos %s, así que tu detalle llega cuando lo necesites.", m.shop.Coverage, m.shop.Hours),
	}
}

func (m *Machine) greeting(context.Context, string, []catalog.Product) Result {
	return Result{
		Text: "¡Hola! 😊 Qué gusto saludarte. Cuéntame la ocasión y te recomiendo el regalo ideal, o escribe \"quiero pedir\" para tomar tu pedido.",
	}
}

func (m *Machine) fallback() Result {
	return Result{
		Next:   Idle,
		Intent: IntentFallback,
		Text:   "Mmm, no estoy seguro de haberte entendido 🤔. Puedes contarme la ocasión (cumpleaños, aniversario, amor, amistad...) y te recomiendo regalos, o escribe ASESOR para hablar con una persona.",
	}
}
