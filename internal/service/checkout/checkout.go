// Package checkout turns the cart and the order form into a WhatsApp hand-off.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/metrics"
	"github.com/carinitosdigital/detalles/internal/model/chat"
	"github.com/carinitosdigital/detalles/internal/service/cart"
	"github.com/carinitosdigital/detalles/internal/store"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrPaymentMethodRequired  = errors.New("Por favor selecciona un método de pago.")
	ErrCustomerInfoIncomplete = errors.New("customer info is incomplete")
)

// CustomerInfo is the checkout form. It shares the dc_customerInfo record with
// the data the assistant collects.
type CustomerInfo = chat.OrderData

// Accepted payment methods.
const (
	PaymentNequi     = "Nequi"
	PaymentDaviplata = "Daviplata"
	PaymentDatafono  = "Datafono"
	PaymentCash      = "Efectivo"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []string{PaymentNequi, PaymentDaviplata, PaymentDatafono, PaymentCash}

const noCardMessage = "Sin mensaje"

// Cart is the part of the cart the checkout consumes.
type Cart interface {
	Items(ctx context.Context) ([]cart.Item, error)
	Clear(ctx context.Context) error
}

// Result is a generated hand-off.
type Result struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
	Total   int64  `json:"total"`
}

// Service builds checkout links for one shop number.
type Service struct {
	number  string
	metrics *metrics.Recorder
}

// NewService creates a checkout service targeting a WhatsApp number.
func NewService(number string, m *metrics.Recorder) *Service {
	return &Service{number: number, metrics: m}
}

// Prefill returns the stored form, with a free-text payment answer from the
// assistant mapped onto an accepted method when possible.
func (s *Service) Prefill(ctx context.Context, form store.Store) (CustomerInfo, error) {
	var info CustomerInfo
	if _, err := store.GetJSON(ctx, form, store.KeyCustomerInfo, &info); err != nil {
		return CustomerInfo{}, fmt.Errorf("load order form: %w", err)
	}
	info.PaymentMethod = MatchPaymentMethod(info.PaymentMethod)
	return info, nil
}

// SaveForm persists the form as the visitor edits it.
func (s *Service) SaveForm(ctx context.Context, form store.Store, info CustomerInfo) error {
	if err := store.SetJSON(ctx, form, store.KeyCustomerInfo, info); err != nil {
		return fmt.Errorf("persist order form: %w", err)
	}
	return nil
}

// Checkout validates the form, builds the summary and link, then clears the
// cart and the stored form.
func (s *Service) Checkout(ctx context.Context, c Cart, form store.Store, info CustomerInfo) (Result, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{}, ErrEmptyCart
	}
	if err := Validate(info); err != nil {
		return Result{}, err
	}

	summary := Summary(info, items)
	res := Result{URL: Link(s.number, summary), Summary: summary, Total: cart.Total(items)}

	if err := c.Clear(ctx); err != nil {
		return Result{}, err
	}
	if err := form.Remove(ctx, store.KeyCustomerInfo); err != nil {
		return Result{}, fmt.Errorf("clear order form: %w", err)
	}
	s.metrics.Checkout()
	log.Printf("[checkout] link generated (lines=%d total=%d)", len(items), res.Total)
	return res, nil
}

// Validate checks the required form fields and the payment method.
func Validate(info CustomerInfo) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"nombre", info.Name},
		{"telefono", info.Phone},
		{"para", info.Recipient},
		{"direccion", info.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrCustomerInfoIncomplete, strings.Join(missing, ", "))
	}
	if !isPaymentMethod(info.PaymentMethod) {
		return ErrPaymentMethodRequired
	}
	return nil
}

func isPaymentMethod(v string) bool {
	for _, m := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// MatchPaymentMethod maps free text ("pago por nequi", "datáfono") onto an
// accepted method, or returns "" when nothing matches.
func MatchPaymentMethod(v string) string {
	n := text.Normalize(v)
	if n == "" {
		return ""
	}
	for _, m := range PaymentMethods {
		if strings.Contains(n, text.Normalize(m)) {
			return m
		}
	}
	if text.ContainsAny(n, "contraentrega", "contra entrega") {
		return PaymentCash
	}
	return ""
}

// Summary renders the order message sent to the shop.
func Summary(info CustomerInfo, items []cart.Item) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("- %dx %s ($%s)", it.Quantity, it.Name, FormatPrice(it.Subtotal()))
	}
	cardMessage := info.CardMessage
	if cardMessage == "" {
		cardMessage = noCardMessage
	}

	var b strings.Builder
	b.WriteString("*NUEVO PEDIDO - DETALLES CARIÑITOS* 🎁\n")
	b.WriteString("-----------------------------------\n")
	b.WriteString("*Datos del Cliente:*\n")
	fmt.Fprintf(&b, "👤 Nombre: %s\n", info.Name)
	fmt.Fprintf(&b, "📞 Teléfono: %s\n", info.Phone)
	fmt.Fprintf(&b, "📍 Dirección: %s\n", info.Address)
	fmt.Fprintf(&b, "🎁 Para: %s\n", info.Recipient)
	b.WriteString("-----------------------------------\n")
	b.WriteString("*Productos:*\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "*💰 TOTAL: $%s*\n", FormatPrice(cart.Total(items)))
	b.WriteString("-----------------------------------\n")
	b.WriteString("*Detalles Adicionales:*\n")
	fmt.Fprintf(&b, "💳 Método de Pago: %s\n", info.PaymentMethod)
	fmt.Fprintf(&b, "✉️ Mensaje Tarjeta: %s\n", cardMessage)
	b.WriteString("-----------------------------------\n")
	b.WriteString("¡Hola! Quisiera confirmar este pedido. 😊")
	return b.String()
}

// Link builds the wa.me URL with the summary as prefilled text. Spaces are
// encoded as %20 so the link matches what browsers produce.
func Link(number, summary string) string {
	return "https://wa.me/" + number + "?text=" + strings.ReplaceAll(url.QueryEscape(summary), "+", "%20")
}

var priceTag = language.MustParse("es-CO")

// FormatPrice groups thousands the Colombian way: 120000 -> "120.000".
func FormatPrice(v int64) string {
	return message.NewPrinter(priceTag).Sprintf("%d", v)
}
