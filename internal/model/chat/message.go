package chat

import (
	"time"

	"github.com/carinitosdigital/detalles/internal/model/catalog"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the append-only transcript.
type Message struct {
	ID                 string            `json:"id"`
	Role               Role              `json:"role"`
	Text               string            `json:"text"`
	Timestamp          time.Time         `json:"timestamp"`
	ProductAttachments []catalog.Product `json:"productAttachments,omitempty"`
	ActionLinks        []ActionLink      `json:"actionLinks,omitempty"`
	IsReviewRequest    bool              `json:"isReviewRequest,omitempty"`
}

// ActionLink is a labeled external URL attached to an assistant message.
type ActionLink struct {
	Label     string `json:"label"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"isPrimary"`
}

// Greeting is the fixed first message of every transcript.
const Greeting = "¡Hola! 👋 Soy tu asistente virtual de Detalles Cariñitos. ¿En qué puedo ayudarte hoy? Puedo recomendarte regalos, darte info de la tienda o tomar tu pedido."

// GreetingMessage builds the initial transcript entry. It is identical on
// every call apart from its timestamp.
func GreetingMessage(now time.Time) Message {
	return Message{ID: "greeting", Role: RoleAssistant, Text: Greeting, Timestamp: now}
}
