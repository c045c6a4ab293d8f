package chat

import "strings"

// OrderData is the partially collected order form. Fields are free text and
// never validated.
type OrderData struct {
	Name          string `json:"nombre,omitempty"`
	Phone         string `json:"telefono,omitempty"`
	Address       string `json:"direccion,omitempty"`
	Recipient     string `json:"para,omitempty"`
	CardMessage   string `json:"mensajeTarjeta,omitempty"`
	PaymentMethod string `json:"metodoPago,omitempty"`
	AddOns        string `json:"adicionales,omitempty"`
}

// OrderPatch carries the fields captured in one turn. Nil means untouched.
type OrderPatch struct {
	Name          *string `json:"nombre,omitempty"`
	Phone         *string `json:"telefono,omitempty"`
	Address       *string `json:"direccion,omitempty"`
	Recipient     *string `json:"para,omitempty"`
	CardMessage   *string `json:"mensajeTarjeta,omitempty"`
	PaymentMethod *string `json:"metodoPago,omitempty"`
	AddOns        *string `json:"adicionales,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil && p.Recipient == nil &&
		p.CardMessage == nil && p.PaymentMethod == nil && p.AddOns == nil
}

// Apply merges p into d: set fields overwrite, nil fields are left alone.
// An add-on note is also appended to the card message.
func (d OrderData) Apply(p OrderPatch) OrderData {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.Name, p.Name)
	set(&d.Phone, p.Phone)
	set(&d.Address, p.Address)
	set(&d.Recipient, p.Recipient)
	set(&d.CardMessage, p.CardMessage)
	set(&d.PaymentMethod, p.PaymentMethod)
	if p.AddOns != nil {
		d.AddOns = *p.AddOns
		d.CardMessage = appendNote(d.CardMessage, *p.AddOns)
	}
	return d
}

func appendNote(message, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return message
	}
	if message == "" {
		return "Adicional: " + note
	}
	return message + " | Adicional: " + note
}

// Complete reports whether every required field was captured.
func (d OrderData) Complete() bool {
	return d.Name != "" && d.Phone != "" && d.Address != "" && d.Recipient != ""
}
