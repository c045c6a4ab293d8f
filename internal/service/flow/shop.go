package flow

// Shop holds the fixed store facts and external links quoted by the assistant.
type Shop struct {
	Name         string
	Address      string
	Hours        string
	Coverage     string
	WhatsApp     string
	MapURL       string
	ChatURL      string
	ReviewURL    string
	FacebookURL  string
	InstagramURL string
}

// DefaultShop returns the Detalles Cariñitos store data.
func DefaultShop() Shop {
	return Shop{
		Name:         "Detalles Cariñitos",
		Address:      "Calle 34#11-02 barrio Guadalupe, Dosquebradas",
		Hours:        "24/7",
		Coverage:     "Dosquebradas, Risaralda, Pereira, Cuba, Santa Rosa y alrededores",
		WhatsApp:     "573229297190",
		MapURL:       "https://maps.google.com/?q=Calle+34+%2311-02+Guadalupe+Dosquebradas",
		ChatURL:      "https://wa.me/573229297190",
		ReviewURL:    "https://g.page/r/detallescarinitos/review",
		FacebookURL:  "https://facebook.com/detallescarinitos",
		InstagramURL: "https://instagram.com/detallescarinitos",
	}
}
