package catalog

// Product is a single item of the shop catalog. Prices are whole COP.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
}

// IDs returns the identifiers of items in order.
func IDs(items []Product) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

const imageBase = "https://picsum.photos/seed/"

// ImageFor returns the placeholder image URL of a product id.
func ImageFor(id string) string {
	return imageBase + id + "/600/600"
}

// Seed is the catalog served when no generated catalog is available.
func Seed() []Product {
	items := []Product{
		{ID: "desayuno-romantico", Name: "Desayuno Sorpresa Romántico", Description: "Bandeja de madera con frutas, jugo natural, sándwich, globo corazón y tarjeta de amor.", Price: 95000, Category: "Desayunos"},
		{ID: "desayuno-cumpleanos", Name: "Desayuno de Cumpleaños Feliz", Description: "Desayuno completo con mini torta, globos de colores y mensaje de cumpleaños.", Price: 110000, Category: "Desayunos"},
		{ID: "desayuno-clasico", Name: "Desayuno Clásico Cariñitos", Description: "Café, chocolatina, fruta picada y pan artesanal en caja decorada.", Price: 75000, Category: "Desayunos"},
		{ID: "ancheta-premium", Name: "Ancheta Premium Celebración", Description: "Canasta con vino, quesos, galletas gourmet y chocolates finos.", Price: 260000, Category: "Anchetas"},
		{ID: "ancheta-dulce", Name: "Ancheta Dulce Tentación", Description: "Canasta llena de dulces, chocolates y golosinas importadas.", Price: 120000, Category: "Anchetas"},
		{ID: "ancheta-caballero", Name: "Ancheta para Caballero", Description: "Whisky, maní, billetera de cuero y tarjeta personalizada para él.", Price: 280000, Category: "Anchetas"},
		{ID: "peluche-oso-gigante", Name: "Oso de Peluche Gigante", Description: "Oso de peluche de 1 metro, suave y abrazable, con moño rojo.", Price: 180000, Category: "Peluches"},
		{ID: "peluche-corazon", Name: "Peluche Corazón Te Amo", Description: "Osito sosteniendo un corazón bordado con la frase te amo.", Price: 45000, Category: "Peluches"},
		{ID: "cojin-personalizado", Name: "Cojín Personalizado con Foto", Description: "Cojín suave estampado con la foto y el mensaje que elijas.", Price: 55000, Category: "Cojines"},
		{ID: "cojin-amor", Name: "Cojín Corazón Enamorados", Description: "Cojín en forma de corazón ideal para aniversarios.", Price: 48000, Category: "Cojines"},
		{ID: "chocolates-ferrero", Name: "Caja de Chocolates Ferrero", Description: "Caja de 16 bombones Ferrero Rocher con moño de regalo.", Price: 52000, Category: "Chocolates"},
		{ID: "chocolates-corazon", Name: "Corazón de Chocolates Artesanales", Description: "Caja en forma de corazón con chocolates rellenos artesanales.", Price: 68000, Category: "Chocolates"},
		{ID: "globo-helio-personalizado", Name: "Globo con Helio Personalizado", Description: "Globo burbuja con helio, confeti y nombre personalizado.", Price: 38000, Category: "Globos"},
		{ID: "bouquet-globos", Name: "Bouquet de Globos Feliz Cumpleaños", Description: "Arreglo de seis globos metalizados para fiesta de cumpleaños.", Price: 65000, Category: "Globos"},
		{ID: "caja-regalo-sorpresa", Name: "Caja de Regalo Sorpresa", Description: "Caja decorada con papel seda lista para tu detalle especial.", Price: 25000, Category: "Empaques"},
		{ID: "bolsa-regalo", Name: "Bolsa de Regalo Elegante", Description: "Bolsa de regalo con asas de cinta y tarjeta incluida.", Price: 20000, Category: "Empaques"},
		{ID: "billetera-cuero", Name: "Billetera de Cuero para Hombre", Description: "Billetera de cuero genuino con grabado de iniciales.", Price: 85000, Category: "Billeteras"},
		{ID: "kit-cosmeticos", Name: "Kit de Cosméticos Glow", Description: "Set de maquillaje con labial, rubor y crema hidratante.", Price: 99000, Category: "Cosméticos"},
		{ID: "kit-pinata", Name: "Kit de Piñatería Infantil", Description: "Piñata, sorpresas, gorritos y decoración para fiesta infantil.", Price: 90000, Category: "Piñatería"},
		{ID: "mug-personalizado", Name: "Mug Personalizado con Foto", Description: "Mug de cerámica con foto y frase personalizada.", Price: 35000, Category: "Mugs"},
		{ID: "mug-mejor-papa", Name: "Mug Mejor Papá del Mundo", Description: "Mug mágico que revela el mensaje con bebidas calientes.", Price: 42000, Category: "Mugs"},
		{ID: "tarjeta-artesanal", Name: "Tarjeta Artesanal Dedicatoria", Description: "Tarjeta hecha a mano con sobre y dedicatoria escrita.", Price: 20000, Category: "Tarjetas"},
		{ID: "rosas-rojas", Name: "Ramo de 12 Rosas Rojas", Description: "Doce rosas rojas frescas con follaje y envoltura elegante.", Price: 120000, Category: "Flores"},
		{ID: "vino-tinto", Name: "Vino Tinto con Copas", Description: "Botella de vino tinto chileno con dos copas grabadas.", Price: 150000, Category: "Licores"},
	}
	for i := range items {
		items[i].Image = ImageFor(items[i].ID)
	}
	return items
}
