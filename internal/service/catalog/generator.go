package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/carinitosdigital/detalles/internal/model/catalog"
)

const (
	generatorSystemPrompt = `Eres el asistente de inventario de la tienda de regalos "{shop}" en Colombia.
Respondes únicamente con un arreglo JSON, sin texto adicional ni bloques de código.
Cada elemento es un objeto con las claves id, name, description, price y category.
price es un entero en pesos colombianos (COP) sin decimales.`

	generatorUserPrompt = `Genera una lista de {count} productos para la tienda. Deben incluir: desayunos sorpresa, anchetas, peluches, cojines, chocolates, globos con helio personalizados, bolsas y cajas de regalo, billeteras, cosméticos, piñatería, mugs personalizados y tarjetas.
Usa nombres atractivos, descripciones vendedoras, precios realistas entre {min_price} y {max_price} COP y una categoría clara por producto.`
)

// GeneratorConfig controls the LLM catalog request.
type GeneratorConfig struct {
	ShopName string
	Count    int
	MinPrice int64
	MaxPrice int64
}

// Generator asks a chat model for a product list.
type Generator struct {
	cfg   GeneratorConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewGenerator compiles the prompt chain around chatModel.
func NewGenerator(ctx context.Context, chatModel model.ChatModel, cfg GeneratorConfig) (*Generator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.Count <= 0 {
		cfg.Count = 24
	}
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = 20000
	}
	if cfg.MaxPrice <= cfg.MinPrice {
		cfg.MaxPrice = 300000
	}
	if cfg.ShopName == "" {
		cfg.ShopName = "Detalles Cariñitos"
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(generatorSystemPrompt),
		schema.UserMessage(generatorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog generator chain: %w", err)
	}
	return &Generator{cfg: cfg, chain: runnable}, nil
}

// Generate runs the chain and parses the reply into products.
func (g *Generator) Generate(ctx context.Context) ([]catalog.Product, error) {
	msg, err := g.chain.Invoke(ctx, map[string]any{
		"shop":      g.cfg.ShopName,
		"count":     g.cfg.Count,
		"min_price": g.cfg.MinPrice,
		"max_price": g.cfg.MaxPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run catalog generator: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("empty generator reply")
	}
	return ParseProducts(msg.Content)
}

type generatedProduct struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
}

// ParseProducts extracts the first JSON array in content. Items without a
// name or with a non-positive price are dropped; missing or repeated ids are
// replaced with fresh uuids.
func ParseProducts(content string) ([]catalog.Product, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json array")
	}

	var raw []generatedProduct
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	products := make([]catalog.Product, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" || r.Price <= 0 {
			continue
		}
		id := strings.TrimSpace(r.ID)
		if _, dup := seen[id]; id == "" || dup {
			id = uuid.NewString()
		}
		seen[id] = struct{}{}

		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = "Regalos"
		}
		products = append(products, catalog.Product{
			ID:          id,
			Name:        name,
			Description: strings.TrimSpace(r.Description),
			Price:       int64(r.Price),
			Category:    category,
			Image:       catalog.ImageFor(id),
		})
	}
	log.Printf("[catalog] parsed %d of %d generated products", len(products), len(raw))
	return products, nil
}
