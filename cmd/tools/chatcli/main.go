package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/model/chat"
	"github.com/carinitosdigital/detalles/internal/service/assistant"
	"github.com/carinitosdigital/detalles/internal/service/cart"
	"github.com/carinitosdigital/detalles/internal/service/catalog"
	"github.com/carinitosdigital/detalles/internal/service/checkout"
	"github.com/carinitosdigital/detalles/internal/service/flow"
	"github.com/carinitosdigital/detalles/internal/store"
)

const help = `commands:
  /cart          show the cart
  /add <id>      add a recommended product to the cart
  /reset         start over
  /quit          exit
anything else is sent to the assistant`

func main() {
	storePath := flag.String("store", "", "bbolt file for the session (in-memory when empty)")
	sessionID := flag.String("session", "", "session id to resume (new when empty)")
	delay := flag.Duration("delay", 600*time.Millisecond, "simulated typing delay")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env: %v", err)
	}
	log.SetOutput(os.Stderr)

	var backend store.Backend = store.NewMemoryBackend()
	if *storePath != "" {
		bolt, err := store.OpenBolt(*storePath)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		backend = bolt
	}
	defer backend.Close()

	catalogSvc := catalog.NewService(nil)
	matcher := recommend.NewMatcher(recommend.SharedRand{}, 0)
	registry := assistant.NewRegistry(backend, assistant.Deps{
		Machine: flow.New(matcher, flow.DefaultShop()),
		Catalog: catalogSvc.Store(),
	}, assistant.Options{TypingMin: *delay, TypingMax: *delay, Language: "es-CO"})
	defer registry.Close()

	ctx := context.Background()
	id := *sessionID
	if id == "" {
		sess, err := registry.Create(ctx)
		if err != nil {
			log.Fatalf("failed to create session: %v", err)
		}
		id = sess.ID
	}
	engine, err := registry.Get(ctx, id)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}

	fmt.Printf("session %s\n%s\n\n", id, help)
	if engine.Open(ctx).ResumeAvailable {
		fmt.Println("(resuming previous conversation)")
		engine.Resume(ctx)
	}
	for _, msg := range engine.Transcript() {
		printMessage(msg)
	}

	events, unsubscribe := engine.Subscribe()
	defer unsubscribe()
	go printEvents(events)

	input := bufio.NewScanner(os.Stdin)
	for input.Scan() {
		line := strings.TrimSpace(input.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/reset":
			if err := engine.Reset(ctx); err != nil {
				fmt.Println("reset failed:", err)
			}
		case line == "/cart":
			printCart(ctx, engine.Cart())
		case strings.HasPrefix(line, "/add "):
			if _, err := engine.AddRecommendation(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/add "))); err != nil {
				fmt.Println("add failed:", err)
				continue
			}
			printCart(ctx, engine.Cart())
		default:
			if _, err := engine.Submit(ctx, line); err != nil {
				fmt.Println("send failed:", err)
			}
		}
	}
}

func printEvents(events <-chan assistant.Event) {
	for ev := range events {
		switch ev.Type {
		case assistant.EventTyping:
			if ev.Typing {
				fmt.Println("  ... escribiendo")
			}
		case assistant.EventMessage:
			if ev.Message != nil && ev.Message.Role == chat.RoleAssistant {
				printMessage(*ev.Message)
			}
		case assistant.EventReset:
			fmt.Println("--- conversación reiniciada ---")
			for _, msg := range ev.Transcript {
				printMessage(msg)
			}
		case assistant.EventNotice:
			fmt.Println("! " + ev.Text)
		}
	}
}

func printMessage(msg chat.Message) {
	who := "tú"
	if msg.Role == chat.RoleAssistant {
		who = "asistente"
	}
	fmt.Printf("[%s] %s\n", who, msg.Text)
	for _, p := range msg.ProductAttachments {
		fmt.Printf("    • %s  $%s  (/add %s)\n", p.Name, checkout.FormatPrice(p.Price), p.ID)
	}
	for _, link := range msg.ActionLinks {
		marker := " "
		if link.IsPrimary {
			marker = "*"
		}
		fmt.Printf("   %s %s: %s\n", marker, link.Label, link.URL)
	}
}

func printCart(ctx context.Context, c *cart.Cart) {
	items, err := c.Items(ctx)
	if err != nil {
		fmt.Println("cart unavailable:", err)
		return
	}
	if len(items) == 0 {
		fmt.Println("(carrito vacío)")
		return
	}
	for _, it := range items {
		fmt.Printf("  %dx %s  $%s\n", it.Quantity, it.Name, checkout.FormatPrice(it.Subtotal()))
	}
	fmt.Printf("  total $%s\n", checkout.FormatPrice(cart.Total(items)))
}
