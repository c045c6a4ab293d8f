// Package assistant runs the chat widget's dialogue: it records turns,
// simulates typing, drives the order flow and handles voice in and out.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carinitosdigital/detalles/internal/metrics"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/model/chat"
	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
	"github.com/carinitosdigital/detalles/internal/service/cart"
	"github.com/carinitosdigital/detalles/internal/service/flow"
	"github.com/carinitosdigital/detalles/internal/service/session"
	"github.com/carinitosdigital/detalles/internal/store"
)

var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrClosed            = errors.New("assistant is closed")
	ErrProductNotFound   = errors.New("product not found")
	ErrVoiceUnsupported  = errors.New("voice is not supported")
	ErrRecognitionFailed = errors.New("speech recognition failed")
)

// VoiceUnsupportedNotice is shown once when voice turns out to be unavailable.
const VoiceUnsupportedNotice = "Lo sentimos, la voz no está disponible en este momento. Puedes seguir escribiéndonos."

// Synthesizer turns reply text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*speechmodel.TTSResponse, error)
}

// Recognizer turns recorded audio into text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, format, language string) (*speechmodel.ASRResponse, error)
}

// Deps are shared by every engine.
type Deps struct {
	Machine  *flow.Machine
	Catalog  catalog.Store
	Speaker  Synthesizer
	Listener Recognizer
	Metrics  *metrics.Recorder
}

// Options tune timing and voice behavior.
type Options struct {
	TypingMin   time.Duration
	TypingMax   time.Duration
	AutoSubmit  time.Duration
	VoiceOutput bool
	Language    string
	SessionIdle time.Duration
}

// DefaultOptions mirror the storefront widget.
func DefaultOptions() Options {
	return Options{
		TypingMin:   600 * time.Millisecond,
		TypingMax:   1000 * time.Millisecond,
		AutoSubmit:  4 * time.Second,
		Language:    "es-CO",
		SessionIdle: 30 * time.Minute,
	}
}

type turn struct {
	text  string
	epoch uint64
}

// Engine is one visitor's assistant. Replies are produced by a single worker,
// so turns are handled strictly in submission order.
type Engine struct {
	id      string
	deps    Deps
	opts    Options
	session *session.Manager
	cart    *cart.Cart
	store   store.Store
	hub     *hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	turns  chan turn

	epoch   atomic.Uint64
	pending atomic.Int64
	// turnMu covers a reply's step-and-commit and Reset, so neither sees the
	// other half done.
	turnMu sync.Mutex

	mu            sync.Mutex
	closed        bool
	open          bool
	voiceOutput   bool
	voiceDisabled bool
	autoTimer     *time.Timer
	autoGen       uint64
	speakCancel   context.CancelFunc
}

// New restores the conversation stored in s and starts the reply worker.
func New(ctx context.Context, id string, s store.Store, deps Deps, opts Options) (*Engine, error) {
	if deps.Machine == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("assistant requires a flow machine and a catalog")
	}
	mgr, err := session.Load(ctx, s)
	if err != nil {
		return nil, err
	}
	if opts.TypingMax < opts.TypingMin {
		opts.TypingMax = opts.TypingMin
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		id:          id,
		deps:        deps,
		opts:        opts,
		session:     mgr,
		cart:        cart.New(s),
		store:       s,
		hub:         newHub(),
		ctx:         runCtx,
		cancel:      cancel,
		turns:       make(chan turn, 16),
		voiceOutput: opts.VoiceOutput,
	}
	e.wg.Add(1)
	go e.run()
	return e, nil
}

// ID returns the chat session id.
func (e *Engine) ID() string { return e.id }

// Cart returns the visitor's cart.
func (e *Engine) Cart() *cart.Cart { return e.cart }

// Store returns the visitor's persisted-session namespace.
func (e *Engine) Store() store.Store { return e.store }

// Transcript returns the conversation so far.
func (e *Engine) Transcript() []chat.Message { return e.session.Transcript() }

// State returns the order flow state.
func (e *Engine) State() flow.State { return e.session.State() }

// busy reports whether a reply is queued or a client is listening.
func (e *Engine) busy() bool {
	return e.pending.Load() > 0 || e.hub.len() > 0
}

// Subscribe streams events until the returned cancel func is called or the
// engine closes.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.hub.subscribe()
}

func (e *Engine) publish(ev Event) {
	ev.SessionID = e.id
	e.hub.publish(ev)
}

// Open shows the widget and reports whether a previous conversation exists.
func (e *Engine) Open(ctx context.Context) chat.OpenResult {
	e.SetOpen(true)
	return e.session.Open(ctx)
}

// SetOpen records widget visibility. Hiding it does not cancel a reply that
// is already being typed.
func (e *Engine) SetOpen(open bool) {
	e.mu.Lock()
	e.open = open
	e.mu.Unlock()
}

// IsOpen reports widget visibility.
func (e *Engine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Resume keeps the stored conversation.
func (e *Engine) Resume(ctx context.Context) []chat.Message {
	return e.session.Resume(ctx)
}

// Reset starts over from the greeting. Replies still being typed for the old
// conversation are dropped.
func (e *Engine) Reset(ctx context.Context) error {
	e.epoch.Add(1)
	e.CancelAutoSubmit()
	e.stopSpeaking()

	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	if err := e.session.Reset(ctx); err != nil {
		return err
	}
	e.publish(Event{Type: EventTyping, Typing: false})
	e.publish(Event{Type: EventReset, Transcript: e.session.Transcript()})
	return nil
}

// Submit records a user utterance and queues the assistant's reply. The
// typing indicator goes on immediately; the reply follows after a random
// delay between TypingMin and TypingMax.
func (e *Engine) Submit(ctx context.Context, text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyMessage
	}
	if e.ctx.Err() != nil {
		return chat.Message{}, ErrClosed
	}
	e.CancelAutoSubmit()

	e.turnMu.Lock()
	msg, err := e.session.Append(ctx, chat.Message{Role: chat.RoleUser, Text: text})
	if err != nil {
		log.Printf("[assistant] session=%s persist user message: %v", e.id, err)
	}
	epoch := e.epoch.Load()
	e.publish(Event{Type: EventMessage, Message: &msg})
	e.turnMu.Unlock()

	e.pending.Add(1)
	e.publish(Event{Type: EventTyping, Typing: true})

	select {
	case e.turns <- turn{text: text, epoch: epoch}:
		return msg, nil
	case <-ctx.Done():
		e.settleTyping()
		return msg, ctx.Err()
	case <-e.ctx.Done():
		return msg, ErrClosed
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case t := <-e.turns:
			e.reply(t)
		}
	}
}

func (e *Engine) reply(t turn) {
	if !e.wait(e.typingDelay()) {
		return
	}
	text, ok := e.commit(t)
	if !ok {
		e.settleTyping()
		return
	}
	e.settleTyping()

	if e.VoiceOutput() {
		e.Speak(text)
	}
}

// commit runs one flow step and records its outcome. It reports false when
// the turn belongs to a conversation that has since been reset.
func (e *Engine) commit(t turn) (string, bool) {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	if t.epoch != e.epoch.Load() {
		return "", false
	}

	ctx := e.ctx
	state := e.session.State()
	res := e.deps.Machine.Step(ctx, state, t.text, e.deps.Catalog.List())

	// Reset bumps the epoch before it waits for turnMu.
	if t.epoch != e.epoch.Load() {
		log.Printf("[assistant] session=%s dropped reply for a reset conversation", e.id)
		return "", false
	}

	if !res.Patch.Empty() {
		if _, err := e.session.MergeOrder(ctx, res.Patch); err != nil {
			log.Printf("[assistant] session=%s merge order: %v", e.id, err)
		}
	}
	if res.Next != state {
		if err := e.session.SetState(ctx, res.Next); err != nil {
			log.Printf("[assistant] session=%s persist state: %v", e.id, err)
		}
	}

	msg, err := e.session.Append(ctx, chat.Message{
		Role:               chat.RoleAssistant,
		Text:               res.Text,
		ProductAttachments: res.Recommendations,
		ActionLinks:        res.Links,
		IsReviewRequest:    res.ReviewPrompt,
	})
	if err != nil {
		log.Printf("[assistant] session=%s persist reply: %v", e.id, err)
	}
	e.deps.Metrics.Turn(string(res.Intent), len(res.Recommendations))
	log.Printf("[assistant] session=%s intent=%s state=%s->%s products=%d", e.id, res.Intent, state, res.Next, len(res.Recommendations))

	e.publish(Event{Type: EventMessage, Message: &msg})
	return res.Text, true
}

// settleTyping marks one queued reply as done and clears the indicator when
// nothing else is queued.
func (e *Engine) settleTyping() {
	if e.pending.Add(-1) <= 0 {
		e.pending.Store(0)
		e.publish(Event{Type: EventTyping, Typing: false})
	}
}

func (e *Engine) typingDelay() time.Duration {
	span := e.opts.TypingMax - e.opts.TypingMin
	if span <= 0 {
		return e.opts.TypingMin
	}
	return e.opts.TypingMin + time.Duration(rand.Int63n(int64(span)+1))
}

// wait sleeps for d unless the engine is torn down first.
func (e *Engine) wait(d time.Duration) bool {
	if d <= 0 {
		return e.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// AddRecommendation puts an attached product into the cart.
func (e *Engine) AddRecommendation(ctx context.Context, productID string) ([]cart.Item, error) {
	product, ok := e.deps.Catalog.FindByID(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	items, err := e.cart.AddItem(ctx, product)
	if err != nil {
		return nil, err
	}
	e.deps.Metrics.CartAdd()
	return items, nil
}

// Close tears the engine down: the pending typing delay, any auto-submit and
// any speech in flight are cancelled and subscribers are disconnected.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.autoTimer != nil {
		e.autoTimer.Stop()
		e.autoTimer = nil
	}
	e.autoGen++
	if e.speakCancel != nil {
		e.speakCancel()
		e.speakCancel = nil
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	e.hub.close()
}
