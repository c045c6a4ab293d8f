package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/model/chat"
	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
)

// VoiceOutput reports whether replies are spoken.
func (e *Engine) VoiceOutput() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voiceOutput && !e.voiceDisabled
}

// SetVoiceOutput toggles spoken replies. Turning it off stops current speech.
func (e *Engine) SetVoiceOutput(on bool) error {
	e.mu.Lock()
	disabled := e.voiceDisabled || e.deps.Speaker == nil
	if on && disabled {
		e.mu.Unlock()
		return ErrVoiceUnsupported
	}
	e.voiceOutput = on
	e.mu.Unlock()
	if !on {
		e.stopSpeaking()
	}
	return nil
}

// VoiceAvailable reports whether voice has not been ruled out for this session.
func (e *Engine) VoiceAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.voiceDisabled
}

// disableVoice turns voice off for the rest of the session and tells the
// visitor once.
func (e *Engine) disableVoice() {
	e.mu.Lock()
	already := e.voiceDisabled
	e.voiceDisabled = true
	e.voiceOutput = false
	e.mu.Unlock()
	if !already {
		log.Printf("[assistant] session=%s voice unsupported, disabling", e.id)
		e.publish(Event{Type: EventNotice, Text: VoiceUnsupportedNotice})
	}
}

// Speak synthesizes text without markup and emoji. Starting a new utterance
// cancels the one in flight, so at most one is ever delivered at a time.
func (e *Engine) Speak(message string) {
	if e.deps.Speaker == nil {
		e.disableVoice()
		return
	}
	clean := text.ForSpeech(message)
	if clean == "" {
		return
	}

	e.mu.Lock()
	if e.closed || e.voiceDisabled {
		e.mu.Unlock()
		return
	}
	if e.speakCancel != nil {
		e.speakCancel()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.speakCancel = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer cancel()

		resp, err := e.deps.Speaker.Synthesize(ctx, clean, e.opts.Language)
		switch {
		case errors.Is(err, speechmodel.ErrUnsupported):
			e.disableVoice()
			return
		case err != nil:
			if ctx.Err() == nil {
				log.Printf("[assistant] session=%s speech failed: %v", e.id, err)
			}
			return
		case ctx.Err() != nil:
			return
		}
		e.publish(Event{Type: EventSpeech, Text: clean, Audio: resp.AudioData, AudioFormat: resp.Format})
	}()
}

// SpeakLast reads the latest assistant message aloud.
func (e *Engine) SpeakLast() bool {
	transcript := e.session.Transcript()
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == chat.RoleAssistant {
			e.Speak(transcript[i].Text)
			return true
		}
	}
	return false
}

func (e *Engine) stopSpeaking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speakCancel != nil {
		e.speakCancel()
		e.speakCancel = nil
	}
}

// Listen transcribes a recording. The transcript is returned for the input
// box and, unless the visitor edits or sends it first, is submitted
// automatically after the AutoSubmit delay. A failed recognition adds nothing.
func (e *Engine) Listen(ctx context.Context, audio []byte, format string) (string, error) {
	if !e.VoiceAvailable() {
		return "", ErrVoiceUnsupported
	}
	if e.deps.Listener == nil {
		e.disableVoice()
		return "", ErrVoiceUnsupported
	}

	resp, err := e.deps.Listener.Transcribe(ctx, audio, format, e.opts.Language)
	if errors.Is(err, speechmodel.ErrUnsupported) {
		e.disableVoice()
		return "", ErrVoiceUnsupported
	}
	if err != nil {
		if !errors.Is(err, speechmodel.ErrNoMatch) {
			log.Printf("[assistant] session=%s recognition failed: %v", e.id, err)
		}
		return "", ErrRecognitionFailed
	}
	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		return "", ErrRecognitionFailed
	}

	e.publish(Event{Type: EventTranscript, Text: transcript, AutoSubmit: e.opts.AutoSubmit.Milliseconds()})
	e.armAutoSubmit(transcript)
	return transcript, nil
}

// armAutoSubmit replaces any pending auto-submit with one for transcript.
func (e *Engine) armAutoSubmit(transcript string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.autoTimer != nil {
		e.autoTimer.Stop()
		e.autoTimer = nil
	}
	e.autoGen++
	if e.opts.AutoSubmit <= 0 {
		return
	}

	gen := e.autoGen
	e.autoTimer = time.AfterFunc(e.opts.AutoSubmit, func() {
		e.mu.Lock()
		if gen != e.autoGen || e.closed {
			e.mu.Unlock()
			return
		}
		e.autoTimer = nil
		e.mu.Unlock()

		if _, err := e.Submit(e.ctx, transcript); err != nil && !errors.Is(err, ErrClosed) {
			log.Printf("[assistant] session=%s auto-submit failed: %v", e.id, err)
		}
	})
}

// CancelAutoSubmit stops a pending auto-submit, e.g. because the visitor
// edited the transcript. It reports whether one was pending.
func (e *Engine) CancelAutoSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoGen++
	if e.autoTimer == nil {
		return false
	}
	e.autoTimer.Stop()
	e.autoTimer = nil
	return true
}
