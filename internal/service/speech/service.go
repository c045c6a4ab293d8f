// Package speech talks to the Volcengine speech APIs for the assistant's
// voice input and output.
package speech

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/carinitosdigital/detalles/internal/metrics"
	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
)

// Service wraps the TTS and ASR clients behind the assistant's voice ports.
type Service struct {
	config  *speechmodel.Config
	tts     *TTSClient
	asr     *ASRClient
	metrics *metrics.Recorder
}

// NewService creates the speech service. m may be nil.
func NewService(config *speechmodel.Config, m *metrics.Recorder) *Service {
	if config == nil {
		config = &speechmodel.Config{}
	}
	return &Service{
		config:  config,
		tts:     NewTTSClient(config),
		asr:     NewASRClient(config),
		metrics: m,
	}
}

// Enabled reports whether speech is switched on and has credentials.
func (s *Service) Enabled() bool {
	if s == nil || !s.config.Enabled {
		return false
	}
	_, _, err := resolveCredentials(s.config)
	return err == nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// Synthesize speaks text in language with the best matching voice.
func (s *Service) Synthesize(ctx context.Context, text, language string) (*speechmodel.TTSResponse, error) {
	if !s.Enabled() {
		return nil, speechmodel.ErrUnsupported
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := s.tts.Synthesize(ctx, &speechmodel.TTSRequest{
		Text:     text,
		Language: s.language(language),
	})
	s.metrics.Speech("tts", err)
	if err != nil {
		return nil, err
	}
	log.Printf("[speech] synthesized %d bytes with %s in %s", len(resp.AudioData), resp.Voice, time.Since(start).Round(time.Millisecond))
	return resp, nil
}

// Transcribe turns recorded audio into text.
func (s *Service) Transcribe(ctx context.Context, audio []byte, format, language string) (*speechmodel.ASRResponse, error) {
	if !s.Enabled() {
		return nil, speechmodel.ErrUnsupported
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.asr.Transcribe(ctx, &speechmodel.ASRRequest{
		Audio:    audio,
		Format:   format,
		Language: s.language(language),
	})
	s.metrics.Speech("asr", err)
	return resp, err
}

func (s *Service) language(requested string) string {
	if l := strings.TrimSpace(requested); l != "" {
		return l
	}
	return s.config.Language
}
