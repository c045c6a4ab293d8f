package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/carinitosdigital/detalles/internal/config"
	"github.com/carinitosdigital/detalles/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Speech.Enabled {
		log.Fatal("speech is disabled: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}

	mode := flag.String("mode", "", "test mode: asr or tts")
	audioPath := flag.String("audio", "", "ASR input audio file")
	text := flag.String("text", "", "TTS input text")
	outputPath := flag.String("out", "", "TTS output file (named after the format by default)")
	format := flag.String("format", "", "ASR input format")
	language := flag.String("lang", "", "language code, defaults to the configured one")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("choose -mode=asr or -mode=tts")
	}

	svc := speech.NewService(cfg.Speech.Model(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, svc, *audioPath, *format, *language)
	case "tts":
		runTTS(ctx, svc, *text, *language, *outputPath)
	}
}

func runASR(ctx context.Context, svc *speech.Service, audioPath, format, language string) {
	if audioPath == "" {
		log.Fatal("ASR mode needs -audio")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	log.Printf("running ASR: format=%s language=%s bytes=%d", format, language, len(audio))

	resp, err := svc.Transcribe(ctx, audio, format, language)
	if err != nil {
		log.Fatalf("ASR failed: %v", err)
	}

	log.Printf("ASR ok: text=%q duration=%dms", resp.Text, resp.Duration)
}

func runTTS(ctx context.Context, svc *speech.Service, text, language, outputPath string) {
	if strings.TrimSpace(text) == "" {
		text = "¡Hola! Soy tu asistente virtual de Detalles Cariñitos."
	}

	log.Printf("running TTS: language=%s", language)

	resp, err := svc.Synthesize(ctx, text, language)
	if err != nil {
		log.Fatalf("TTS failed: %v", err)
	}

	if outputPath == "" {
		format := resp.Format
		if format == "" {
			format = "mp3"
		}
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("TTS ok: voice=%s file=%s duration=%dms", resp.Voice, outputPath, resp.Duration)
}
