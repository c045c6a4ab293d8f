package config

import (
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"PORT", "STORE_PATH",
	"ASSISTANT_TYPING_MIN_MS", "ASSISTANT_TYPING_MAX_MS", "ASSISTANT_AUTO_SUBMIT_MS",
	"ASSISTANT_VOICE_OUTPUT", "ASSISTANT_LANGUAGE", "ASSISTANT_SESSION_IDLE_MIN",
	"SHOP_WHATSAPP", "SHOP_CHAT_URL", "SHOP_NAME",
	"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL", "ARK_TEMPERATURE", "ARK_TOP_P",
	"ARK_MAX_TOKENS", "CATALOG_COUNT",
	"SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY", "SPEECH_TIMEOUT", "SPEECH_LANGUAGE",
	"SPEECH_TTS_SPEED", "SPEECH_TTS_VOLUME", "SPEECH_ASR_CHUNK_MS", "SPEECH_ASR_CONCURRENT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Assistant.TypingMin != 600*time.Millisecond || cfg.Assistant.TypingMax != time.Second {
		t.Fatalf("unexpected typing bounds %v..%v", cfg.Assistant.TypingMin, cfg.Assistant.TypingMax)
	}
	if cfg.Assistant.AutoSubmit != 4*time.Second {
		t.Fatalf("expected 4s auto-submit, got %v", cfg.Assistant.AutoSubmit)
	}
	if cfg.Assistant.VoiceOutput {
		t.Fatalf("voice output should default to off")
	}
	if cfg.Assistant.Language != "es-CO" || cfg.Speech.Language != "es-CO" {
		t.Fatalf("expected es-CO, got %q / %q", cfg.Assistant.Language, cfg.Speech.Language)
	}
	if cfg.Assistant.SessionIdle != 30*time.Minute {
		t.Fatalf("expected 30m session idle, got %v", cfg.Assistant.SessionIdle)
	}
	if cfg.Store.Persistent() {
		t.Fatalf("empty STORE_PATH should be in-memory")
	}
	if cfg.Shop.WhatsApp != "573229297190" {
		t.Fatalf("unexpected default WhatsApp number %q", cfg.Shop.WhatsApp)
	}
	if cfg.AI.Enabled() || cfg.Speech.Enabled {
		t.Fatalf("AI and speech should be disabled without credentials")
	}
	if cfg.AI.CatalogCount != 24 {
		t.Fatalf("expected 24 catalog items, got %d", cfg.AI.CatalogCount)
	}
	if cfg.Speech.Timeout != 30*time.Second || cfg.Speech.ChunkInterval != 200*time.Millisecond {
		t.Fatalf("unexpected speech timings %v / %v", cfg.Speech.Timeout, cfg.Speech.ChunkInterval)
	}
}

func TestLoadServerAddr(t *testing.T) {
	cases := []struct {
		port string
		want string
	}{
		{"9090", ":9090"},
		{":7000", ":7000"},
		{"127.0.0.1:8081", "127.0.0.1:8081"},
	}

	for _, tc := range cases {
		clearEnv(t)
		t.Setenv("PORT", tc.port)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("PORT=%q: unexpected error %v", tc.port, err)
		}
		if cfg.Server.Addr != tc.want {
			t.Fatalf("PORT=%q: expected %q, got %q", tc.port, tc.want, cfg.Server.Addr)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_TYPING_MIN_MS", "100")
	t.Setenv("ASSISTANT_TYPING_MAX_MS", "50")
	t.Setenv("ASSISTANT_AUTO_SUBMIT_MS", "0")
	t.Setenv("ASSISTANT_VOICE_OUTPUT", "true")
	t.Setenv("ASSISTANT_SESSION_IDLE_MIN", "5")
	t.Setenv("STORE_PATH", "/tmp/detalles.db")
	t.Setenv("SHOP_WHATSAPP", "+573001112233")
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "key")
	t.Setenv("ARK_MODEL", "ep-123")
	t.Setenv("ARK_API_KEY", "ark")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Assistant.TypingMax != cfg.Assistant.TypingMin {
		t.Fatalf("max below min should be raised to min, got %v..%v", cfg.Assistant.TypingMin, cfg.Assistant.TypingMax)
	}
	if cfg.Assistant.AutoSubmit != 0 || !cfg.Assistant.VoiceOutput || cfg.Assistant.SessionIdle != 5*time.Minute {
		t.Fatalf("unexpected assistant config %+v", cfg.Assistant)
	}
	if !cfg.Store.Persistent() {
		t.Fatalf("STORE_PATH should enable persistence")
	}
	if cfg.Shop.WhatsApp != "573001112233" || cfg.Shop.ChatURL != "https://wa.me/573001112233" {
		t.Fatalf("unexpected shop links %q %q", cfg.Shop.WhatsApp, cfg.Shop.ChatURL)
	}
	if !cfg.Speech.Enabled || cfg.Speech.AccessToken != "key" {
		t.Fatalf("API key should stand in for the access token: %+v", cfg.Speech)
	}
	if !cfg.AI.Enabled() {
		t.Fatalf("AI should be enabled with model and key")
	}

	model := cfg.Speech.Model()
	if model.AppID != "app" || model.Language != "es-CO" || !model.Enabled {
		t.Fatalf("unexpected speech model config %+v", model)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                       "80 80",
		"ASSISTANT_TYPING_MIN_MS":    "fast",
		"ASSISTANT_AUTO_SUBMIT_MS":   "-5",
		"ASSISTANT_VOICE_OUTPUT":     "maybe",
		"ASSISTANT_SESSION_IDLE_MIN": "-1",
		"ARK_TEMPERATURE":            "hot",
		"SPEECH_TIMEOUT":             "soon",
	}

	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		_, err := Load()
		if err == nil {
			t.Fatalf("%s=%q: expected error", key, value)
		}
		if !strings.Contains(err.Error(), "invalid "+key+" value") {
			t.Fatalf("%s=%q: unexpected error %v", key, value, err)
		}
	}
}
