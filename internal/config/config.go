package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
	"github.com/carinitosdigital/detalles/internal/service/flow"
)

// Config aggregates every configuration section of the service.
type Config struct {
	Server    ServerConfig
	Assistant AssistantConfig
	Store     StoreConfig
	Shop      flow.Shop
	AI        AIConfig
	Speech    SpeechConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig(assistant.Language)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Assistant: assistant,
		Store:     StoreConfig{Path: strings.TrimSpace(os.Getenv("STORE_PATH"))},
		Shop:      loadShop(),
		AI:        ai,
		Speech:    speech,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are used as-is.
		return ServerConfig{Addr: port}, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AssistantConfig tunes the chat widget behaviour.
type AssistantConfig struct {
	TypingMin   time.Duration
	TypingMax   time.Duration
	AutoSubmit  time.Duration
	VoiceOutput bool
	Language    string
	// SessionIdle is how long an unused session stays loaded; zero keeps
	// sessions until shutdown.
	SessionIdle time.Duration
}

func loadAssistantConfig() (AssistantConfig, error) {
	typingMin, err := parseMillisEnv("ASSISTANT_TYPING_MIN_MS", 600*time.Millisecond)
	if err != nil {
		return AssistantConfig{}, err
	}

	typingMax, err := parseMillisEnv("ASSISTANT_TYPING_MAX_MS", 1000*time.Millisecond)
	if err != nil {
		return AssistantConfig{}, err
	}
	if typingMax < typingMin {
		typingMax = typingMin
	}

	autoSubmit, err := parseMillisEnv("ASSISTANT_AUTO_SUBMIT_MS", 4*time.Second)
	if err != nil {
		return AssistantConfig{}, err
	}

	voice, err := parseBoolEnv("ASSISTANT_VOICE_OUTPUT", false)
	if err != nil {
		return AssistantConfig{}, err
	}

	idle := 30 * time.Minute
	if minutes, err := parseOptionalIntEnv("ASSISTANT_SESSION_IDLE_MIN"); err != nil {
		return AssistantConfig{}, err
	} else if minutes != nil {
		if *minutes < 0 {
			return AssistantConfig{}, fmt.Errorf("invalid ASSISTANT_SESSION_IDLE_MIN value %q: must not be negative", strconv.Itoa(*minutes))
		}
		idle = time.Duration(*minutes) * time.Minute
	}

	return AssistantConfig{
		SessionIdle: idle,
		TypingMin:   typingMin,
		TypingMax:   typingMax,
		AutoSubmit:  autoSubmit,
		VoiceOutput: voice,
		Language:    getEnvOrDefault("ASSISTANT_LANGUAGE", "es-CO"),
	}, nil
}

// StoreConfig selects the session persistence backend. An empty Path keeps
// everything in memory.
type StoreConfig struct {
	Path string
}

// Persistent reports whether sessions survive restarts.
func (c StoreConfig) Persistent() bool {
	return c.Path != ""
}

func loadShop() flow.Shop {
	shop := flow.DefaultShop()
	shop.Name = getEnvOrDefault("SHOP_NAME", shop.Name)
	shop.Address = getEnvOrDefault("SHOP_ADDRESS", shop.Address)
	shop.Hours = getEnvOrDefault("SHOP_HOURS", shop.Hours)
	shop.Coverage = getEnvOrDefault("SHOP_COVERAGE", shop.Coverage)
	shop.MapURL = getEnvOrDefault("SHOP_MAP_URL", shop.MapURL)
	shop.ReviewURL = getEnvOrDefault("SHOP_REVIEW_URL", shop.ReviewURL)
	shop.FacebookURL = getEnvOrDefault("SHOP_FACEBOOK_URL", shop.FacebookURL)
	shop.InstagramURL = getEnvOrDefault("SHOP_INSTAGRAM_URL", shop.InstagramURL)

	if number := strings.TrimPrefix(strings.TrimSpace(os.Getenv("SHOP_WHATSAPP")), "+"); number != "" {
		shop.WhatsApp = number
		shop.ChatURL = "https://wa.me/" + number
	}
	shop.ChatURL = getEnvOrDefault("SHOP_CHAT_URL", shop.ChatURL)
	return shop
}

// AIConfig describes the Ark model used to generate the catalog.
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	CatalogCount int
}

// Enabled reports whether credentials and a model were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL with ARK_API_KEY or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	count := 24
	if override, err := parseOptionalIntEnv("CATALOG_COUNT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		count = *override
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		CatalogCount: count,
	}, nil
}

// SpeechConfig describes the Volcengine speech credentials.
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	APIKey         string
	TTSURL         string
	ASRURL         string
	ConcurrentMode bool
	ASRModel       string
	Language       string
	Voice          string
	Speed          float32
	Volume         float32
	ChunkInterval  time.Duration
	Timeout        time.Duration
	Enabled        bool
}

// Model converts the section into the speech client configuration.
func (c SpeechConfig) Model() *speechmodel.Config {
	return &speechmodel.Config{
		Enabled:        c.Enabled,
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		APIKey:         c.APIKey,
		TTSURL:         c.TTSURL,
		ASRURL:         c.ASRURL,
		ConcurrentMode: c.ConcurrentMode,
		ASRModel:       c.ASRModel,
		Language:       c.Language,
		Voice:          c.Voice,
		Speed:          c.Speed,
		Volume:         c.Volume,
		ChunkInterval:  c.ChunkInterval,
		Timeout:        c.Timeout,
	}
}

func loadSpeechConfig(language string) (SpeechConfig, error) {
	timeout := 30 * time.Second
	if seconds, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if seconds != nil && *seconds > 0 {
		timeout = time.Duration(*seconds) * time.Second
	}

	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	chunk, err := parseMillisEnv("SPEECH_ASR_CHUNK_MS", 200*time.Millisecond)
	if err != nil {
		return SpeechConfig{}, err
	}

	concurrent, err := parseBoolEnv("SPEECH_ASR_CONCURRENT", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	return SpeechConfig{
		AppID:          appID,
		AccessToken:    accessToken,
		APIKey:         apiKey,
		TTSURL:         getEnvOrDefault("SPEECH_TTS_URL", ""),
		ASRURL:         getEnvOrDefault("SPEECH_ASR_URL", ""),
		ConcurrentMode: concurrent,
		ASRModel:       getEnvOrDefault("SPEECH_ASR_MODEL", ""),
		Language:       getEnvOrDefault("SPEECH_LANGUAGE", language),
		Voice:          getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		Speed:          ttsSpeed,
		Volume:         ttsVolume,
		ChunkInterval:  chunk,
		Timeout:        timeout,
		Enabled:        appID != "" && accessToken != "",
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseMillisEnv reads a non-negative millisecond count.
func parseMillisEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, strconv.Itoa(*val))
	}
	return time.Duration(*val) * time.Millisecond, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
