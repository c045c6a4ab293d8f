package speech

import "time"

// Config holds the Volcengine speech credentials and defaults.
type Config struct {
	Enabled     bool   `json:"enabled"`
	AppID       string `json:"appId"`
	AccessToken string `json:"accessToken"`
	// APIKey is accepted in place of AccessToken for older deployments.
	APIKey string `json:"apiKey,omitempty"`

	TTSURL string `json:"ttsUrl"`
	ASRURL string `json:"asrUrl"`

	// ConcurrentMode selects the concurrent ASR resource instead of the hourly one.
	ConcurrentMode bool   `json:"concurrentMode"`
	ASRModel       string `json:"asrModel"`

	Language string  `json:"language"`
	Voice    string  `json:"voice"`
	Speed    float32 `json:"speed"`
	Volume   float32 `json:"volume"`

	// ChunkInterval paces uploaded audio to mimic a live microphone.
	ChunkInterval time.Duration `json:"chunkInterval"`
	Timeout       time.Duration `json:"timeout"`
}
