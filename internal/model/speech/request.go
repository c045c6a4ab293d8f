package speech

import "errors"

var (
	// ErrUnsupported means speech is not available in this deployment.
	ErrUnsupported = errors.New("speech is not supported")
	// ErrNoMatch means recognition finished without a usable transcript.
	ErrNoMatch = errors.New("speech was not recognized")
)

// ASRRequest is one recorded utterance to transcribe.
type ASRRequest struct {
	SessionID string `json:"sessionId"`
	Audio     []byte `json:"-"`
	Format    string `json:"format"`   // wav, pcm, mp3, ogg
	Language  string `json:"language"` // es-CO, en-US, ...
}

// TTSRequest is a text to synthesize.
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed"`  // 0.5-2.0
	Volume    float32 `json:"volume"` // 0.0-1.0
	Format    string  `json:"format"`
	Language  string  `json:"language"`
}
