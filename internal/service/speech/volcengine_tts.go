package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
)

// DefaultTTSURL is the unidirectional streaming synthesis endpoint.
const DefaultTTSURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// TTSClient synthesizes speech over the Volcengine WebSocket API.
type TTSClient struct {
	config *speechmodel.Config
	dialer *websocket.Dialer
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

// NewTTSClient creates a synthesis client.
func NewTTSClient(config *speechmodel.Config) *TTSClient {
	return &TTSClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

func (c *TTSClient) url() string {
	if u := strings.TrimSpace(c.config.TTSURL); u != "" {
		return u
	}
	return DefaultTTSURL
}

// Synthesize returns the audio for req.Text. When a speaker is not
// available under one resource id, the next candidate resource and then the
// fallback speaker are tried.
func (c *TTSClient) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}
	appKey, accessKey, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	encoding := strings.TrimSpace(req.Format)
	if encoding == "" || encoding == "wav" {
		encoding = "mp3"
	}

	fallback := SelectVoice(req.Language, c.config.Voice)
	var lastMismatch error
	for _, speaker := range resolveTTSSpeakerCandidates(req.Voice, fallback) {
		for _, resourceID := range resolveTTSResourceCandidates(speaker) {
			resp, err := c.synthesizeWith(ctx, req, appKey, accessKey, speaker, encoding, resourceID)
			if err == nil {
				return resp, nil
			}
			if !isResourceMismatchError(err) {
				return nil, err
			}
			log.Printf("[speech] voice %s resource %s mismatch: %v", speaker, resourceID, err)
			lastMismatch = err
		}
	}
	return nil, lastMismatch
}

func (c *TTSClient) synthesizeWith(ctx context.Context, req *speechmodel.TTSRequest, appKey, accessKey, speaker, encoding, resourceID string) (*speechmodel.TTSResponse, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appKey)
	header.Set("X-Api-Access-Key", accessKey)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.url(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS WebSocket: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] tts connected with logid: %s", logid)
		}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	payload, err := json.Marshal(c.buildRequest(req, speaker, encoding))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}
	frame, err := EncodeMessage(CreateFullClientRequest(payload, NoCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}
		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode TTS message: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			body, _ := msg.decodePayload()
			return nil, fmt.Errorf("TTS error %d: %s", msg.ErrorCode, string(body))

		case AudioOnlyServerResponse:
			chunk, err := msg.decodePayload()
			if err != nil {
				return nil, fmt.Errorf("failed to decompress audio chunk: %w", err)
			}
			audio.Write(chunk)

		case FullServerResponse:
			body, err := msg.decodePayload()
			if err != nil {
				return nil, fmt.Errorf("failed to decompress TTS response payload: %w", err)
			}
			var server ttsServerMessage
			if len(body) > 0 {
				if err := json.Unmarshal(body, &server); err != nil {
					log.Printf("[speech] tts response payload ignored: %v", err)
				} else {
					if server.Code != 0 && server.Code != 3000 {
						return nil, fmt.Errorf("TTS API error %d: %s", server.Code, server.Message)
					}
					if server.ReqID != "" {
						reqID = server.ReqID
					}
					if server.Addition.Duration != "" {
						if parsed, err := strconv.ParseInt(server.Addition.Duration, 10, 64); err == nil {
							duration = parsed
						}
					}
					if server.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(server.Data)
						if err != nil {
							return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			finished := msg.Header.MessageFlags&WithEvent == WithEvent && msg.EventType == EventTypeSessionFinished
			if finished || msg.IsLastPacket() || server.Sequence < 0 {
				if audio.Len() == 0 {
					return nil, fmt.Errorf("TTS audio is empty")
				}
				if reqID == "" {
					reqID = connectID
				}
				return &speechmodel.TTSResponse{
					SessionID: req.SessionID,
					Voice:     speaker,
					AudioData: audio.Bytes(),
					Duration:  duration,
					Format:    encoding,
					RequestID: reqID,
					CreatedAt: time.Now(),
				}, nil
			}

		default:
			log.Printf("[speech] unexpected tts message type: %d", msg.Header.MessageType)
		}
	}
}

func (c *TTSClient) buildRequest(req *speechmodel.TTSRequest, speaker, encoding string) *ttsRequest {
	out := &ttsRequest{}
	out.User.UID = strings.TrimSpace(req.SessionID)
	if out.User.UID == "" {
		out.User.UID = uuid.NewString()
	}
	out.ReqParams.Speaker = speaker
	out.ReqParams.Text = req.Text
	out.ReqParams.AudioParams.Format = encoding
	out.ReqParams.AudioParams.SampleRate = 24000

	speed := req.Speed
	if speed <= 0 {
		speed = c.config.Speed
	}
	if speed > 0 && speed != 1.0 {
		out.ReqParams.AudioParams.SpeedRatio = speed
	}
	volume := req.Volume
	if volume <= 0 {
		volume = c.config.Volume
	}
	if volume > 0 && volume != 1.0 {
		out.ReqParams.AudioParams.VolumeRatio = volume
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = c.config.Language
	}
	out.ReqParams.Language = language
	return out
}
