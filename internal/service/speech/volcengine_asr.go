package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
)

// DefaultASRURL is the big-model recognition endpoint that returns one result
// after the last audio packet.
const DefaultASRURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

const (
	asrChunkSize       = 6400 // 200ms of 16kHz 16bit mono
	asrDefaultInterval = 200 * time.Millisecond
)

// ASRClient transcribes recorded audio over the Volcengine WebSocket API.
type ASRClient struct {
	config *speechmodel.Config
	dialer *websocket.Dialer
}

type asrUtterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result,omitempty"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info,omitempty"`
}

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user,omitempty"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

// NewASRClient creates a recognition client.
func NewASRClient(config *speechmodel.Config) *ASRClient {
	return &ASRClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

func (c *ASRClient) url() string {
	if u := strings.TrimSpace(c.config.ASRURL); u != "" {
		return u
	}
	return DefaultASRURL
}

// Transcribe uploads req.Audio in paced chunks and waits for the final text.
func (c *ASRClient) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("no audio data to send")
	}
	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	connectID := strings.TrimSpace(req.SessionID)
	if connectID == "" {
		connectID = uuid.NewString()
	}
	resourceID := "volc.bigasr.sauc.duration"
	if c.config.ConcurrentMode {
		resourceID = "volc.bigasr.sauc.concurrent"
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.url(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] asr connected with logid: %s", logid)
		}
	}

	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	compressed, err := CompressPayload(payload, GzipCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	frame, err := EncodeMessage(CreateFullClientRequest(compressed, GzipCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("failed to send ASR request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		resp *speechmodel.ASRResponse
		err  error
	}
	recvCh := make(chan result, 1)
	go func() {
		r, err := c.receive(ctx, conn, connectID)
		recvCh <- result{r, err}
	}()

	sendCh := make(chan error, 1)
	go func() {
		sendCh <- c.sendAudio(ctx, conn, req.Audio)
	}()

	for {
		select {
		case err := <-sendCh:
			if err != nil {
				return nil, fmt.Errorf("failed to send audio data: %w", err)
			}
			sendCh = nil
		case r := <-recvCh:
			return r.resp, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *ASRClient) buildRequest(req *speechmodel.ASRRequest) *asrRequest {
	out := &asrRequest{}
	out.User.UID = req.SessionID

	out.Audio.Format = req.Format
	if out.Audio.Format == "" {
		out.Audio.Format = "wav"
	}
	out.Audio.Language = req.Language
	if out.Audio.Language == "" {
		out.Audio.Language = c.config.Language
	}
	out.Audio.Codec = "raw"
	out.Audio.Rate = 16000
	out.Audio.Bits = 16
	out.Audio.Channel = 1

	out.Request.ModelName = c.config.ASRModel
	if out.Request.ModelName == "" {
		out.Request.ModelName = "bigmodel"
	}
	out.Request.EnableITN = true
	out.Request.EnablePunc = true
	out.Request.ShowUtterances = true
	out.Request.ResultType = "full"
	out.Request.EndWindowSize = 800
	return out
}

// sendAudio streams the recording in gzip chunks. Sequence 1 belongs to the
// full client request, so audio starts at 2.
func (c *ASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	interval := c.config.ChunkInterval
	if interval <= 0 {
		interval = asrDefaultInterval
	}

	sequence := int32(2)
	for i := 0; i < len(audio); i += asrChunkSize {
		end := min(i+asrChunkSize, len(audio))
		isLast := end >= len(audio)

		chunk, err := CompressPayload(audio[i:end], GzipCompression)
		if err != nil {
			return fmt.Errorf("failed to compress audio chunk: %w", err)
		}
		frame, err := EncodeMessage(CreateAudioOnlyRequest(chunk, sequence, isLast, GzipCompression))
		if err != nil {
			return fmt.Errorf("failed to encode audio message: %w", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		sequence++
		if isLast {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

func (c *ASRClient) receive(ctx context.Context, conn *websocket.Conn, connectID string) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}
		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			body, _ := msg.decodePayload()
			return nil, fmt.Errorf("ASR error %d: %s", msg.ErrorCode, string(body))

		case FullServerResponse:
			body, err := msg.decodePayload()
			if err != nil {
				return nil, fmt.Errorf("failed to decompress ASR payload: %w", err)
			}
			var server asrServerMessage
			if err := json.Unmarshal(body, &server); err != nil {
				log.Printf("[speech] asr response ignored: %v", err)
				continue
			}
			if server.Code != 0 && server.Code != 20000000 {
				return nil, fmt.Errorf("ASR API error %d: %s", server.Code, server.Message)
			}

			candidate := server.Result.Text
			if candidate == "" {
				candidate = joinUtterances(server.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if server.AudioInfo.Duration > 0 {
				duration = server.AudioInfo.Duration
			}

			if msg.IsLastPacket() || server.Sequence < 0 {
				text = strings.TrimSpace(text)
				if text == "" {
					return nil, speechmodel.ErrNoMatch
				}
				return &speechmodel.ASRResponse{
					SessionID:  connectID,
					Text:       text,
					Confidence: 0.95,
					Duration:   duration,
					RequestID:  connectID,
					CreatedAt:  time.Now(),
				}, nil
			}
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
