package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func writeFrame(t *testing.T, conn *websocket.Conn, msg *Message) {
	t.Helper()
	frame, err := EncodeMessage(msg)
	if err != nil {
		t.Errorf("EncodeMessage err: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Errorf("write frame err: %v", err)
	}
}

func testConfig() *speechmodel.Config {
	return &speechmodel.Config{
		Enabled:       true,
		AppID:         "app",
		AccessToken:   "token",
		Language:      "es-CO",
		ChunkInterval: time.Millisecond,
		Timeout:       5 * time.Second,
	}
}

func TestSynthesizeStreamsAudio(t *testing.T) {
	var upgrader websocket.Upgrader
	speakers := make(chan string, 4)
	resources := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Key") != "app" || r.Header.Get("X-Api-Access-Key") != "token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		resource := r.Header.Get("X-Api-Resource-Id")
		resources <- resource
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			t.Errorf("server decode err: %v", err)
			return
		}
		var req ttsRequest
		_ = json.Unmarshal(msg.Payload, &req)
		speakers <- req.ReqParams.Speaker

		if resource == "seed-tts-2.0" {
			body := []byte("resource ID is mismatched with speaker related resource")
			writeFrame(t, conn, &Message{
				Header:      NewHeader(ErrorMessage, NoSequenceNumber, JSONSerialization, NoCompression),
				ErrorCode:   45000000,
				Payload:     body,
				PayloadSize: uint32(len(body)),
			})
			return
		}

		writeFrame(t, conn, &Message{
			Header:      NewHeader(AudioOnlyServerResponse, PositiveSequenceNumber, NoSerialization, NoCompression),
			Sequence:    1,
			Payload:     []byte("abc"),
			PayloadSize: 3,
		})
		final := []byte(`{"reqid":"r1","code":3000,"addition":{"duration":"1200"}}`)
		writeFrame(t, conn, &Message{
			Header:      NewHeader(FullServerResponse, NegativeSequenceNumber, JSONSerialization, NoCompression),
			Sequence:    -2,
			Payload:     final,
			PayloadSize: uint32(len(final)),
		})
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.TTSURL = wsURL(srv)
	svc := NewService(cfg, nil)

	resp, err := svc.Synthesize(context.Background(), "Hola, ¿cómo estás?", "es-CO")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(resp.AudioData) != "abc" || resp.RequestID != "r1" || resp.Duration != 1200 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Voice != "multi_female_shuangkuaisisi_moon_bigtts" {
		t.Fatalf("unexpected voice %q", resp.Voice)
	}
	if first := <-resources; first != "seed-tts-2.0" {
		t.Fatalf("expected seed resource first, got %q", first)
	}
	if second := <-resources; second != "volc.service_type.10029" {
		t.Fatalf("expected fallback resource second, got %q", second)
	}
	if speaker := <-speakers; speaker != resp.Voice {
		t.Fatalf("server saw speaker %q", speaker)
	}
}

func TestTranscribeUploadsChunks(t *testing.T) {
	var upgrader websocket.Upgrader
	received := make(chan int, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		first, err := DecodeMessage(bytes.NewReader(data))
		if err != nil || first.Header.MessageType != FullClientRequest {
			t.Errorf("expected full client request, got %+v (%v)", first, err)
			return
		}
		body, _ := first.decodePayload()
		var req asrRequest
		_ = json.Unmarshal(body, &req)
		if req.Audio.Language != "es-CO" || req.Request.ModelName != "bigmodel" {
			t.Errorf("unexpected asr request: %+v", req)
		}

		total := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := DecodeMessage(bytes.NewReader(data))
			if err != nil {
				t.Errorf("server decode err: %v", err)
				return
			}
			chunk, _ := msg.decodePayload()
			total += len(chunk)
			if msg.IsLastPacket() {
				break
			}
		}
		received <- total

		result, _ := CompressPayload([]byte(`{"result":{"text":" quiero rosas "},"audio_info":{"duration":900}}`), GzipCompression)
		writeFrame(t, conn, &Message{
			Header:      NewHeader(FullServerResponse, NegativeSequenceNumber, JSONSerialization, GzipCompression),
			Sequence:    -3,
			Payload:     result,
			PayloadSize: uint32(len(result)),
		})
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ASRURL = wsURL(srv)
	svc := NewService(cfg, nil)

	audio := bytes.Repeat([]byte{1}, 7000)
	resp, err := svc.Transcribe(context.Background(), audio, "pcm", "")
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if resp.Text != "quiero rosas" || resp.Duration != 900 {
		t.Fatalf("unexpected transcript: %+v", resp)
	}
	if got := <-received; got != len(audio) {
		t.Fatalf("server received %d bytes, want %d", got, len(audio))
	}
}

func TestTranscribeEmptyResultIsNoMatch(t *testing.T) {
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, _ := DecodeMessage(bytes.NewReader(data))
			if msg != nil && msg.IsLastPacket() {
				break
			}
		}
		body := []byte(`{"result":{"text":""}}`)
		writeFrame(t, conn, &Message{
			Header:      NewHeader(FullServerResponse, LastPacketNoSequence, JSONSerialization, NoCompression),
			Payload:     body,
			PayloadSize: uint32(len(body)),
		})
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ASRURL = wsURL(srv)
	_, err := NewService(cfg, nil).Transcribe(context.Background(), []byte{1, 2, 3}, "pcm", "es-CO")
	if !errors.Is(err, speechmodel.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestDisabledServiceIsUnsupported(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	svc := NewService(cfg, nil)
	if svc.Enabled() {
		t.Fatalf("service should be disabled")
	}
	if _, err := svc.Synthesize(context.Background(), "hola", "es-CO"); !errors.Is(err, speechmodel.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	cfg = testConfig()
	cfg.AccessToken = ""
	if NewService(cfg, nil).Enabled() {
		t.Fatalf("missing credentials should disable speech")
	}
}
