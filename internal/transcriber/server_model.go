package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ServerModel sends audio to an OpenAI-compatible transcription endpoint
// (POST /v1/audio/transcriptions) such as a local whisper server. The WAV
// payload is posted as multipart form data and segment timings are taken
// from the verbose_json response.
type ServerModel struct {
	baseURL   string
	apiKey    string
	modelName string
	language  string
	client    *http.Client
	logger    *zap.Logger
}

// NewServerModel creates a new ServerModel instance
func NewServerModel(baseURL, apiKey, modelName, language string, logger *zap.Logger) *ServerModel {
	return &ServerModel{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		modelName: modelName,
		language:  language,
		client: &http.Client{
			Timeout: 30 * time.Minute, // whole-file transcription can be slow
		},
		logger: logger,
	}
}

// LoadModel validates the endpoint configuration. Remote servers own their
// model lifecycle, so there is nothing to fetch here.
func (s *ServerModel) LoadModel(ctx context.Context) error {
	if s.baseURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	s.logger.Info("using remote transcription server",
		zap.String("url", s.baseURL),
		zap.String("model", s.modelName))
	return nil
}

// serverResponse mirrors the verbose_json transcription response shape.
type serverResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe posts PCM audio to the remote server and returns segments
func (s *ServerModel) Transcribe(ctx context.Context, pcm []byte) ([]TranscriptionSegment, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", s.modelName); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	}

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if err := writeWAVTo(fw, pcm, SampleRate); err != nil {
		return nil, fmt.Errorf("failed to encode audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	url := s.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	s.logger.Debug("sending audio to transcription server",
		zap.String("url", url),
		zap.Int("audio_bytes", len(pcm)))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription server returned HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed serverResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	var segments []TranscriptionSegment
	for _, seg := range parsed.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, TranscriptionSegment{
			Text:       text,
			StartMS:    int(seg.Start * 1000),
			EndMS:      int(seg.End * 1000),
			Confidence: 1.0,
		})
	}

	// Some servers return only a flat text field without timings. Surface it
	// as a single segment covering the submitted audio.
	if len(segments) == 0 && strings.TrimSpace(parsed.Text) != "" {
		durationMS := len(pcm) * 1000 / (SampleRate * 2)
		segments = append(segments, TranscriptionSegment{
			Text:       strings.TrimSpace(parsed.Text),
			StartMS:    0,
			EndMS:      durationMS,
			Confidence: 1.0,
		})
	}

	s.logger.Info("transcription completed",
		zap.Int("segments", len(segments)),
		zap.String("language", parsed.Language))
	return segments, nil
}

// Close releases client resources
func (s *ServerModel) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
