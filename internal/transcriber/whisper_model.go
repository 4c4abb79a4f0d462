package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// SampleRate is the PCM sample rate Whisper expects.
const SampleRate = 16000

// WhisperModel defines the operations needed from a Whisper speech
// recognition backend. Implementations receive raw 16kHz 16-bit mono PCM
// and return ordered transcription segments.
type WhisperModel interface {
	LoadModel(ctx context.Context) error
	Transcribe(ctx context.Context, pcm []byte) ([]TranscriptionSegment, error)
	Close() error
}

// WhisperCppModel runs transcriptions through the whisper.cpp command line
// binary. Each call writes the PCM to a temporary WAV file, invokes the
// binary with JSON output enabled, and parses the result.
type WhisperCppModel struct {
	binaryPath string
	modelPath  string
	modelName  string
	language   string
	logger     *zap.Logger
	downloader *ModelDownloader
	isLoaded   bool
}

// NewWhisperCppModel creates a new WhisperCppModel instance
func NewWhisperCppModel(binaryPath, modelPath, modelName, language string, logger *zap.Logger) *WhisperCppModel {
	return &WhisperCppModel{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		modelName:  modelName,
		language:   language,
		logger:     logger,
		downloader: NewModelDownloader(logger, filepath.Dir(modelPath)),
	}
}

// LoadModel verifies the whisper.cpp binary is available and ensures the
// model file exists, downloading it when missing.
func (w *WhisperCppModel) LoadModel(ctx context.Context) error {
	w.logger.Info("loading whisper.cpp model",
		zap.String("binary", w.binaryPath),
		zap.String("path", w.modelPath))

	if w.modelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	if _, err := exec.LookPath(w.binaryPath); err != nil {
		return fmt.Errorf("whisper.cpp binary %q not found: %w", w.binaryPath, err)
	}

	if err := w.downloader.EnsureModelExists(ctx, w.modelName, w.modelPath); err != nil {
		return fmt.Errorf("failed to ensure model exists: %w", err)
	}

	w.isLoaded = true
	w.logger.Info("whisper.cpp model ready", zap.String("path", w.modelPath))
	return nil
}

// whisperCppOutput mirrors the JSON document whisper.cpp emits with -oj.
type whisperCppOutput struct {
	Transcription []struct {
		Offsets struct {
			From int `json:"from"`
			To   int `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe processes PCM audio and returns transcription segments
func (w *WhisperCppModel) Transcribe(ctx context.Context, pcm []byte) ([]TranscriptionSegment, error) {
	if !w.isLoaded {
		return nil, fmt.Errorf("whisper model not loaded")
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	w.logger.Debug("starting transcription", zap.Int("audio_bytes", len(pcm)))

	tmpDir, err := os.MkdirTemp("", "autosubtitle-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "audio.wav")
	if err := writeWAV(wavPath, pcm, SampleRate); err != nil {
		return nil, err
	}

	outPrefix := filepath.Join(tmpDir, "audio")
	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-oj",            // JSON output file
		"-of", outPrefix, // output file prefix
		"-np", // suppress progress prints
	}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}

	cmd := exec.CommandContext(ctx, w.binaryPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper.cpp failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper.cpp output: %w", err)
	}

	var parsed whisperCppOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse whisper.cpp output: %w", err)
	}

	var segments []TranscriptionSegment
	for _, seg := range parsed.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, TranscriptionSegment{
			Text:       text,
			StartMS:    seg.Offsets.From,
			EndMS:      seg.Offsets.To,
			Confidence: 1.0,
		})
	}

	w.logger.Info("transcription completed", zap.Int("segments", len(segments)))
	return segments, nil
}

// Close releases model resources
func (w *WhisperCppModel) Close() error {
	w.logger.Info("closing whisper.cpp model")
	w.isLoaded = false
	return nil
}
