package transcriber

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"autosubtitle/internal/config"
)

// TranscriptionEngine drives a WhisperModel over a finite PCM stream. The
// stream is consumed in fixed-duration chunks so memory stays bounded for
// long media; per-chunk timestamps are shifted to absolute media time before
// segments are returned. The call blocks until the whole stream has been
// transcribed, matching the one-request-at-a-time flow of the service.
type TranscriptionEngine struct {
	logger           *zap.Logger
	model            WhisperModel
	chunkDurationSec int
}

// NewTranscriptionEngineWithConfig creates a TranscriptionEngine with the
// backend selected by configuration: a local whisper.cpp binary or a remote
// OpenAI-compatible server.
func NewTranscriptionEngineWithConfig(logger *zap.Logger, cfg *config.Configuration) (*TranscriptionEngine, error) {
	var model WhisperModel

	switch backend := cfg.GetWhisperBackend(); backend {
	case "local":
		model = NewWhisperCppModel(
			cfg.GetWhisperBinaryPath(),
			cfg.GetWhisperModelPath(),
			cfg.GetWhisperModelName(),
			cfg.GetWhisperLanguage(),
			logger,
		)
	case "server":
		model = NewServerModel(
			cfg.GetWhisperServerURL(),
			cfg.GetWhisperAPIKey(),
			cfg.GetWhisperModelName(),
			cfg.GetWhisperLanguage(),
			logger,
		)
	default:
		return nil, fmt.Errorf("unknown whisper backend %q", backend)
	}

	return &TranscriptionEngine{
		logger:           logger,
		model:            model,
		chunkDurationSec: cfg.GetTranscriptionChunkDurationSec(),
	}, nil
}

// NewTranscriptionEngineWithModel creates a TranscriptionEngine around an
// existing model, used by tests and callers that manage their own backend.
func NewTranscriptionEngineWithModel(logger *zap.Logger, model WhisperModel, chunkDurationSec int) *TranscriptionEngine {
	return &TranscriptionEngine{
		logger:           logger,
		model:            model,
		chunkDurationSec: chunkDurationSec,
	}
}

// LoadModel prepares the underlying Whisper backend
func (te *TranscriptionEngine) LoadModel(ctx context.Context) error {
	if te.model == nil {
		return fmt.Errorf("whisper model not initialized")
	}

	if err := te.model.LoadModel(ctx); err != nil {
		return fmt.Errorf("failed to load whisper model: %w", err)
	}

	return nil
}

// Transcribe reads 16kHz 16-bit mono PCM from audioReader until EOF and
// returns the ordered transcription segments for the whole stream.
func (te *TranscriptionEngine) Transcribe(ctx context.Context, audioReader io.Reader) ([]TranscriptionSegment, error) {
	if te.model == nil {
		return nil, fmt.Errorf("whisper model not initialized")
	}

	chunkSec := te.chunkDurationSec
	if chunkSec <= 0 {
		chunkSec = 30
	}
	chunkSize := chunkSec * SampleRate * 2 // seconds * 16kHz * 2 bytes per sample

	te.logger.Info("starting transcription",
		zap.Int("chunk_duration_sec", chunkSec))

	var segments []TranscriptionSegment
	buffer := make([]byte, chunkSize)
	chunkCount := 0
	offsetMS := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bytesRead, err := io.ReadFull(audioReader, buffer)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed to read audio chunk: %w", err)
		}

		chunkCount++
		te.logger.Debug("processing audio chunk",
			zap.Int("chunk_number", chunkCount),
			zap.Int("bytes_read", bytesRead))

		chunkSegments, terr := te.model.Transcribe(ctx, buffer[:bytesRead])
		if terr != nil {
			return nil, fmt.Errorf("transcription failed for chunk %d: %w", chunkCount, terr)
		}

		for _, seg := range chunkSegments {
			shifted := seg.WithOffset(offsetMS)
			if verr := shifted.Validate(); verr != nil {
				te.logger.Warn("skipping invalid segment from backend",
					zap.Error(verr),
					zap.Int("chunk_number", chunkCount))
				continue
			}
			segments = append(segments, shifted)
		}

		offsetMS += bytesRead * 1000 / (SampleRate * 2)

		// Last, partial chunk.
		if err == io.ErrUnexpectedEOF {
			break
		}
	}

	te.logger.Info("transcription finished",
		zap.Int("chunks_processed", chunkCount),
		zap.Int("total_segments", len(segments)))

	return segments, nil
}

// Close cleans up resources and closes the Whisper backend
func (te *TranscriptionEngine) Close() error {
	if te.model != nil {
		if err := te.model.Close(); err != nil {
			return fmt.Errorf("failed to close whisper model: %w", err)
		}
	}
	return nil
}
