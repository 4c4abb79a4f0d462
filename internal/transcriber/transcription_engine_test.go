package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"autosubtitle/internal/config"
)

// mockModel records the PCM chunks it receives and returns canned segments
// for each call.
type mockModel struct {
	chunks    [][]byte
	perChunk  []TranscriptionSegment
	loadErr   error
	transErr  error
	loaded    bool
	closed    bool
	callCount int
}

func (m *mockModel) LoadModel(ctx context.Context) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = true
	return nil
}

func (m *mockModel) Transcribe(ctx context.Context, pcm []byte) ([]TranscriptionSegment, error) {
	m.callCount++
	chunk := make([]byte, len(pcm))
	copy(chunk, pcm)
	m.chunks = append(m.chunks, chunk)
	if m.transErr != nil {
		return nil, m.transErr
	}
	return m.perChunk, nil
}

func (m *mockModel) Close() error {
	m.closed = true
	return nil
}

func TestTranscriptionEngine_Transcribe(t *testing.T) {
	t.Run("should split audio into chunks of the configured duration", func(t *testing.T) {
		model := &mockModel{}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 1)

		// 2.5 seconds of 16kHz 16-bit mono PCM.
		audio := bytes.Repeat([]byte{0}, int(2.5*SampleRate*2))

		_, err := engine.Transcribe(context.Background(), bytes.NewReader(audio))

		require.NoError(t, err)
		require.Len(t, model.chunks, 3)
		assert.Len(t, model.chunks[0], SampleRate*2)
		assert.Len(t, model.chunks[1], SampleRate*2)
		assert.Len(t, model.chunks[2], SampleRate) // half-second remainder
	})

	t.Run("should offset chunk timestamps to absolute media time", func(t *testing.T) {
		model := &mockModel{perChunk: []TranscriptionSegment{
			{Text: "chunk text", StartMS: 100, EndMS: 800, Confidence: 0.9},
		}}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 1)

		audio := bytes.Repeat([]byte{0}, 2*SampleRate*2) // exactly 2 chunks

		segments, err := engine.Transcribe(context.Background(), bytes.NewReader(audio))

		require.NoError(t, err)
		require.Len(t, segments, 2)
		assert.Equal(t, 100, segments[0].StartMS)
		assert.Equal(t, 800, segments[0].EndMS)
		assert.Equal(t, 1100, segments[1].StartMS)
		assert.Equal(t, 1800, segments[1].EndMS)
	})

	t.Run("should return no segments for empty audio", func(t *testing.T) {
		model := &mockModel{}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 1)

		segments, err := engine.Transcribe(context.Background(), bytes.NewReader(nil))

		require.NoError(t, err)
		assert.Empty(t, segments)
		assert.Equal(t, 0, model.callCount)
	})

	t.Run("should propagate model failures", func(t *testing.T) {
		model := &mockModel{transErr: fmt.Errorf("model exploded")}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 1)

		audio := bytes.Repeat([]byte{0}, SampleRate*2)

		_, err := engine.Transcribe(context.Background(), bytes.NewReader(audio))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "transcription failed for chunk 1")
	})

	t.Run("should skip invalid segments from the backend", func(t *testing.T) {
		model := &mockModel{perChunk: []TranscriptionSegment{
			{Text: "good", StartMS: 0, EndMS: 500, Confidence: 0.9},
			{Text: "", StartMS: 500, EndMS: 600, Confidence: 0.9},
		}}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 1)

		audio := bytes.Repeat([]byte{0}, SampleRate*2)

		segments, err := engine.Transcribe(context.Background(), bytes.NewReader(audio))

		require.NoError(t, err)
		require.Len(t, segments, 1)
		assert.Equal(t, "good", segments[0].Text)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		model := &mockModel{}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		audio := bytes.Repeat([]byte{0}, SampleRate*2)
		_, err := engine.Transcribe(ctx, bytes.NewReader(audio))

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTranscriptionEngine_LoadModel(t *testing.T) {
	t.Run("should delegate to the underlying model", func(t *testing.T) {
		model := &mockModel{}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 30)

		require.NoError(t, engine.LoadModel(context.Background()))
		assert.True(t, model.loaded)
	})

	t.Run("should wrap model load failures", func(t *testing.T) {
		model := &mockModel{loadErr: fmt.Errorf("no binary")}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 30)

		err := engine.LoadModel(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load whisper model")
	})
}

func TestTranscriptionEngine_Close(t *testing.T) {
	t.Run("should close the underlying model", func(t *testing.T) {
		model := &mockModel{}
		engine := NewTranscriptionEngineWithModel(zaptest.NewLogger(t), model, 30)

		require.NoError(t, engine.Close())
		assert.True(t, model.closed)
	})
}

func TestNewTranscriptionEngineWithConfig(t *testing.T) {
	t.Run("should build a local backend by default", func(t *testing.T) {
		engine, err := NewTranscriptionEngineWithConfig(zaptest.NewLogger(t), config.NewConfiguration())

		require.NoError(t, err)
		assert.IsType(t, &WhisperCppModel{}, engine.model)
	})

	t.Run("should build a server backend when configured", func(t *testing.T) {
		t.Setenv("AUTOSUB_WHISPER_BACKEND", "server")
		t.Setenv("AUTOSUB_WHISPER_SERVER_URL", "http://localhost:9000")

		cfg, err := config.NewConfigurationFromEnv()
		require.NoError(t, err)

		engine, err := NewTranscriptionEngineWithConfig(zaptest.NewLogger(t), cfg)
		require.NoError(t, err)
		assert.IsType(t, &ServerModel{}, engine.model)
	})

	t.Run("should reject unknown backends", func(t *testing.T) {
		t.Setenv("AUTOSUB_WHISPER_BACKEND", "telepathy")

		cfg, err := config.NewConfigurationFromEnv()
		require.NoError(t, err)

		_, err = NewTranscriptionEngineWithConfig(zaptest.NewLogger(t), cfg)
		assert.Error(t, err)
	})
}
