package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"autosubtitle/internal/config"
	"autosubtitle/internal/pipeline"
)

// stubProcessor returns a canned result or error without touching FFmpeg.
type stubProcessor struct {
	result       *pipeline.Result
	err          error
	lastFilename string
	lastFormat   pipeline.Format
}

func (s *stubProcessor) Process(ctx context.Context, filename string, media io.Reader, format pipeline.Format) (*pipeline.Result, error) {
	_, _ = io.Copy(io.Discard, media)
	s.lastFilename = filename
	s.lastFormat = format
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestService(t *testing.T, proc Processor) *Service {
	t.Helper()
	return NewService(config.NewConfiguration(), proc, zaptest.NewLogger(t))
}

func multipartUpload(t *testing.T, filename, format string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if format != "" {
		require.NoError(t, mw.WriteField("format", format))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &body, mw.FormDataContentType()
}

func TestService_GenerateSubtitles(t *testing.T) {
	t.Run("should return subtitle document as named attachment", func(t *testing.T) {
		proc := &stubProcessor{result: &pipeline.Result{
			SubtitleName: "lecture.srt",
			Format:       pipeline.FormatSRT,
			Document:     "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n",
			SegmentCount: 1,
		}}
		svc := newTestService(t, proc)

		body, contentType := multipartUpload(t, "lecture.mp4", "", []byte("fake mp4 bytes"))
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="lecture.srt"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "1", w.Header().Get("X-Segment-Count"))
		assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n", w.Body.String())
		assert.Equal(t, "lecture.mp4", proc.lastFilename)
		assert.Equal(t, pipeline.FormatSRT, proc.lastFormat)
	})

	t.Run("should pass requested format through to the pipeline", func(t *testing.T) {
		proc := &stubProcessor{result: &pipeline.Result{SubtitleName: "clip.vtt", Format: pipeline.FormatVTT, Document: "WEBVTT\n\n"}}
		svc := newTestService(t, proc)

		body, contentType := multipartUpload(t, "clip.mkv", "vtt", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, pipeline.FormatVTT, proc.lastFormat)
	})

	t.Run("should return 400 when the file field is missing", func(t *testing.T) {
		svc := newTestService(t, &stubProcessor{})

		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", bytes.NewBufferString("no multipart"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=missing")
		w := httptest.NewRecorder()

		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should map unsupported media to 415", func(t *testing.T) {
		proc := &stubProcessor{err: fmt.Errorf("%w: \".txt\"", pipeline.ErrUnsupportedMedia)}
		svc := newTestService(t, proc)

		body, contentType := multipartUpload(t, "notes.txt", "", []byte("text"))
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Contains(t, w.Body.String(), "unsupported media type")
	})

	t.Run("should map missing audio track to 422", func(t *testing.T) {
		proc := &stubProcessor{err: fmt.Errorf("%w: silent video", pipeline.ErrNoAudioTrack)}
		svc := newTestService(t, proc)

		body, contentType := multipartUpload(t, "silent.mp4", "", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("should map transcription failures to 502", func(t *testing.T) {
		proc := &stubProcessor{err: fmt.Errorf("transcription failed: model exploded")}
		svc := newTestService(t, proc)

		body, contentType := multipartUpload(t, "clip.mp4", "", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("should notify the result observer of outcomes", func(t *testing.T) {
		proc := &stubProcessor{result: &pipeline.Result{SubtitleName: "a.srt"}}
		svc := newTestService(t, proc)

		var observed []error
		svc.SetResultObserver(func(err error) { observed = append(observed, err) })

		body, contentType := multipartUpload(t, "a.mp4", "", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		svc.Router().ServeHTTP(w, req)

		require.Len(t, observed, 1)
		assert.NoError(t, observed[0])
	})
}

func TestService_Index(t *testing.T) {
	t.Run("should serve the embedded upload page", func(t *testing.T) {
		svc := newTestService(t, &stubProcessor{})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Auto Subtitle Generator")
	})
}

func TestService_Health(t *testing.T) {
	t.Run("should report ok", func(t *testing.T) {
		svc := newTestService(t, &stubProcessor{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ok")
	})
}

func TestService_CORS(t *testing.T) {
	t.Run("should answer preflight requests", func(t *testing.T) {
		svc := newTestService(t, &stubProcessor{})

		req := httptest.NewRequest(http.MethodOptions, "/api/subtitles", nil)
		w := httptest.NewRecorder()
		svc.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
