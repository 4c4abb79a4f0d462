package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autosubtitle/internal/config"
	"autosubtitle/internal/processor"
	"autosubtitle/internal/subtitle"
	"autosubtitle/internal/transcriber"
)

// Format selects the subtitle document format produced for a request.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// Job carries the request-scoped identity of one upload. Each upload gets a
// fresh Job; nothing is shared across requests.
type Job struct {
	ID         uuid.UUID
	SourceName string
	StartedAt  time.Time
}

// Result is the outcome of one successful pipeline run: the subtitle
// document and the name it should be downloaded under.
type Result struct {
	Job          Job
	SubtitleName string
	Format       Format
	Document     string
	SegmentCount int
	MediaSeconds float64
}

// Transcriber is the transcription collaborator boundary: PCM in, ordered
// segments out.
type Transcriber interface {
	Transcribe(ctx context.Context, audioReader io.Reader) ([]transcriber.TranscriptionSegment, error)
}

// AudioSource decodes an uploaded media container into PCM readable until EOF.
type AudioSource interface {
	io.Reader
	Start(ctx context.Context) error
	Close() error
}

// Pipeline runs the linear upload → extract → transcribe → serialize flow.
// One call handles one file; the call blocks until the subtitle document is
// ready or the request has failed.
type Pipeline struct {
	logger       *zap.Logger
	engine       Transcriber
	newExtractor func(media io.Reader) AudioSource
}

// supportedExtensions lists the audio-bearing containers accepted for upload.
var supportedExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
}

// NewPipeline creates a Pipeline wired to the real FFmpeg extractor
func NewPipeline(cfg *config.Configuration, engine Transcriber, logger *zap.Logger) *Pipeline {
	ffmpegPath := cfg.GetFFmpegPath()
	return &Pipeline{
		logger: logger,
		engine: engine,
		newExtractor: func(media io.Reader) AudioSource {
			return processor.NewAudioExtractorWithPath(media, ffmpegPath, logger)
		},
	}
}

// NewPipelineWithComponents creates a Pipeline with explicit collaborators,
// used by tests.
func NewPipelineWithComponents(engine Transcriber, newExtractor func(io.Reader) AudioSource, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		logger:       logger,
		engine:       engine,
		newExtractor: newExtractor,
	}
}

// SupportsFilename reports whether the upload's extension is an accepted
// media container.
func SupportsFilename(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SubtitleName derives the download file name from the upload's base name.
func SubtitleName(sourceName string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if base == "" || base == "." {
		base = "subtitles"
	}
	return base + "." + string(format)
}

// Process transcribes one uploaded media file and returns its subtitle
// document. The media reader is consumed fully. All failures are local to
// this call; there is no retry.
func (p *Pipeline) Process(ctx context.Context, filename string, media io.Reader, format Format) (*Result, error) {
	if format != FormatSRT && format != FormatVTT {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if !SupportsFilename(filename) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, filepath.Ext(filename))
	}

	job := Job{
		ID:         uuid.New(),
		SourceName: filepath.Base(filename),
		StartedAt:  time.Now(),
	}

	p.logger.Info("processing upload",
		zap.String("job_id", job.ID.String()),
		zap.String("source", job.SourceName),
		zap.String("format", string(format)))

	extractor := p.newExtractor(media)
	if err := extractor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start audio extraction: %w", err)
	}

	segments, transcribeErr := p.engine.Transcribe(ctx, extractor)
	closeErr := extractor.Close()

	if errors.Is(closeErr, processor.ErrNoDecodableAudio) {
		p.logger.Warn("upload rejected: no decodable audio",
			zap.String("job_id", job.ID.String()),
			zap.Error(closeErr))
		return nil, fmt.Errorf("%w: %v", ErrNoAudioTrack, closeErr)
	}
	if transcribeErr != nil {
		return nil, fmt.Errorf("transcription failed: %w", transcribeErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("audio extraction failed: %w", closeErr)
	}

	cues := buildCues(segments, p.logger, job.ID)

	var document string
	switch format {
	case FormatVTT:
		document = subtitle.SerializeVTT(cues)
	default:
		document = subtitle.SerializeSRT(cues)
	}

	result := &Result{
		Job:          job,
		SubtitleName: SubtitleName(job.SourceName, format),
		Format:       format,
		Document:     document,
		SegmentCount: len(cues),
	}
	if len(cues) > 0 {
		result.MediaSeconds = cues[len(cues)-1].End
	}

	p.logger.Info("upload processed",
		zap.String("job_id", job.ID.String()),
		zap.String("subtitle_name", result.SubtitleName),
		zap.Int("segments", result.SegmentCount),
		zap.Duration("elapsed", time.Since(job.StartedAt)))

	return result, nil
}

// buildCues converts raw transcription segments into subtitle cues: text is
// trimmed, empty segments are dropped so cue indices stay dense, and
// inverted intervals from a misbehaving backend are clamped rather than
// crashing the request.
func buildCues(segments []transcriber.TranscriptionSegment, logger *zap.Logger, jobID uuid.UUID) []subtitle.Segment {
	var cues []subtitle.Segment
	for _, ts := range segments {
		text := strings.TrimSpace(ts.Text)
		if text == "" {
			continue
		}

		cue := subtitle.Segment{
			Start: float64(ts.StartMS) / 1000.0,
			End:   float64(ts.EndMS) / 1000.0,
			Text:  text,
		}
		if cue.End < cue.Start {
			logger.Warn("clamping inverted segment interval",
				zap.String("job_id", jobID.String()),
				zap.Int("start_ms", ts.StartMS),
				zap.Int("end_ms", ts.EndMS))
			cue = cue.Clamped()
		}
		cues = append(cues, cue)
	}
	return cues
}
