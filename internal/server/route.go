package server

import (
	"embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autosubtitle/internal/pipeline"
)

//go:embed static
var staticFS embed.FS

// initRouter registers the UI, API, and health routes
func (s *Service) initRouter() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/subtitles", s.handleGenerateSubtitles)
	}
}

// handleIndex serves the embedded single-page upload UI
func (s *Service) handleIndex(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload page unavailable"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleHealth reports service liveness
func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGenerateSubtitles accepts one multipart media upload, runs it
// through the pipeline, and returns the subtitle document as a file
// download named after the upload
func (s *Service) handleGenerateSubtitles(c *gin.Context) {
	maxBytes := s.cfg.GetMaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds the %d byte limit", maxBytes),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field in upload"})
		return
	}
	defer file.Close()

	format := pipeline.FormatSRT
	if requested := c.PostForm("format"); requested != "" {
		format = pipeline.Format(requested)
	}

	result, err := s.pipe.Process(c.Request.Context(), header.Filename, file, format)
	if s.onResult != nil {
		s.onResult(err)
	}
	if err != nil {
		s.writeProcessError(c, header.Filename, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.SubtitleName))
	c.Header("X-Segment-Count", fmt.Sprintf("%d", result.SegmentCount))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(result.Document))
}

// writeProcessError maps pipeline failures onto HTTP statuses: bad uploads
// are client errors, collaborator failures are upstream errors
func (s *Service) writeProcessError(c *gin.Context, filename string, err error) {
	s.logger.Warn("upload processing failed",
		zap.String("filename", filename),
		zap.Error(err))

	switch {
	case errors.Is(err, pipeline.ErrUnsupportedMedia):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNoAudioTrack):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "transcription failed: " + err.Error()})
	}
}
