package processor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// AudioExtractor manages an FFmpeg child process that decodes the audio
// track of an uploaded media container into 16kHz 16-bit mono PCM. The
// container bytes are piped into FFmpeg stdin and decoded PCM is exposed
// through the io.Reader interface.
type AudioExtractor struct {
	input      io.Reader
	logger     *zap.Logger
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     io.ReadCloser
	stderr     io.ReadCloser
	ffmpegPath string

	mu         sync.Mutex
	stderrTail []string
}

// NewAudioExtractor creates a new AudioExtractor instance
func NewAudioExtractor(input io.Reader, logger *zap.Logger) *AudioExtractor {
	return &AudioExtractor{
		input:      input,
		logger:     logger,
		ffmpegPath: "ffmpeg",
	}
}

// NewAudioExtractorWithPath creates a new AudioExtractor with a custom FFmpeg binary path
func NewAudioExtractorWithPath(input io.Reader, ffmpegPath string, logger *zap.Logger) *AudioExtractor {
	return &AudioExtractor{
		input:      input,
		logger:     logger,
		ffmpegPath: ffmpegPath,
	}
}

// Start initializes and starts the FFmpeg child process
func (a *AudioExtractor) Start(ctx context.Context) error {
	a.logger.Info("starting ffmpeg process for audio extraction")

	// Decode whatever container arrives on stdin, drop video, resample the
	// audio track to what Whisper expects.
	args := []string{
		"-i", "pipe:0", // read container from stdin
		"-vn",          // no video
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // mono
		"-f", "s16le", // 16-bit little-endian PCM
		"-", // write to stdout
	}

	a.cmd = exec.CommandContext(ctx, a.ffmpegPath, args...)

	stdin, err := a.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	a.stdin = stdin

	stdout, err := a.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	a.stdout = stdout

	stderr, err := a.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	a.stderr = stderr

	if err := a.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	a.logger.Info("ffmpeg process started",
		zap.Int("pid", a.cmd.Process.Pid))

	go a.handleStderr()
	go a.pipeInputToStdin()

	return nil
}

// Read implements io.Reader, returning decoded PCM data from FFmpeg stdout
func (a *AudioExtractor) Read(p []byte) (n int, err error) {
	if a.stdout == nil {
		return 0, fmt.Errorf("ffmpeg process not started")
	}

	return a.stdout.Read(p)
}

// Close shuts down the FFmpeg process and reports how the extraction ended.
// A non-zero exit caused by unusable input is surfaced so the caller can
// distinguish "bad upload" from "pipeline bug".
func (a *AudioExtractor) Close() error {
	a.logger.Debug("closing audio extractor")

	if a.stdin != nil {
		a.stdin.Close()
		a.stdin = nil
	}

	var waitErr error
	if a.cmd != nil && a.cmd.Process != nil {
		waitErr = a.cmd.Wait()
	}

	if a.stdout != nil {
		a.stdout.Close()
		a.stdout = nil
	}
	if a.stderr != nil {
		a.stderr.Close()
		a.stderr = nil
	}

	if waitErr != nil {
		if reason := a.unusableInputReason(); reason != "" {
			return fmt.Errorf("%w: %s", ErrNoDecodableAudio, reason)
		}
		if isExpectedProcessTermination(waitErr) {
			a.logger.Debug("ffmpeg terminated during cleanup", zap.Error(waitErr))
			return nil
		}
		a.logger.Warn("ffmpeg process ended with error", zap.Error(waitErr))
		return fmt.Errorf("ffmpeg process error: %w", waitErr)
	}

	return nil
}

// ErrNoDecodableAudio reports that FFmpeg could not find a usable audio
// stream in the uploaded media.
var ErrNoDecodableAudio = fmt.Errorf("no decodable audio stream in input")

// unusableInputReason scans captured stderr for messages that indicate the
// input itself was the problem, returning the matching line or "".
func (a *AudioExtractor) unusableInputReason() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	indicators := []string{
		"Invalid data found when processing input",
		"does not contain any stream",
		"Output file does not contain any stream",
		"could not find codec parameters",
		"Stream map '' matches no streams",
	}
	for _, line := range a.stderrTail {
		for _, indicator := range indicators {
			if strings.Contains(line, indicator) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}

// isExpectedProcessTermination checks if the error is an expected termination scenario
func isExpectedProcessTermination(err error) bool {
	errStr := err.Error()
	return errStr == "signal: broken pipe" ||
		errStr == "signal: killed"
}

// handleStderr captures FFmpeg stderr output for diagnostics and failure
// classification
func (a *AudioExtractor) handleStderr() {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("stderr handler panic recovered", zap.Any("panic", r))
		}
	}()

	stderr := a.stderr
	if stderr == nil {
		return
	}

	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			output := string(buf[:n])
			a.recordStderr(output)
			a.logger.Debug("ffmpeg stderr", zap.String("output", output))
		}
		if err != nil {
			if err != io.EOF {
				a.logger.Debug("stderr reading completed", zap.Error(err))
			}
			break
		}
	}
}

// recordStderr keeps a bounded tail of stderr lines for failure classification
func (a *AudioExtractor) recordStderr(output string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a.stderrTail = append(a.stderrTail, line)
	}
	const maxLines = 64
	if len(a.stderrTail) > maxLines {
		a.stderrTail = a.stderrTail[len(a.stderrTail)-maxLines:]
	}
}

// pipeInputToStdin pipes the uploaded media bytes to FFmpeg stdin
func (a *AudioExtractor) pipeInputToStdin() {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("stdin piping panic recovered", zap.Any("panic", r))
		}
	}()

	if a.stdin == nil || a.input == nil {
		return
	}

	defer func() {
		if a.stdin != nil {
			a.stdin.Close()
		}
	}()

	if _, err := io.Copy(a.stdin, a.input); err != nil {
		// Broken pipe is normal when ffmpeg rejects the input early.
		a.logger.Debug("stopped piping input to ffmpeg", zap.Error(err))
	}
}
