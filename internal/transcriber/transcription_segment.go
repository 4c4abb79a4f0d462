package transcriber

import (
	"fmt"
	"strings"
)

// TranscriptionSegment represents a single raw transcribed interval as output
// by a Whisper backend, with millisecond timestamps relative to media start
type TranscriptionSegment struct {
	Text       string  `json:"text"`
	StartMS    int     `json:"start_ms"`
	EndMS      int     `json:"end_ms"`
	Confidence float32 `json:"confidence"`
}

// Validate checks if the TranscriptionSegment has valid values
func (ts *TranscriptionSegment) Validate() error {
	if strings.TrimSpace(ts.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if ts.StartMS < 0 {
		return fmt.Errorf("start_ms cannot be negative")
	}

	if ts.EndMS < ts.StartMS {
		return fmt.Errorf("end_ms must not be before start_ms")
	}

	if ts.Confidence < 0.0 || ts.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0")
	}

	return nil
}

// WithOffset returns a copy of the segment shifted forward by offsetMS, used
// to translate chunk-relative timestamps to absolute media time.
func (ts TranscriptionSegment) WithOffset(offsetMS int) TranscriptionSegment {
	ts.StartMS += offsetMS
	ts.EndMS += offsetMS
	return ts
}
