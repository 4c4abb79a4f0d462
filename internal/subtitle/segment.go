package subtitle

import (
	"fmt"
	"strings"
)

// Segment is one transcribed utterance: a start and end offset in seconds
// from the beginning of the media, and the text spoken in that interval.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Validate checks if the Segment has valid values
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if s.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}

	if s.End < s.Start {
		return fmt.Errorf("end must not be before start")
	}

	return nil
}

// Clamped returns a copy of the segment with End raised to Start when a
// misbehaving transcription backend hands back a negative-duration interval.
// Well-formed segments pass through unchanged.
func (s Segment) Clamped() Segment {
	if s.End < s.Start {
		s.End = s.Start
	}
	return s
}
