package subtitle

import (
	"fmt"
	"io"
	"strings"
)

// WriteVTT writes segments as a WebVTT document to w. Cue layout matches the
// SubRip writer except for the required WEBVTT header, the dot millisecond
// separator, and the absence of index lines.
func WriteVTT(w io.Writer, segments []Segment) error {
	if _, err := fmt.Fprint(w, "WEBVTT\n\n"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, seg := range segments {
		_, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n",
			formatVTTTimestamp(seg.Start),
			formatVTTTimestamp(seg.End),
			seg.Text)
		if err != nil {
			return fmt.Errorf("failed to write cue %d: %w", i+1, err)
		}
	}
	return nil
}

// SerializeVTT renders segments as a WebVTT document string.
func SerializeVTT(segments []Segment) string {
	var sb strings.Builder
	_ = WriteVTT(&sb, segments)
	return sb.String()
}
