package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteSRT writes segments as a SubRip document to w. Each segment becomes
// one cue block: a 1-based index line, a range line, the cue text (embedded
// newlines become a multi-line cue), and a blank separator line. Segments are
// emitted in input order; ordering and overlap are the caller's contract and
// are not checked here.
func WriteSRT(w io.Writer, segments []Segment) error {
	for i, seg := range segments {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(seg.Start),
			FormatTimestamp(seg.End),
			seg.Text)
		if err != nil {
			return fmt.Errorf("failed to write cue %d: %w", i+1, err)
		}
	}
	return nil
}

// SerializeSRT renders segments as a SubRip document string. An empty input
// produces an empty document. Identical inputs always produce byte-identical
// output.
func SerializeSRT(segments []Segment) string {
	var sb strings.Builder
	// Writes to a strings.Builder cannot fail.
	_ = WriteSRT(&sb, segments)
	return sb.String()
}

// ParseSRT reads a SubRip document back into segments. It accepts the output
// of WriteSRT: index line, range line, one or more text lines, blank
// separator. Index values in the document are ignored; position defines
// order. Timestamps are recovered to millisecond precision.
func ParseSRT(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var segments []Segment
	var lines []string

	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		if len(lines) < 2 {
			return fmt.Errorf("cue %d: incomplete block", len(segments)+1)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			return fmt.Errorf("cue %d: invalid index line %q", len(segments)+1, lines[0])
		}
		start, end, err := parseRangeLine(lines[1])
		if err != nil {
			return fmt.Errorf("cue %d: %w", len(segments)+1, err)
		}
		if len(lines) < 3 {
			return fmt.Errorf("cue %d: missing text", len(segments)+1)
		}
		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
		lines = lines[:0]
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle document: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return segments, nil
}

// parseRangeLine splits "HH:MM:SS,mmm --> HH:MM:SS,mmm" into offsets.
func parseRangeLine(line string) (float64, float64, error) {
	parts := strings.Split(line, " --> ")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range line %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp reverses FormatTimestamp.
func parseTimestamp(ts string) (float64, error) {
	var hours, minutes, secs, ms int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &hours, &minutes, &secs, &ms); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	if minutes > 59 || secs > 59 || ms > 999 || hours < 0 || minutes < 0 || secs < 0 || ms < 0 {
		return 0, fmt.Errorf("invalid timestamp %q: field out of range", ts)
	}
	return float64(hours*3600+minutes*60+secs) + float64(ms)/1000.0, nil
}
