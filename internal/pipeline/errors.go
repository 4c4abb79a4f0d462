package pipeline

import "errors"

var (
	// ErrUnsupportedMedia reports an upload whose container type is not
	// accepted by the service.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrNoAudioTrack reports an upload that was a recognized container but
	// carried no decodable audio stream.
	ErrNoAudioTrack = errors.New("media contains no audio track")

	// ErrUnsupportedFormat reports a request for a subtitle output format
	// the service does not produce.
	ErrUnsupportedFormat = errors.New("unsupported subtitle format")
)
