package transcriber

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// writeWAV wraps raw 16-bit little-endian mono PCM in a RIFF/WAV header and
// writes it to path. Whisper backends that consume files rather than raw
// sample buffers need the header to recover the sample rate.
func writeWAV(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer f.Close()

	if err := writeWAVTo(f, pcm, sampleRate); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}

	return nil
}

// writeWAVTo writes the RIFF header followed by the PCM payload.
func writeWAVTo(w io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataLen := uint32(len(pcm))

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataLen)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataLen)

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return nil
}
