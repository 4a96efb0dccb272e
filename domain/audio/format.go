package audio

import (
	"fmt"
	"strings"
)

// Format is the container/codec of a produced artifact.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// DefaultFormat is used when a request leaves format_out empty.
const DefaultFormat = FormatMP3

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP3:
		return FormatMP3, nil
	case FormatWAV:
		return FormatWAV, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// MimeType returns the media type artifacts of this format are served with.
func (f Format) MimeType() string {
	if f == FormatMP3 {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// MimeTypeForName picks the media type from an artifact file name.
// Anything not ending in .mp3 is served as wav.
func MimeTypeForName(name string) string {
	if strings.HasSuffix(name, ".mp3") {
		return FormatMP3.MimeType()
	}
	return FormatWAV.MimeType()
}
