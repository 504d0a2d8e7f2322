// Package sniff identifies a document's MIME type from its leading bytes.
package sniff

import (
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// PrefixSize is the number of leading bytes inspected.
const PrefixSize = 2048

// Unknown is returned when nothing can be read from the stream.
const Unknown = "application/octet-stream"

// Sniff reads up to PrefixSize bytes from the start of rs and returns the
// content-derived MIME type without parameters. The read position is reset
// to the start before returning. Sniff never fails: unreadable or empty
// input yields Unknown.
func Sniff(rs io.ReadSeeker) string {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Unknown
	}
	defer rs.Seek(0, io.SeekStart)

	buf := make([]byte, PrefixSize)
	n, err := io.ReadFull(rs, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown
	}
	if n == 0 {
		return Unknown
	}
	return Bytes(buf[:n])
}

// Bytes classifies an in-memory prefix.
func Bytes(prefix []byte) string {
	mime := mimetype.Detect(prefix).String()
	mime = strings.SplitN(mime, ";", 2)[0]
	return strings.TrimSpace(strings.ToLower(mime))
}
