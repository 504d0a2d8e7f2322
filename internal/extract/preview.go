package extract

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// previewOr returns text capped at n characters, or NoTextFound when text is blank.
func previewOr(text string, n int) string {
	if strings.TrimSpace(text) == "" {
		return NoTextFound
	}
	return truncate(text, n)
}

// readAll returns the whole content of rs and rewinds it.
func readAll(rs io.ReadSeeker) ([]byte, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	defer rs.Seek(0, io.SeekStart)

	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}
