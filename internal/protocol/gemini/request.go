package gemini

import (
	"bufio"
	"errors"
	"strings"
)

const scheme = "gemini://"

var (
	ErrLineTooLong = errors.New("gemini: request line exceeds limit")
)

// ReadRequestLine reads one CRLF-terminated request line, refusing to buffer
// more than max bytes from a peer that never sends a terminator.
func ReadRequestLine(r *bufio.Reader, max int) (string, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			return strings.TrimRight(string(buf), "\r"), nil
		}
		if len(buf) >= max {
			return "", ErrLineTooLong
		}
		buf = append(buf, b)
	}
}

// Normalize strips an absolute-reference prefix and substitutes the default
// document for the empty path. The result always begins with "/".
func Normalize(raw, defaultDocument string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, scheme) {
		slash := strings.Index(raw[len(scheme):], "/")
		if slash == -1 {
			raw = "/"
		} else {
			raw = raw[len(scheme)+slash:]
		}
	}
	if raw == "" || raw == "/" {
		return "/" + defaultDocument
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return raw
}
