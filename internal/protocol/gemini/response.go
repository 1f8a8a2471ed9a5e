package gemini

import (
	"fmt"
	"io"
)

// Retrieval status codes on the wire.
const (
	StatusSuccess    = 20
	StatusNotFound   = 51
	StatusBadRequest = 59
)

const (
	MetaNotFound   = "Not Found"
	MetaBadRequest = "Bad Request"
)

// WriteStatus emits the single `<code> <meta>\r\n` response header.
func WriteStatus(w io.Writer, code int, meta string) error {
	_, err := fmt.Fprintf(w, "%d %s\r\n", code, meta)
	return err
}
