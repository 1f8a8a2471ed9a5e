// Package gemini implements the single-request retrieval protocol: one
// request line in, one status line plus optional body out, then close.
package gemini

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gemctl/internal/cache"
	"github.com/danmuck/gemctl/internal/mimetype"
	"github.com/danmuck/gemctl/internal/observability"
	"github.com/danmuck/gemctl/internal/sandbox"
)

// State tracks one retrieval conversation through its fixed lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingRequest
	StateDispatched
	StateClosed
)

// Config holds retrieval handler tunables.
type Config struct {
	DefaultDocument string
	DirListing      bool
	MaxRequestLen   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultDocument: "index.gmi",
		DirListing:      true,
		MaxRequestLen:   1024,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
	}
}

// Handler serves retrieval requests against one public root and shared cache.
type Handler struct {
	cfg      Config
	resolver *sandbox.Resolver
	store    *cache.Store
}

func NewHandler(cfg Config, resolver *sandbox.Resolver, store *cache.Store) *Handler {
	if cfg.MaxRequestLen <= 0 {
		cfg.MaxRequestLen = DefaultConfig().MaxRequestLen
	}
	if cfg.DefaultDocument == "" {
		cfg.DefaultDocument = DefaultConfig().DefaultDocument
	}
	return &Handler{cfg: cfg, resolver: resolver, store: store}
}

// Session is the per-connection state machine driven by the scheduler.
type Session struct {
	h     *Handler
	conn  net.Conn
	peer  string
	state State
}

func (h *Handler) NewSession(conn net.Conn, peer string) *Session {
	return &Session{h: h, conn: conn, peer: peer, state: StateIdle}
}

func (s *Session) State() State {
	return s.state
}

// Run serves exactly one request and closes the connection, whether or not
// the response fully drained.
func (s *Session) Run() {
	defer func() {
		s.state = StateClosed
		_ = s.conn.Close()
	}()

	cfg := s.h.cfg
	s.state = StateAwaitingRequest
	if cfg.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
	raw, err := ReadRequestLine(bufio.NewReader(s.conn), cfg.MaxRequestLen)
	if err != nil {
		s.logOutcome("", fmt.Sprintf("aborted (%v)", err))
		return
	}
	s.state = StateDispatched

	if cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	}
	request := Normalize(raw, cfg.DefaultDocument)
	status := s.h.dispatch(s.conn, request)
	s.logOutcome(request, status)
}

// dispatch resolves the normalized request and writes the single response,
// returning the status string for the access log.
func (h *Handler) dispatch(conn net.Conn, request string) string {
	resolved, err := h.resolver.Resolve(request)
	if err != nil {
		observability.RecordRetrievalResponse(StatusBadRequest)
		_ = WriteStatus(conn, StatusBadRequest, MetaBadRequest)
		return fmt.Sprintf("%d %s", StatusBadRequest, MetaBadRequest)
	}

	st, err := os.Stat(resolved)
	switch {
	case err == nil && st.IsDir():
		if h.cfg.DirListing {
			entries, rerr := os.ReadDir(resolved)
			if rerr == nil {
				observability.RecordRetrievalResponse(StatusSuccess)
				// Once the 20 status is on the wire this connection gets
				// no further status line; a body write failure just closes.
				if werr := h.writeListing(conn, request, entries); werr != nil {
					return "20 Directory Listing (aborted)"
				}
				return "20 Directory Listing"
			}
		}
		observability.RecordRetrievalResponse(StatusNotFound)
		_ = WriteStatus(conn, StatusNotFound, MetaNotFound)
		return fmt.Sprintf("%d %s", StatusNotFound, MetaNotFound)

	case err == nil:
		content, err := h.store.Get(resolved)
		if err != nil {
			observability.RecordRetrievalResponse(StatusNotFound)
			_ = WriteStatus(conn, StatusNotFound, MetaNotFound)
			return fmt.Sprintf("%d %s", StatusNotFound, MetaNotFound)
		}
		contentType := mimetype.ForName(resolved)
		observability.RecordRetrievalResponse(StatusSuccess)
		if err := WriteStatus(conn, StatusSuccess, contentType); err == nil {
			_, _ = conn.Write(content)
		}
		return fmt.Sprintf("%d %s", StatusSuccess, contentType)

	default:
		observability.RecordRetrievalResponse(StatusNotFound)
		_ = WriteStatus(conn, StatusNotFound, MetaNotFound)
		return fmt.Sprintf("%d %s", StatusNotFound, MetaNotFound)
	}
}

// writeListing emits a text/gemini page of navigable links, entries sorted
// lexicographically with a trailing separator on directory links.
func (h *Handler) writeListing(conn net.Conn, request string, entries []os.DirEntry) error {
	base := strings.TrimRight(request, "/")
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		link := base + "/" + e.Name()
		if e.IsDir() {
			link += "/"
		}
		lines = append(lines, fmt.Sprintf("=> %s %s", link, e.Name()))
	}
	if err := WriteStatus(conn, StatusSuccess, "text/gemini"); err != nil {
		return err
	}
	_, err := conn.Write([]byte(strings.Join(lines, "\n")))
	return err
}

func (s *Session) logOutcome(request, status string) {
	log.Info().
		Str("peer", s.peer).
		Str("request", request).
		Str("status", status).
		Msg("retrieval_request")
}
