// Package transfer implements the persistent control protocol for listing,
// chunked upload, and deletion of files under the public root.
package transfer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gemctl/internal/auth"
	"github.com/danmuck/gemctl/internal/observability"
	"github.com/danmuck/gemctl/internal/sandbox"
)

// Config holds transfer handler tunables.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxLineLen   int
}

func DefaultConfig() Config {
	return Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Second,
		MaxLineLen:   1 << 20,
	}
}

// Handler serves transfer sessions against one public root. A nil validator
// disables authentication.
type Handler struct {
	cfg       Config
	resolver  *sandbox.Resolver
	validator auth.Validator
}

func NewHandler(cfg Config, resolver *sandbox.Resolver, validator auth.Validator) *Handler {
	if cfg.MaxLineLen <= 0 {
		cfg.MaxLineLen = DefaultConfig().MaxLineLen
	}
	return &Handler{cfg: cfg, resolver: resolver, validator: validator}
}

// scanCommandLines splits on bare newlines only. The stock line splitter
// also drops a trailing carriage return, which would corrupt chunk payloads
// ending in 0x0D; every payload byte except the terminator must survive.
func scanCommandLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Session is the per-connection transfer state machine. At most one
// UploadSession is active at a time; it is discarded on connection close.
type Session struct {
	h             *Handler
	conn          net.Conn
	peer          string
	authenticated bool
	upload        *UploadSession
}

func (h *Handler) NewSession(conn net.Conn, peer string) *Session {
	return &Session{h: h, conn: conn, peer: peer}
}

// Run processes line commands until the peer disconnects or an I/O failure
// ends the session. Partially uploaded chunk state is never flushed.
func (s *Session) Run() {
	defer func() {
		s.upload = nil
		_ = s.conn.Close()
	}()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 64*1024), s.h.cfg.MaxLineLen)
	scanner.Split(scanCommandLines)
	for {
		if s.h.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.h.cfg.ReadTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && err != io.EOF {
				log.Warn().Str("peer", s.peer).Err(err).Msg("transfer_session_ended")
			}
			return
		}
		cmd, err := Parse(scanner.Bytes())
		if err != nil {
			// Malformed lines are ignored to preserve forward progress.
			observability.RecordTransferCommand("UNKNOWN", "ignored")
			continue
		}
		if s.h.cfg.WriteTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
		}
		if err := s.handle(cmd); err != nil {
			log.Warn().Str("peer", s.peer).Err(err).Msg("transfer_write_failed")
			return
		}
	}
}

func (s *Session) handle(cmd Command) error {
	if s.h.validator != nil && !s.authenticated && requiresAuth(cmd.Kind) {
		s.logCommand(cmd, "unauthorized")
		return s.writeLine("ERROR unauthorized")
	}

	switch cmd.Kind {
	case KindAuth:
		return s.handleAuth(cmd)
	case KindList:
		return s.handleList(cmd)
	case KindUpload:
		s.upload = NewUploadSession(cmd.Name, cmd.Count)
		s.logCommand(cmd, "ok")
		return nil
	case KindSeq:
		outcome := "ignored"
		if s.upload != nil && s.upload.AddChunk(cmd.Index, cmd.Data) {
			outcome = "ok"
		}
		observability.RecordTransferCommand("SEQ", outcome)
		return nil
	case KindEnd:
		return s.handleEnd(cmd)
	case KindDelete:
		return s.handleDelete(cmd)
	default:
		return nil
	}
}

func requiresAuth(kind Kind) bool {
	switch kind {
	case KindUpload, KindSeq, KindEnd, KindDelete:
		return true
	default:
		return false
	}
}

func (s *Session) handleAuth(cmd Command) error {
	if s.h.validator == nil {
		s.logCommand(cmd, "ok")
		return s.writeLine("OK authenticated")
	}
	if err := s.h.validator.Validate(cmd.Token); err != nil {
		s.logCommand(cmd, "unauthorized")
		return s.writeLine("ERROR unauthorized")
	}
	s.authenticated = true
	s.logCommand(cmd, "ok")
	return s.writeLine("OK authenticated")
}

// handleList emits one tagged line per directory entry, lexicographically
// sorted. A per-entry stat failure becomes an unknown-type placeholder
// rather than aborting the listing.
func (s *Session) handleList(cmd Command) error {
	target := cmd.Subdir
	display := target
	if display == "" {
		display = "/"
	}
	resolved, err := s.h.resolver.Resolve(target)
	if err != nil {
		s.logCommand(cmd, "rejected")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", display))
	}
	st, err := os.Stat(resolved)
	if err != nil || !st.IsDir() {
		s.logCommand(cmd, "not_found")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", display))
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		s.logCommand(cmd, "not_found")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", display))
	}
	for _, e := range entries {
		switch info, err := e.Info(); {
		case err != nil:
			if werr := s.writeLine(fmt.Sprintf("<?> %s", e.Name())); werr != nil {
				return werr
			}
		case info.IsDir():
			if werr := s.writeLine(fmt.Sprintf("<DIR> %s", e.Name())); werr != nil {
				return werr
			}
		default:
			if werr := s.writeLine(fmt.Sprintf("%dB %s", info.Size(), e.Name())); werr != nil {
				return werr
			}
		}
	}
	s.logCommand(cmd, "ok")
	return nil
}

// handleEnd assembles the active upload in chunk-index order, gap-filling
// missing chunks with empty bytes, and writes the target file.
func (s *Session) handleEnd(cmd Command) error {
	if s.upload == nil || s.upload.Name != cmd.Name {
		s.logCommand(cmd, "not_found")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", cmd.Name))
	}
	resolved, err := s.h.resolver.Resolve(cmd.Name)
	if err != nil {
		s.upload = nil
		s.logCommand(cmd, "rejected")
		return s.writeLine(fmt.Sprintf("ERROR %s rejected", cmd.Name))
	}
	data := s.upload.Assemble()
	s.upload = nil
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		s.logCommand(cmd, "write_failed")
		return s.writeLine(fmt.Sprintf("ERROR %s write failed", cmd.Name))
	}
	s.logCommand(cmd, "ok")
	return s.writeLine(fmt.Sprintf("OK %s", cmd.Name))
}

func (s *Session) handleDelete(cmd Command) error {
	resolved, err := s.h.resolver.Resolve(cmd.Name)
	if err != nil {
		s.logCommand(cmd, "rejected")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", cmd.Name))
	}
	st, err := os.Stat(resolved)
	if err != nil || st.IsDir() {
		s.logCommand(cmd, "not_found")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", cmd.Name))
	}
	if err := os.Remove(resolved); err != nil {
		s.logCommand(cmd, "not_found")
		return s.writeLine(fmt.Sprintf("ERROR %s not found", cmd.Name))
	}
	s.logCommand(cmd, "ok")
	return s.writeLine(fmt.Sprintf("DELETED %s", cmd.Name))
}

func (s *Session) writeLine(line string) error {
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

func (s *Session) logCommand(cmd Command, outcome string) {
	observability.RecordTransferCommand(cmd.Kind.Verb(), outcome)
	log.Info().
		Str("peer", s.peer).
		Str("command", cmd.Kind.Verb()).
		Str("name", cmd.Name).
		Str("outcome", outcome).
		Msg("transfer_command")
}
