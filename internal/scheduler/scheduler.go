// Package scheduler accepts connections on the retrieval and transfer
// endpoints and drives one session goroutine per connection. It owns the
// connection arena and the accept counters.
package scheduler

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gemctl/internal/observability"
	"github.com/danmuck/gemctl/internal/protocol/gemini"
	"github.com/danmuck/gemctl/internal/protocol/transfer"
	"github.com/danmuck/gemctl/internal/transport"
)

// Config holds the scheduler listen addresses and transport policy.
type Config struct {
	RetrievalAddr string
	TransferAddr  string
	Transport     transport.Config
}

func DefaultConfig() Config {
	return Config{
		RetrievalAddr: ":1965",
		TransferAddr:  ":1966",
		Transport:     transport.DefaultConfig(),
	}
}

// Scheduler runs both protocol endpoints over a shared arena and counter set.
type Scheduler struct {
	cfg       Config
	retrieval *gemini.Handler
	transfer  *transfer.Handler

	counters Counters
	arena    *arena
	sessions sync.WaitGroup

	retrievalLis net.Listener
	transferLis  net.Listener
}

func New(cfg Config, retrieval *gemini.Handler, xfer *transfer.Handler) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		retrieval: retrieval,
		transfer:  xfer,
		arena:     newArena(),
	}
}

// Listen binds both endpoints. Call before Serve so callers (and tests using
// ":0") can read the bound addresses.
func (s *Scheduler) Listen() error {
	if err := s.cfg.Transport.Validate(); err != nil {
		return err
	}
	lis, err := transport.Listen(s.cfg.RetrievalAddr, s.cfg.Transport)
	if err != nil {
		return err
	}
	s.retrievalLis = lis

	lis, err = transport.Listen(s.cfg.TransferAddr, s.cfg.Transport)
	if err != nil {
		_ = s.retrievalLis.Close()
		s.retrievalLis = nil
		return err
	}
	s.transferLis = lis
	return nil
}

// RetrievalAddr returns the bound retrieval address. Valid after Listen.
func (s *Scheduler) RetrievalAddr() string {
	if s.retrievalLis == nil {
		return s.cfg.RetrievalAddr
	}
	return s.retrievalLis.Addr().String()
}

// TransferAddr returns the bound transfer address. Valid after Listen.
func (s *Scheduler) TransferAddr() string {
	if s.transferLis == nil {
		return s.cfg.TransferAddr
	}
	return s.transferLis.Addr().String()
}

// Counters exposes the accept counters for the admin surface.
func (s *Scheduler) Counters() *Counters {
	return &s.counters
}

// ActiveConnections reports the number of live tracked connections.
func (s *Scheduler) ActiveConnections() int {
	return s.arena.len()
}

// Serve runs the accept loops until ctx is cancelled, then closes the
// listeners and every tracked connection and waits for session goroutines to
// unwind. A connection still mid-handshake is not yet in the arena; it
// unwinds on the handshake deadline before the wait completes.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.retrievalLis == nil || s.transferLis == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log.Info().
		Str("retrieval_addr", s.RetrievalAddr()).
		Str("transfer_addr", s.TransferAddr()).
		Str("security_mode", string(s.cfg.Transport.SecurityMode)).
		Msg("scheduler_serving")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.acceptLoop(RoleRetrieval, s.retrievalLis)
	}()
	go func() {
		defer wg.Done()
		s.acceptLoop(RoleTransfer, s.transferLis)
	}()

	<-ctx.Done()
	_ = s.retrievalLis.Close()
	_ = s.transferLis.Close()
	s.arena.closeAll()
	wg.Wait()
	s.sessions.Wait()
	log.Info().Msg("scheduler_stopped")
	return nil
}

func (s *Scheduler) acceptLoop(role Role, lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Str("role", role.String()).Err(err).Msg("accept_failed")
			time.Sleep(50 * time.Millisecond)
			continue
		}
		s.counters.RecordAccept(time.Now())
		observability.RecordConnectionAccepted(role.String())
		observability.RecordPeakConnRate(s.counters.Peak())
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.serveConn(role, conn)
		}()
	}
}

// serveConn completes the transport handshake, registers the connection in
// the arena, and runs the protocol session to completion.
func (s *Scheduler) serveConn(role Role, raw net.Conn) {
	peer := raw.RemoteAddr().String()
	conn, err := transport.Establish(raw, s.cfg.Transport)
	if err != nil {
		log.Warn().Str("role", role.String()).Str("peer", peer).Err(err).Msg("handshake_failed")
		_ = raw.Close()
		return
	}

	id := s.arena.add(role, conn, peer)
	defer s.arena.remove(id)

	switch role {
	case RoleRetrieval:
		s.retrieval.NewSession(conn, peer).Run()
	case RoleTransfer:
		s.transfer.NewSession(conn, peer).Run()
	}
}
