package scheduler

import (
	"net"
	"sync"
	"time"
)

// Role distinguishes which protocol a connection was accepted for.
type Role int

const (
	RoleRetrieval Role = iota
	RoleTransfer
)

func (r Role) String() string {
	switch r {
	case RoleRetrieval:
		return "retrieval"
	case RoleTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// connRecord is one live connection tracked by the arena.
type connRecord struct {
	id         uint64
	role       Role
	conn       net.Conn
	peer       string
	acceptedAt time.Time
}

// arena owns the set of live connections so shutdown can close them all.
// Records keep stable ids for the lifetime of the connection.
type arena struct {
	mu     sync.Mutex
	nextID uint64
	conns  map[uint64]*connRecord
}

func newArena() *arena {
	return &arena{conns: make(map[uint64]*connRecord)}
}

func (a *arena) add(role Role, conn net.Conn, peer string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.conns[id] = &connRecord{
		id:         id,
		role:       role,
		conn:       conn,
		peer:       peer,
		acceptedAt: time.Now(),
	}
	return id
}

func (a *arena) remove(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conns, id)
}

func (a *arena) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// closeAll force-closes every tracked connection. Session goroutines observe
// the close as a read error and unwind on their own.
func (a *arena) closeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rec := range a.conns {
		_ = rec.conn.Close()
	}
}
