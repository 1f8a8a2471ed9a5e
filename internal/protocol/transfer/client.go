package transfer

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

var ErrRejected = errors.New("transfer: server rejected command")

// ClientConfig holds dial and I/O tunables for the transfer client.
type ClientConfig struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ChunkSize    int
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:  10 * time.Second,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ChunkSize:    32 * 1024,
	}
}

// Client drives one transfer session over a single connection.
type Client struct {
	cfg    ClientConfig
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to a transfer endpoint. A non-nil tlsCfg upgrades the
// connection before any protocol bytes are exchanged.
func Dial(addr string, tlsCfg *tls.Config, cfg ClientConfig) (*Client, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultClientConfig().ChunkSize
	}
	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("transfer: dial %s: %w", addr, err)
	}
	if tlsCfg != nil {
		tc := tls.Client(conn, tlsCfg)
		if err := tc.Handshake(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("transfer: tls handshake: %w", err)
		}
		conn = tc
	}
	return &Client{cfg: cfg, conn: conn, reader: bufio.NewReader(conn)}, nil
}

// NewClient wraps an already-established connection, for tests and callers
// that manage their own dialing.
func NewClient(conn net.Conn, cfg ClientConfig) *Client {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultClientConfig().ChunkSize
	}
	return &Client{cfg: cfg, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Auth presents the shared token and waits for the server verdict.
func (c *Client) Auth(token string) error {
	if err := c.writeLine("AUTH " + token); err != nil {
		return err
	}
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(line, "OK") {
		return fmt.Errorf("%w: %s", ErrRejected, line)
	}
	return nil
}

// List fetches the directory listing for subdir ("" for the root). Listing
// lines are collected until the read deadline lapses; the protocol carries
// no terminator for listings.
func (c *Client) List(subdir string) ([]string, error) {
	cmd := "LIST"
	if subdir != "" {
		cmd += " " + subdir
	}
	if err := c.writeLine(cmd); err != nil {
		return nil, err
	}

	var lines []string
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		line, err := c.reader.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimRight(line, "\n")
			if strings.HasPrefix(trimmed, "ERROR") {
				return nil, fmt.Errorf("%w: %s", ErrRejected, trimmed)
			}
			lines = append(lines, trimmed)
		}
		if err != nil {
			break
		}
	}
	_ = c.conn.SetReadDeadline(time.Time{})
	return lines, nil
}

// Put uploads data as name, splitting it into fixed-size chunks and waiting
// for the final OK acknowledgement.
func (c *Client) Put(name string, data []byte) error {
	count := (len(data) + c.cfg.ChunkSize - 1) / c.cfg.ChunkSize
	if err := c.writeLine(fmt.Sprintf("UPLOAD %s %d", name, count)); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		start := i * c.cfg.ChunkSize
		end := start + c.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := c.writeLine(fmt.Sprintf("SEQ%d|%s", i, data[start:end])); err != nil {
			return err
		}
	}
	if err := c.writeLine("END " + name); err != nil {
		return err
	}
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(line, "OK") {
		return fmt.Errorf("%w: %s", ErrRejected, line)
	}
	return nil
}

// Delete removes name from the server's public root.
func (c *Client) Delete(name string) error {
	if err := c.writeLine("DELETE " + name); err != nil {
		return err
	}
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(line, "DELETED") {
		return fmt.Errorf("%w: %s", ErrRejected, line)
	}
	return nil
}

func (c *Client) writeLine(line string) error {
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *Client) readLine() (string, error) {
	if c.cfg.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\n"), nil
}
