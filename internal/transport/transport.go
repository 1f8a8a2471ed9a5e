// Package transport supplies the secure-session boundary: listeners whose
// accepted connections are ordered, optionally encrypted byte streams. The
// protocol handlers never look beneath this abstraction.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

var (
	ErrInvalidSecurityMode = errors.New("transport: invalid security mode")
	ErrTLSRequired         = errors.New("transport: production mode requires tls")
)

// TLSConfig holds secure-session credentials produced by the external
// certificate loader.
type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	CAFile   string `toml:"ca_file"`
	Mutual   bool   `toml:"mutual"`
}

// Config is the transport policy for one daemon.
type Config struct {
	SecurityMode     SecurityMode  `toml:"security_mode"`
	HandshakeTimeout time.Duration `toml:"-"`
	TLS              TLSConfig     `toml:"tls"`
}

func DefaultConfig() Config {
	return Config{
		SecurityMode:     SecurityModeDevelopment,
		HandshakeTimeout: 5 * time.Second,
	}
}

func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	if strings.TrimSpace(string(mode)) == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(strings.ToLower(strings.TrimSpace(string(mode))))
}

// Validate enforces the server transport policy: production refuses to run
// without TLS credentials.
func (c Config) Validate() error {
	mode := NormalizeSecurityMode(c.SecurityMode)
	switch mode {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecurityMode, c.SecurityMode)
	}
	if mode == SecurityModeProduction && !c.TLS.Enabled {
		return ErrTLSRequired
	}
	return nil
}

// Listen opens a TCP or TLS listener according to the transport policy.
func Listen(addr string, cfg Config) (net.Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.TLS.Enabled {
		return net.Listen("tcp", strings.TrimSpace(addr))
	}
	tlsCfg, err := ServerTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	return tls.Listen("tcp", strings.TrimSpace(addr), tlsCfg)
}

// Establish completes the secure-session setup on one accepted connection
// before any protocol byte is read. For TLS this forces the handshake under a
// deadline; for plain TCP it is a no-op.
func Establish(conn net.Conn, cfg Config) (net.Conn, error) {
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return conn, nil
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().HandshakeTimeout
	}
	_ = tlsConn.SetDeadline(time.Now().Add(timeout))
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	_ = tlsConn.SetDeadline(time.Time{})
	return tlsConn, nil
}

// ServerTLSConfig builds the listener-side TLS configuration from loaded
// credentials, requiring client certificates when mutual auth is on.
func ServerTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	out := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
	}
	if cfg.Mutual {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("transport: parse tls ca bundle: %s", cfg.CAFile)
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}

// ClientTLSConfig builds the dialer-side TLS configuration trusting the given
// CA bundle, with an optional client certificate for mutual auth.
func ClientTLSConfig(cfg TLSConfig, serverName string) (*tls.Config, error) {
	caPEM, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caPEM); !ok {
		return nil, fmt.Errorf("transport: parse tls ca bundle: %s", cfg.CAFile)
	}
	out := &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    pool,
		ServerName: serverName,
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}
