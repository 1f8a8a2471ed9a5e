// sendctl is the transfer-protocol client: list, upload, and delete files on
// a running gemctl daemon.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/gemctl/internal/logging"
	"github.com/danmuck/gemctl/internal/protocol/transfer"
	"github.com/danmuck/gemctl/internal/transport"
)

const usage = `usage: sendctl [flags] <command> [args]

commands:
  list [subdir]          list files under the server's public root
  put <local> [remote]   upload a local file (remote name defaults to basename)
  delete <name>          delete a file from the public root

flags:
  -config path   sendctl.toml (addr, token, tls settings)
  -addr  host:port  transfer endpoint (overrides config)
  -token string     shared auth token (overrides config)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sendctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	logging.ConfigureRuntime()

	fs := flag.NewFlagSet("sendctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to sendctl.toml")
	addr := fs.String("addr", "", "transfer endpoint address")
	token := fs.String("token", "", "shared auth token")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultClientConfig()
	if *configPath != "" {
		loaded, err := loadClientConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Addr = v
	}
	if *token != "" {
		cfg.Token = *token
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	client, err := dial(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.Token != "" {
		if err := client.Auth(cfg.Token); err != nil {
			return err
		}
	}

	switch rest[0] {
	case "list":
		subdir := ""
		if len(rest) > 1 {
			subdir = rest[1]
		}
		lines, err := client.List(subdir)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil

	case "put":
		if len(rest) < 2 {
			return fmt.Errorf("put requires a local file")
		}
		local := rest[1]
		remote := filepath.Base(local)
		if len(rest) > 2 {
			remote = rest[2]
		}
		data, err := os.ReadFile(local)
		if err != nil {
			return err
		}
		if err := client.Put(remote, data); err != nil {
			return err
		}
		fmt.Printf("uploaded %s (%d bytes)\n", remote, len(data))
		return nil

	case "delete":
		if len(rest) < 2 {
			return fmt.Errorf("delete requires a file name")
		}
		if err := client.Delete(rest[1]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", rest[1])
		return nil

	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func dial(cfg clientConfig) (*transfer.Client, error) {
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		serverName := cfg.ServerName
		if serverName == "" {
			host, _, found := strings.Cut(cfg.Addr, ":")
			if found {
				serverName = host
			}
		}
		built, err := transport.ClientTLSConfig(cfg.TLS, serverName)
		if err != nil {
			return nil, err
		}
		tlsCfg = built
	}
	clientCfg := transfer.DefaultClientConfig()
	clientCfg.ChunkSize = cfg.ChunkSize
	return transfer.Dial(cfg.Addr, tlsCfg, clientCfg)
}
