package main

import (
	"flag"
	"strings"

	"github.com/danmuck/gemctl/internal/config"
)

// cliOptions are the command-line overrides applied on top of the config
// file. Empty values leave the file/default value in place.
type cliOptions struct {
	configPath    string
	publicRoot    string
	retrievalAddr string
	transferAddr  string
	adminAddr     string
	cacheCapacity int
	securityMode  string
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("gemctl", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to gemctl.toml")
	fs.StringVar(&opts.publicRoot, "root", "", "public content root")
	fs.StringVar(&opts.retrievalAddr, "retrieval-addr", "", "retrieval listen address")
	fs.StringVar(&opts.transferAddr, "transfer-addr", "", "transfer listen address")
	fs.StringVar(&opts.adminAddr, "admin-addr", "", "admin HTTP listen address (empty disables)")
	fs.IntVar(&opts.cacheCapacity, "cache-capacity", -1, "content cache capacity (-1 keeps configured value)")
	fs.StringVar(&opts.securityMode, "security-mode", "", "transport security mode (development|production)")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

// resolveConfig loads the config file when given and layers the CLI
// overrides on top.
func resolveConfig(opts cliOptions) (config.DaemonConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.DaemonConfig{}, err
		}
		cfg = loaded
	}

	if v := strings.TrimSpace(opts.publicRoot); v != "" {
		cfg.PublicRoot = v
	}
	if v := strings.TrimSpace(opts.retrievalAddr); v != "" {
		cfg.RetrievalAddr = v
	}
	if v := strings.TrimSpace(opts.transferAddr); v != "" {
		cfg.TransferAddr = v
	}
	if v := strings.TrimSpace(opts.adminAddr); v != "" {
		cfg.AdminAddr = v
	}
	if opts.cacheCapacity >= 0 {
		cfg.Cache.Capacity = opts.cacheCapacity
	}
	if v := strings.TrimSpace(opts.securityMode); v != "" {
		cfg.Transport.SecurityMode = transportMode(v)
	}

	if err := config.Validate(cfg); err != nil {
		return config.DaemonConfig{}, err
	}
	return cfg, nil
}
