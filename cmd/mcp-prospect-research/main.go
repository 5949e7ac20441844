// Package main provides the entry point for the mcp-prospect-research server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-prospect-research/internal/server"
	"github.com/txn2/mcp-prospect-research/pkg/platform"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	logLevel    string
	showVersion bool

	// set records the flags given on the command line.
	set map[string]bool
}

func parseFlags(args []string) (serverOptions, error) {
	opts := serverOptions{set: make(map[string]bool)}
	fset := flag.NewFlagSet("mcp-prospect-research", flag.ContinueOnError)
	fset.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fset.StringVar(&opts.transport, "transport", platform.TransportStdio, "Transport type: stdio, http")
	fset.StringVar(&opts.address, "address", ":8080", "Server address for the http transport")
	fset.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fset.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fset.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing flags: %w", err)
	}
	fset.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// setupLogging installs a JSON handler on stderr; stdout carries the stdio
// transport.
func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadDotEnv loads .env from the working directory. A missing file is fine.
func loadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func createServer(opts serverOptions) (*platform.Platform, error) {
	var (
		p   *platform.Platform
		err error
	)
	if opts.configPath != "" {
		_, p, err = mcpserver.NewWithConfig(opts.configPath)
	} else {
		cfg := platform.DefaultConfig()
		applyFlagOverrides(cfg, opts)
		_, p, err = mcpserver.New(cfg)
	}
	return p, err
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("mcp-prospect-research version %s\n", mcpserver.Version)
		return nil
	}

	if err := setupLogging(os.Stderr, opts.logLevel); err != nil {
		return err
	}
	if err := loadDotEnv(); err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	p, err := createServer(opts)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("closing platform", "error", err)
		}
	}()

	applyFlagOverrides(p.Config(), opts)

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	return startServer(ctx, p, p.Config().Server)
}

// applyFlagOverrides lets explicitly given flags win over the config file.
func applyFlagOverrides(cfg *platform.Config, opts serverOptions) {
	if opts.set["transport"] {
		cfg.Server.Transport = opts.transport
	}
	if opts.set["address"] {
		cfg.Server.Address = opts.address
	}
}

func startServer(ctx context.Context, p *platform.Platform, cfg platform.ServerConfig) error {
	switch cfg.Transport {
	case platform.TransportStdio:
		slog.Info("serving MCP over stdio", "name", cfg.Name, "version", cfg.Version)
		return p.MCPServer().Run(ctx, &mcp.StdioTransport{})
	case platform.TransportHTTP:
		srv := &http.Server{
			Addr:              cfg.Address,
			Handler:           p.Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		slog.Info("serving MCP over streamable HTTP", "address", cfg.Address, "path", platform.RouteMCP)
		return serveHTTP(ctx, srv)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}

// serveHTTP runs srv until ctx is cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
