// Command kegdb-server runs the Memcached-ASCII TCP front end over a
// kegdb data directory.
//
// Usage:
//
//	kegdb-server [--dir PATH] [--addr ADDR] [--size-limit BYTES]
//	             [--config FILE] [--sync] [--log-level LEVEL]
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iamNilotpal/kegdb/internal/engine"
	"github.com/iamNilotpal/kegdb/internal/server"
	"github.com/iamNilotpal/kegdb/pkg/logger"
	"github.com/iamNilotpal/kegdb/pkg/options"
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kegdb-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("kegdb-server", flag.ContinueOnError)

	dir := flagSet.String("dir", options.DefaultDataDir, "data directory")
	addr := flagSet.String("addr", options.DefaultAddr, "TCP listen address")
	sizeLimit := flagSet.Uint64("size-limit", options.DefaultSegmentSize, "segment rollover threshold, in bytes")
	configPath := flagSet.String("config", os.Getenv("KEGDB_CONFIG"), "path to a JSONC config file")
	sync := flagSet.Bool("sync", false, "fsync after every write")
	logLevel := flagSet.String("log-level", "info", "debug|info|warn|error")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	log, err := logger.New("kegdb-server", logger.Level(*logLevel))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	configOpts, err := options.LoadConfigFile(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags win over the config file: OptionFuncs for flags given on the
	// command line are applied last, after whatever the config file set.
	opts := append([]options.OptionFunc{options.WithDefaultOptions()}, configOpts...)
	if flagSet.Changed("dir") {
		opts = append(opts, options.WithDataDir(*dir))
	}
	if flagSet.Changed("addr") {
		opts = append(opts, options.WithAddr(*addr))
	}
	if flagSet.Changed("size-limit") {
		opts = append(opts, options.WithSegmentSize(*sizeLimit))
	}
	if flagSet.Changed("sync") {
		opts = append(opts, options.WithSyncOnWrite(*sync))
	}
	resolved := options.Apply(opts...)

	log.Infow("starting kegdb-server",
		"dataDir", resolved.DataDir, "addr", resolved.Addr,
		"segmentSize", resolved.SegmentOptions, "syncOnWrite", resolved.SyncOnWrite,
		"compactInterval", resolved.CompactInterval)

	eng, err := engine.New(&engine.Config{Options: &resolved, Logger: log})
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer eng.Close()

	srv, err := server.New(resolved.Addr, eng, log)
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve() }()

	select {
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Infow("shutting down", "signal", sig.String())
		if err := srv.Close(); err != nil {
			log.Warnw("error closing listener", "error", err)
		}
		<-serveErrCh
		return nil
	}
}
