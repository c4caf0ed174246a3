package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/crateapp/crate-server/internal/config"
	"github.com/crateapp/crate-server/internal/di/providers"
	"github.com/crateapp/crate-server/internal/logger"
	"github.com/crateapp/crate-server/internal/search"
	"github.com/crateapp/crate-server/internal/service"
	"github.com/crateapp/crate-server/internal/store"
)

var (
	dataPath string
	storage  string
	logLevel string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:          "cratectl",
	Short:        "Crate library tools",
	Long:         "Import, inspect, search and enrich a Crate library stored under a data directory.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data-path", "d", "", "directory holding the library documents")
	rootCmd.PersistentFlags().StringVarP(&storage, "storage", "s", "", "storage backend (json, badger, sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show detailed output")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(enrichCmd)
}

// library is an opened library and everything that must be closed with it.
type library struct {
	*service.LibraryService
	gateway store.Gateway
	index   *search.TrackIndex
	cancel  context.CancelFunc
}

// openOptions selects the optional parts of a library.
type openOptions struct {
	// Enrich enables the enrichment chain built from the VirtualDJ path and
	// file-tag flag.
	Enrich       bool
	VDJDatabase  string
	ReadFileTags bool
}

// loadConfig resolves configuration the same way the server does, with the
// command-line flags given here taking precedence.
func loadConfig(opts openOptions) (*config.Config, error) {
	var args []string
	if dataPath != "" {
		args = append(args, "-data-path", dataPath)
	}
	if storage != "" {
		args = append(args, "-storage", storage)
	}
	if logLevel != "" {
		args = append(args, "-log-level", logLevel)
	}
	if opts.VDJDatabase != "" {
		args = append(args, "-vdj-database", opts.VDJDatabase)
	}
	args = append(args, "-read-file-tags", fmt.Sprint(opts.ReadFileTags))

	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openLibrary opens the configured gateway, loads the library into an
// in-memory full-text index and returns it ready for use.
func openLibrary(ctx context.Context, opts openOptions) (*library, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Writer:      os.Stderr,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	gateway, err := providers.OpenGateway(cfg, log.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	index, err := search.NewTrackIndex(search.Options{Logger: log.WithComponent("search")})
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	lib := &library{gateway: gateway, index: index, cancel: cancel}

	svcOpts := service.Options{
		Gateway: gateway,
		Index:   index,
		Logger:  log.WithComponent("library"),
	}
	if opts.Enrich {
		chain, err := providers.OpenEnrichers(watchCtx, cfg, log)
		if err != nil {
			lib.closeResources()
			return nil, err
		}
		if len(chain) > 0 {
			svcOpts.Enricher = chain
		}
	}

	lib.LibraryService = service.NewLibraryService(svcOpts)
	if _, err := lib.Load(ctx); err != nil {
		_ = lib.Close(ctx)
		return nil, fmt.Errorf("load library from %s: %w", cfg.Library.DataPath, err)
	}

	if verbose {
		stats := lib.Stats()
		fmt.Fprintf(os.Stderr, "Loaded %d tracks and %d nodes from %s (%s)\n",
			stats.Tracks, stats.Nodes, cfg.Library.DataPath, cfg.Storage.Backend)
	}
	return lib, nil
}

// Close drains pending writes and releases the store and index.
func (l *library) Close(ctx context.Context) error {
	var err error
	if l.LibraryService != nil {
		err = l.LibraryService.Close(ctx)
	}
	return errors.Join(err, l.closeResources())
}

func (l *library) closeResources() error {
	l.cancel()
	return errors.Join(l.index.Close(), l.gateway.Close())
}

// withLibrary runs fn on an opened library and closes it afterwards.
func withLibrary(cmd *cobra.Command, opts openOptions, fn func(ctx context.Context, lib *library) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	lib, err := openLibrary(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := lib.Close(context.Background()); cerr != nil && err == nil {
			err = fmt.Errorf("close library: %w", cerr)
		}
	}()

	return fn(ctx, lib)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
