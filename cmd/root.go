// Package cmd wires configuration, stores, engine and HTTP server into the
// imgstore binary.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentic-research/imgstore/internal/codec"
	"github.com/agentic-research/imgstore/internal/config"
	"github.com/agentic-research/imgstore/internal/engine"
	"github.com/agentic-research/imgstore/internal/server"
	"github.com/agentic-research/imgstore/internal/store"
)

var debug bool

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:           "imgstore",
	Short:         "Content-addressed image storage and transcoding service",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// .env is a convenience for local runs; the environment wins.
		_ = godotenv.Load()

		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}

		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

		meta, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open metadata store: %w", err)
		}
		defer func() { _ = meta.Close() }()

		if err := os.MkdirAll(cfg.ImagePath, 0o755); err != nil {
			return fmt.Errorf("create image directory: %w", err)
		}
		blobs := store.NewBlobs(osfs.New(cfg.ImagePath))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sweep := engine.NewSweeper(meta, blobs, log)
		go sweep.Run(ctx)

		eng := engine.New(meta, blobs, codec.New(0), sweep, cfg.ImageTTL, log)
		srv := server.New(eng, cfg.MaxImageSize, log)

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.BackendPort),
			Handler: srv.Router(),
		}

		log.Info().Uint16("port", cfg.BackendPort).Str("images", cfg.ImagePath).Msg("listening")

		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
