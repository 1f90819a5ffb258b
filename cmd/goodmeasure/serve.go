package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uabbasi/good-measure-giving/internal/catalog"
	"github.com/uabbasi/good-measure-giving/internal/config"
	"github.com/uabbasi/good-measure-giving/internal/llm"
	"github.com/uabbasi/good-measure-giving/internal/log"
	"github.com/uabbasi/good-measure-giving/internal/recap"
	"github.com/uabbasi/good-measure-giving/internal/server"
	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/store/postgres"
	"github.com/uabbasi/good-measure-giving/internal/store/sqlite"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP server: the public charity catalog API, authenticated
user giving data, static data files under /data, and the auth proxy.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := log.WithComponent("main")

	serverCfg, err := config.NewServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}

	// The watcher and the Gemini client live until the server stops.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	cat := catalog.New(serverCfg.DataDir)
	if err := cat.Load(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := cat.Watch(ctx); err != nil {
		// A broken watcher degrades to restart-to-reload; the server still works.
		logger.Warn().Err(err).Msg("catalog hot reload disabled")
	}

	var recapSvc *recap.Service
	if llmCfg := config.NewLLMConfig(); llmCfg.Enabled() {
		client, err := llm.NewGeminiClient(ctx, llmCfg.APIKey, llmCfg.Model)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		defer client.Close()
		recapSvc = recap.NewService(client)
		logger.Info().Str("model", llmCfg.Model).Msg("giving recap enabled")
	} else {
		logger.Info().Msg("no GEMINI_API_KEY, giving recap disabled")
	}

	srv, err := server.New(server.Config{
		Server:  serverCfg,
		Store:   st,
		Catalog: cat,
		Recap:   recapSvc,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// openStore connects the configured storage backend and makes sure its
// schema exists. The server takes ownership and closes it on shutdown.
func openStore(ctx context.Context) (store.Store, error) {
	cfg, err := config.NewStoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load store config: %w", err)
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
		return s, nil
	default:
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ensure sqlite schema: %w", err)
		}
		return s, nil
	}
}
