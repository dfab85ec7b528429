package main

import (
	"context"
	"fmt"

	"github.com/jonathan/profile-images/internal/config"
	"github.com/jonathan/profile-images/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing GET /api/all?url=..., GET /api/history?url=..., GET /api and GET /health.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, fmt.Sprintf("Port to listen on (default %d, or PORT)", config.DefaultPort))
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(configPath, config.Config{Port: servePort})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rt, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}

	serverCfg := server.Config{
		Port:         cfg.Port,
		Extractor:    rt.scraper,
		HistoryLimit: cfg.HistoryLimit,
		OnShutdown:   rt.Close,
	}
	if rt.db != nil {
		serverCfg.History = rt.db
	}

	srv, err := server.New(serverCfg)
	if err != nil {
		rt.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
