package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daniela/profile-archiver/internal/config"
	"github.com/daniela/profile-archiver/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the POST /scrape endpoint for archiving profile pages.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	runner, cleanup, err := buildRunner(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer cleanup()

	srv := server.New(server.Config{
		Port:   cfg.Port,
		Runner: runner,
	})
	return srv.Start()
}
