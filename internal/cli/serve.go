package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/marketscout/internal/api"
	"github.com/ppiankov/marketscout/internal/metrics"
)

var bindAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scout API over HTTP",
	Long: `Serve exposes scouting over HTTP:
  GET  /health
  GET  /metrics
  POST /api/v1/scout          {"query": "Acme, Globex", "webhook": "..."}
  GET  /api/v1/scout/stream?q=Acme,Globex   (server-sent progress events)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&bindAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if bindAddr != "" {
		cfg.Server.BindAddr = bindAddr
	}

	collector := metrics.NewCollector()
	a, err := newApp(cfg, collector)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if a.pipeline.Simulated() {
		fmt.Fprintf(os.Stderr, "⚠️  No search API key configured, serving simulated data\n")
	}

	server := api.NewServer(a.service, collector, cfg.Server, a.logger)
	return server.ListenAndServe(ctx)
}
