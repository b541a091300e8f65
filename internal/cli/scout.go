package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/pipeline"
	"github.com/ppiankov/marketscout/internal/scout"
)

var (
	outJSON     string
	outMD       string
	webhookURL  string
	timeout     time.Duration
	workers     int
	seed        uint64
	stageDelay  time.Duration
	saveHistory bool
	noCache     bool
	noFooter    bool
	httpProxy   string
	httpsProxy  string
)

// scoutCmd represents the scout command
var scoutCmd = &cobra.Command{
	Use:   "scout <competitors>",
	Short: "Scout a comma-separated list of competitors",
	Long: `Scout builds a tactical brief for each competitor:
- Query general news, GitHub, social, hiring and release sources in parallel
- Keep only results that mention the competitor by name
- Derive sentiment, SWOT and velocity deterministically
- Raise CRITICAL, MOMENTUM and RELEASE alerts
- Optionally post the batch to a chat webhook

Example:
  marketscout scout "Acme, Globex"
  marketscout scout "Acme" --json acme.json --md acme.md
  marketscout scout "Acme, Globex" --webhook https://discord.com/api/webhooks/...`,
	Args: cobra.ExactArgs(1),
	RunE: runScout,
}

func init() {
	rootCmd.AddCommand(scoutCmd)

	scoutCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	scoutCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scoutCmd.Flags().StringVar(&webhookURL, "webhook", "", "webhook URL to notify (overrides notify.webhook_url)")
	scoutCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall scout timeout")
	scoutCmd.Flags().IntVar(&workers, "workers", 0, "max competitors scouted at once (default from config)")
	scoutCmd.Flags().Uint64Var(&seed, "seed", 0, "simulation seed for reproducible demo data")
	scoutCmd.Flags().DurationVar(&stageDelay, "stage-delay", -1, "pause between pipeline stages (default from config)")
	scoutCmd.Flags().BoolVar(&saveHistory, "history", false, "append the result to the local history file")
	scoutCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable search response cache")
	scoutCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	scoutCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	scoutCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyFlags overrides configuration with flags set on cmd
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") && workers > 0 {
		cfg.Concurrency.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("stage-delay") && stageDelay >= 0 {
		cfg.Pacing.StageDelay = stageDelay
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if flags.Changed("http-proxy") {
		cfg.Search.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.Search.HTTPSProxy = httpsProxy
	}
}

func runScout(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	destination := cfg.Notify.WebhookURL
	if webhookURL != "" {
		destination = webhookURL
	}

	if a.pipeline.Simulated() {
		fmt.Fprintf(os.Stderr, "⚠️  No search API key configured, using simulated data\n")
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scouting: %s\n", query)
		fmt.Fprintf(os.Stderr, "Workers: %d\n", cfg.Concurrency.Workers)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	report := a.service.Scout(ctx, scout.Request{
		Query:   query,
		Webhook: destination,
		Save:    saveHistory,
	}, func(stage model.Stage) {
		fmt.Fprintf(os.Stderr, "⚙️  [%d/4] %s\n", int(stage)+1, stage)
	})

	if len(report.Briefs) == 0 {
		return fmt.Errorf("no competitors in %q", query)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	renderer.RenderSummary(os.Stdout, report)

	if report.Notified != nil {
		if *report.Notified {
			fmt.Fprintf(os.Stderr, "✓ Webhook notified\n")
		} else {
			fmt.Fprintf(os.Stderr, "✗ Webhook delivery failed\n")
		}
	}

	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", outJSON)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", outMD)
	}

	return nil
}
