package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/marketscout/internal/alert"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/pipeline"
	"github.com/ppiankov/marketscout/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scout every competitor listed in a file",
	Long: `Batch reads competitor names from a file (one per line, # comments,
duplicates ignored), scouts them concurrently and writes one JSON and one
Markdown report per competitor.

Example:
  marketscout batch competitors.txt
  marketscout batch competitors.txt --workers 8 --output-dir ./briefs`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./marketscout-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "max competitors scouted at once (default from config)")
	batchCmd.Flags().Uint64Var(&seed, "seed", 0, "simulation seed for reproducible demo data")
	batchCmd.Flags().DurationVar(&stageDelay, "stage-delay", -1, "pause between pipeline stages (default from config)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable search response cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	entities, err := worker.ReadEntitiesFromFile(file)
	if err != nil {
		return fmt.Errorf("read competitors: %w", err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("no competitors found in %s", file)
	}

	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Market Scout Batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Competitors:  %d\n", len(entities))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	if a.pipeline.Simulated() {
		fmt.Fprintf(os.Stderr, "  Mode:         simulated\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	briefs := a.orchestrator.RunEntities(ctx, entities, func(stage model.Stage) {
		fmt.Fprintf(os.Stderr, "⚙️  [%d/4] %s\n", int(stage)+1, stage)
	})
	fmt.Fprintf(os.Stderr, "\n")

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	emptyCount := 0
	alertCount := 0

	for i, brief := range briefs {
		alerts := alert.Analyze([]model.Brief{brief})
		alertCount += len(alerts)

		report := &model.Report{
			Query:       entities[i],
			GeneratedAt: time.Now(),
			Simulated:   a.pipeline.Simulated(),
			Briefs:      []model.Brief{brief},
			Alerts:      alerts,
		}

		slug := sanitizeFilename(entities[i])
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", brief.Company, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", brief.Company, err)
			continue
		}

		if !brief.HasInsight() {
			emptyCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", brief.Company, brief.Error)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (sentiment: %d%%, %s)\n", brief.Company, brief.Insight.Sentiment, brief.Insight.Status)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d competitors\n", len(briefs))
	fmt.Fprintf(os.Stderr, "  Insights:  %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Empty:     %d\n", emptyCount)
	fmt.Fprintf(os.Stderr, "  Alerts:    %d\n", alertCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename turns a competitor name into a safe file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	s = strings.Trim(s, ".-")

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "competitor"
	}
	return s
}
