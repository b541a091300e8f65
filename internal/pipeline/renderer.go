package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/marketscout/internal/model"
)

const footer = "_Generated by marketscout. Signals are derived from public search results and are not financial advice._\n"

// Renderer writes scout reports as JSON, Markdown and terminal summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown formats the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Market Scout: %s\n\n", report.Query)
	fmt.Fprintf(&sb, "Generated %s", report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if report.Simulated {
		sb.WriteString(" (simulated data)")
	}
	sb.WriteString("\n\n")

	for _, b := range report.Briefs {
		fmt.Fprintf(&sb, "## %s\n\n", b.Company)
		fmt.Fprintf(&sb, "_%s_\n\n", b.DateRange)

		if !b.HasInsight() {
			fmt.Fprintf(&sb, "> %s\n\n", b.Error)
			continue
		}

		in := b.Insight
		fmt.Fprintf(&sb, "**Sentiment:** %d%% (%s) | **Velocity:** %s\n\n", in.Sentiment, in.Status, in.Velocity)
		fmt.Fprintf(&sb, "**Signals:** %s\n\n", signalList(in.Signals))

		sb.WriteString("| | |\n|---|---|\n")
		fmt.Fprintf(&sb, "| Strength | %s |\n", in.SWOT.Strength)
		fmt.Fprintf(&sb, "| Weakness | %s |\n", in.SWOT.Weakness)
		fmt.Fprintf(&sb, "| Opportunity | %s |\n", in.SWOT.Opportunity)
		fmt.Fprintf(&sb, "| Threat | %s |\n\n", in.SWOT.Threat)

		sb.WriteString("### Evidence\n\n")
		for _, f := range b.Features {
			fmt.Fprintf(&sb, "- [%s](%s) (%s, %s, %s)\n", escapeBrackets(f.Title), f.URL, f.Source, f.Site, f.Date)
			if f.Description != "" {
				fmt.Fprintf(&sb, "  %s\n", f.Description)
			}
		}
		sb.WriteString("\n")
	}

	if len(report.Alerts) > 0 {
		sb.WriteString("## Alerts\n\n")
		for _, a := range report.Alerts {
			fmt.Fprintf(&sb, "- **%s** %s: %s\n", a.Type, a.Company, a.Message)
		}
		sb.WriteString("\n")
	}

	if r.includeFooter {
		sb.WriteString("---\n\n")
		sb.WriteString(footer)
	}

	return sb.String()
}

// RenderSummary prints a compact overview of the report to w
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	var buf bytes.Buffer

	stats := report.Stats()
	fmt.Fprintf(&buf, "\nMarket Scout: %s\n", report.Query)
	fmt.Fprintf(&buf, "Entities: %d  Insights: %d  Empty: %d  Features: %d\n\n",
		stats.Entities, stats.Insights, stats.Errors, stats.Features)

	for _, b := range report.Briefs {
		if !b.HasInsight() {
			fmt.Fprintf(&buf, "  %-20s %s\n", b.Company, b.Error)
			continue
		}
		fmt.Fprintf(&buf, "  %-20s %3d%% %-8s velocity %-6s signals %s\n",
			b.Company, b.Insight.Sentiment, b.Insight.Status, b.Insight.Velocity, signalList(b.Insight.Signals))
	}

	if len(report.Alerts) > 0 {
		buf.WriteString("\nAlerts:\n")
		for _, a := range report.Alerts {
			fmt.Fprintf(&buf, "  [%s] %s: %s\n", a.Type, a.Company, a.Message)
		}
	}

	_, _ = w.Write(buf.Bytes())
}

func signalList(s model.Signals) string {
	var parts []string
	if s.GitHub {
		parts = append(parts, "github")
	}
	if s.Hiring {
		parts = append(parts, "hiring")
	}
	if s.Releases {
		parts = append(parts, "releases")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func escapeBrackets(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
