package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/avezina/roundup/internal/aggregate"
	"github.com/avezina/roundup/internal/config"
	"github.com/avezina/roundup/internal/privacy"
	"github.com/avezina/roundup/internal/report"
)

var outputPath string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch all configured sources and render the report",
	RunE:  reportAction,
}

func init() {
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the report to a file instead of stdout")
}

func reportAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	redactPatterns, err := privacy.Compile(cfg.General.Redact)
	if err != nil {
		return fmt.Errorf("compile redact patterns: %w", err)
	}

	entries := aggregate.Resolve(cfg.Clients)

	// Progress goes to stderr so the report on stdout stays clean.
	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Fetching"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := aggregate.Run(cmd.Context(), entries, aggregate.Options{
		Timeout: cfg.General.Timeout.Duration,
		OnDone:  func(string) { _ = bar.Add(1) },
	})
	_ = bar.Finish()

	limits := make(map[string]int, len(cfg.Clients))
	for _, entry := range cfg.Clients {
		limits[entry.Name] = cfg.BodyLimitFor(entry)
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	return report.Render(w, results, time.Now(), report.Options{
		BodyLimits: limits,
		Redact:     redactPatterns,
	})
}
