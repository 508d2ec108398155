package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"companyresolver/browser"
	"companyresolver/resolver"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	batchInput  string
	batchOutput string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve a JSON list of businesses",
	Long: `Reads a JSON array of {"business_name", "city", "state", "website"} objects and
writes one result per input, in the same order. Requests are processed one at a
time with pauses between them.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "JSON file with the requests (required)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Where to write results (default stdout)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	reqs, err := loadRequests(batchInput)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	bar := progressbar.NewOptions(len(reqs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("resolving"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	runID := uuid.NewString()
	runner := resolver.NewBatchRunner(a.service, a.db, a.log)
	runner.OnResult = func(_ int, r resolver.Result) {
		bar.Describe(r.BusinessName)
		_ = bar.Add(1)
	}
	runner.OnPause = func(p browser.Pause, d time.Duration) {
		label := "pausing"
		if p == browser.PauseBetweenBatches {
			label = "resting between batches"
		}
		bar.Describe(fmt.Sprintf("%s for %s", label, d.Round(time.Second)))
	}

	results, runErr := runner.Run(ctx, runID, reqs)
	_ = bar.Finish()
	a.log.WithField("run", runID).Info("results stored")

	if err := writeResults(batchOutput, results); err != nil {
		return err
	}
	return runErr
}

func loadRequests(path string) ([]resolver.Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var reqs []resolver.Request
	if err := json.Unmarshal(b, &reqs); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	if len(reqs) == 0 {
		return nil, eris.Errorf("%s has no requests", path)
	}
	return reqs, nil
}

func writeResults(path string, results []resolver.Result) error {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(results), "write results")
}
