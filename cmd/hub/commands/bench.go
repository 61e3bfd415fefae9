package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Benchmark modes.
const (
	BenchSingle = "single"
	BenchBulk   = "bulk"
)

// benchOptions are the flags shared by both benchmark modes.
type benchOptions struct {
	resource    string
	version     string
	criteria    string
	iterations  int
	pageSizes   []int
	concurrency int
	rps         float64
}

// BenchSample is one timed call.
type BenchSample struct {
	Label   string        `json:"label"             yaml:"label"`
	Elapsed time.Duration `json:"elapsed"           yaml:"elapsed"`
	Error   string        `json:"error,omitempty"   yaml:"error,omitempty"`
}

// BenchSummary aggregates the samples sharing a label.
type BenchSummary struct {
	Label   string        `json:"label"   yaml:"label"`
	Calls   int           `json:"calls"   yaml:"calls"`
	Failed  int           `json:"failed"  yaml:"failed"`
	Average time.Duration `json:"average" yaml:"average"`
	Min     time.Duration `json:"min"     yaml:"min"`
	Max     time.Duration `json:"max"     yaml:"max"`
}

// BenchReport is the output of a benchmark run.
type BenchReport struct {
	Mode      string         `json:"mode"                yaml:"mode"`
	Resource  string         `json:"resource"            yaml:"resource"`
	Criteria  string         `json:"criteria,omitempty"  yaml:"criteria,omitempty"`
	StartedAt time.Time      `json:"started_at"          yaml:"started_at"`
	Lookup    time.Duration  `json:"lookup,omitempty"    yaml:"lookup,omitempty"`
	Samples   []BenchSample  `json:"samples,omitempty"   yaml:"samples,omitempty"`
	Summary   []BenchSummary `json:"summary"             yaml:"summary"`
}

// NewBenchCommand creates the bench command.
func NewBenchCommand() *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench single|bulk RESOURCE",
		Short: "Measure hub response times",
		Long: `Measure hub response times.

single looks up a page of resources by criteria, then fetches each one by id.
bulk fetches pages of each --page-sizes size --iterations times.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.resource = args[1]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			var report *BenchReport

			switch args[0] {
			case BenchSingle:
				report, err = runSingleBench(cmd.Context(), client, opts)
			case BenchBulk:
				report, err = runBulkBench(cmd.Context(), client, opts)
			default:
				return fmt.Errorf("%w: %s", constants.ErrUnknownBenchMode, args[0])
			}

			if err != nil {
				return err
			}

			return writeOutput(report, func() error { return displayBenchReport(report) })
		},
	}

	cmd.Flags().StringVar(&opts.version, "version", "", "version media type to request")
	cmd.Flags().StringVar(&opts.criteria, "criteria", "", "JSON criteria used to select resources")
	cmd.Flags().IntVar(&opts.iterations, "iterations", constants.DefaultBenchIterations, "lookups (single) or repetitions per page size (bulk)")
	cmd.Flags().IntSliceVar(&opts.pageSizes, "page-sizes", []int{5, 10, 30, 50, 100, 500}, "page sizes for bulk")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 1, "concurrent requests for bulk")
	cmd.Flags().Float64Var(&opts.rps, "rate", 0, "maximum requests per second (0 is unlimited)")

	return cmd
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Limit(rps), 1)
}

func criteriaQuery(criteria string) *hub.Query {
	if criteria == "" {
		return nil
	}

	return hub.NewQuery("criteria", criteria)
}

// runSingleBench times a criteria lookup and then one Get per returned id.
func runSingleBench(ctx context.Context, client hub.ResourceClient, opts *benchOptions) (*BenchReport, error) {
	report := &BenchReport{Mode: BenchSingle, Resource: opts.resource, Criteria: opts.criteria, StartedAt: time.Now()}
	limiter := newLimiter(opts.rps)

	start := time.Now()

	envelope, err := client.GetAll(ctx, opts.resource, criteriaQuery(opts.criteria), 0, opts.iterations, opts.version)
	if err != nil {
		return nil, err
	}

	report.Lookup = time.Since(start)

	var found []struct {
		ID string `json:"id"`
	}

	err = json.Unmarshal([]byte(envelope.Data), &found)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hub.ErrMalformedResponse, err)
	}

	if len(found) == 0 {
		return nil, constants.ErrNoResourceIDs
	}

	for _, resource := range found {
		err = limiter.Wait(ctx)
		if err != nil {
			return nil, err
		}

		start = time.Now()
		_, err = client.Get(ctx, resource.ID, opts.resource, opts.version)

		sample := BenchSample{Label: resource.ID, Elapsed: time.Since(start)}
		if err != nil {
			sample.Error = err.Error()
		}

		report.Samples = append(report.Samples, sample)
	}

	report.Summary = []BenchSummary{summarize("get", report.Samples)}

	return report, nil
}

// runBulkBench times GetAll pages of each size through a batch executor.
func runBulkBench(ctx context.Context, client hub.ResourceClient, opts *benchOptions) (*BenchReport, error) {
	report := &BenchReport{Mode: BenchBulk, Resource: opts.resource, Criteria: opts.criteria, StartedAt: time.Now()}
	limiter := newLimiter(opts.rps)
	builder := hub.NewBatchBuilder()

	var labels []string

	for _, size := range opts.pageSizes {
		label := "limit=" + strconv.Itoa(size)

		for i := range opts.iterations {
			labels = append(labels, label)
			builder.AddOperation(hub.BatchOperation{
				ID: label + "#" + strconv.Itoa(i+1),
				Run: func(ctx context.Context, client hub.ResourceClient) (interface{}, error) {
					err := limiter.Wait(ctx)
					if err != nil {
						return nil, err
					}

					return client.GetAll(ctx, opts.resource, criteriaQuery(opts.criteria), 0, size, opts.version)
				},
			})
		}
	}

	results, err := hub.NewBatchExecutor(client, opts.concurrency).Execute(ctx, builder.Build())
	if err != nil {
		return nil, err
	}

	byLabel := map[string][]BenchSample{}

	for i, result := range results {
		sample := BenchSample{Label: labels[i], Elapsed: result.Duration}
		if result.Error != nil {
			sample.Error = result.Error.Error()
		}

		byLabel[labels[i]] = append(byLabel[labels[i]], sample)
	}

	for _, size := range opts.pageSizes {
		label := "limit=" + strconv.Itoa(size)
		if samples, ok := byLabel[label]; ok {
			report.Summary = append(report.Summary, summarize(label, samples))
			delete(byLabel, label)
		}
	}

	return report, nil
}

// summarize aggregates successful samples; failures are only counted.
func summarize(label string, samples []BenchSample) BenchSummary {
	summary := BenchSummary{Label: label, Calls: len(samples)}

	var total time.Duration

	for _, sample := range samples {
		if sample.Error != "" {
			summary.Failed++

			continue
		}

		total += sample.Elapsed

		if summary.Min == 0 || sample.Elapsed < summary.Min {
			summary.Min = sample.Elapsed
		}

		summary.Max = max(summary.Max, sample.Elapsed)
	}

	if succeeded := summary.Calls - summary.Failed; succeeded > 0 {
		summary.Average = total / time.Duration(succeeded)
	}

	return summary
}

func displayBenchReport(report *BenchReport) error {
	_, _ = fmt.Fprintf(os.Stdout, "Mode: %s, resource: %s, started: %s\n",
		report.Mode, report.Resource, report.StartedAt.Format(time.RFC3339))

	if report.Lookup > 0 {
		_, _ = fmt.Fprintf(os.Stdout, "Criteria lookup: %s\n", report.Lookup.Round(time.Millisecond))
	}

	if len(report.Samples) > 0 {
		samples := tablewriter.NewWriter(os.Stdout)
		samples.Header("ID", "Elapsed", "Error")

		for _, sample := range report.Samples {
			_ = samples.Append(sample.Label, sample.Elapsed.Round(time.Millisecond).String(), formatValue(sample.Error))
		}

		err := renderTable(samples)
		if err != nil {
			return err
		}
	}

	summary := tablewriter.NewWriter(os.Stdout)
	summary.Header("Call", "Calls", "Failed", "Average", "Min", "Max")

	for _, row := range report.Summary {
		_ = summary.Append(
			row.Label,
			strconv.Itoa(row.Calls),
			strconv.Itoa(row.Failed),
			row.Average.Round(time.Millisecond).String(),
			row.Min.Round(time.Millisecond).String(),
			row.Max.Round(time.Millisecond).String(),
		)
	}

	return renderTable(summary)
}
