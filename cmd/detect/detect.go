// Package detect implements the detect command.
package detect

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/snapquote/internal/analysis"
	"github.com/tphakala/snapquote/internal/detection"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/inference"
	"github.com/tphakala/snapquote/internal/runtime"
)

// Exit codes of the detect command.
const (
	ExitInferenceError  = 1
	ExitWeightsNotFound = 2
	ExitSourceNotFound  = 3
)

type options struct {
	weights string
	conf    string
	quote   bool
	region  string
}

// Command creates the detect command for finding parts in one image.
func Command(rt *runtime.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "detect <source>",
		Short: "Detect parts in an image",
		Long: `Run the part detector on one image. When the first pass finds nothing a
second pass runs at the fallback threshold, unless --conf was given at or
below the skip floor.

With --quote the result carries a repair quote for the detected parts, priced
from the configured pricing table (quote.pricing) or the built-in one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rt, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.weights, "weights", "", "Path to detector weights (.tflite)")
	cmd.Flags().StringVar(&opts.conf, "conf", "0.25", "Initial confidence threshold; setting it forces the first pass threshold")
	cmd.Flags().BoolVar(&opts.quote, "quote", false, "Attach a repair cost quote for the detected parts")
	cmd.Flags().StringVar(&opts.region, "region", "", "Region for the quote price multiplier (default quote.region)")
	_ = cmd.MarkFlagRequired("weights")

	return cmd
}

func run(cmd *cobra.Command, rt *runtime.Context, opts *options, source string) error {
	s := rt.Settings.Detection
	policy := detection.RetryPolicy{
		Initial:   s.InitialConfidence,
		Fallback:  s.FallbackConfidence,
		SkipFloor: s.SkipFloor,
	}

	jobOpts := analysis.DetectOptions{
		Source:   source,
		Weights:  opts.weights,
		ClassMap: s.ClassMap,
		Policy:   policy,
		Detector: inference.DetectorOptions{
			Threads:   s.Threads,
			InputSize: s.InputSize,
			IoU:       s.IoU,
		},
	}
	if opts.quote {
		region := rt.Settings.Quote.Region
		if cmd.Flags().Changed("region") {
			region = opts.region
		}
		jobOpts.Quote = &analysis.QuoteOptions{
			Pricing: rt.Settings.Quote.Pricing,
			Region:  region,
		}
	}
	if cmd.Flags().Changed("conf") {
		if v, ok := runtime.ParseProbability("conf", opts.conf, policy.Initial); ok {
			jobOpts.Forced = &v
		}
	}

	job := analysis.NewDetectJob(jobOpts, rt.Locator(), rt.InferenceMetrics())
	report, err := analysis.Execute(cmd.Context(), analysis.Job[analysis.DetectReport](job), rt.Dependencies())
	if err != nil {
		return &runtime.ExitError{Code: exitCode(err), Err: err}
	}
	return runtime.WriteJSON(cmd.OutOrStdout(), report)
}

// exitCode distinguishes missing weights and missing source from inference
// failures.
func exitCode(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryArtifactNotFound):
		return ExitWeightsNotFound
	case errors.IsCategory(err, errors.CategoryInputNotFound):
		return ExitSourceNotFound
	default:
		return ExitInferenceError
	}
}
