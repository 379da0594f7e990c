// Package audio implements the audio command.
package audio

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/snapquote/internal/analysis"
	"github.com/tphakala/snapquote/internal/features"
	"github.com/tphakala/snapquote/internal/runtime"
)

type options struct {
	model       string
	featureType string
	sampleRate  string
	scaler      string
	threshold   string
}

// Command creates the audio command for classifying one audio file.
func Command(rt *runtime.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "audio <audio_file>",
		Short: "Classify an audio file as Normal, Anomalous or Uncertain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rt, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.model, "model", "", "Model file, resolved through the artifact search (default from config: "+analysis.DefaultAudioModel+")")
	cmd.Flags().StringVar(&opts.featureType, "feature-type", "", "Feature extraction type: mfcc or multiple (default from config)")
	cmd.Flags().StringVar(&opts.sampleRate, "sr", "", "Sample rate for audio loading (default from config: 16000)")
	cmd.Flags().StringVar(&opts.scaler, "scaler", "", "Path to scaler.json (auto-detected if not provided)")
	cmd.Flags().StringVar(&opts.threshold, "threshold", "", "Confidence threshold (0-1); predictions below it are Uncertain (default from config: 0.7)")

	return cmd
}

func run(cmd *cobra.Command, rt *runtime.Context, opts *options, input string) error {
	a := rt.Settings.Audio
	jobOpts := analysis.AudioOptions{
		Input:       input,
		Model:       a.Model,
		Scaler:      a.Scaler,
		FeatureType: a.FeatureType,
		SampleRate:  a.SampleRate,
		Threshold:   a.Threshold,
		MaxDuration: time.Duration(a.MaxDuration * float64(time.Second)),
		Threads:     a.Threads,
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		jobOpts.Model = opts.model
	}
	if flags.Changed("scaler") {
		jobOpts.Scaler = opts.scaler
	}
	if flags.Changed("feature-type") {
		if _, err := features.NewExtractor(opts.featureType); err != nil {
			runtime.WarnInvalidArgument("feature-type", opts.featureType, jobOpts.FeatureType, err)
		} else {
			jobOpts.FeatureType = opts.featureType
		}
	}
	if flags.Changed("sr") {
		jobOpts.SampleRate, _ = runtime.ParsePositiveInt("sr", opts.sampleRate, jobOpts.SampleRate)
	}
	if flags.Changed("threshold") {
		jobOpts.Threshold, _ = runtime.ParseProbability("threshold", opts.threshold, jobOpts.Threshold)
	}

	job := analysis.NewAudioJob(jobOpts, rt.Locator(), rt.InferenceMetrics())
	report, err := analysis.Execute(cmd.Context(), analysis.Job[analysis.AudioReport](job), rt.Dependencies())
	if err != nil {
		return &runtime.ExitError{Code: 1, Err: err}
	}
	return runtime.WriteJSON(cmd.OutOrStdout(), report)
}
