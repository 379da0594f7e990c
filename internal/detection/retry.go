package detection

import (
	"context"
	"time"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

const (
	DefaultInitialConfidence  = 0.25
	DefaultFallbackConfidence = 0.05
	// DefaultSkipFloor makes a forced threshold equal to the fallback skip the
	// second pass. Setting 0.06 also skips it for thresholds just above.
	DefaultSkipFloor = DefaultFallbackConfidence
)

// RetryPolicy holds the thresholds of the two-pass policy.
type RetryPolicy struct {
	Initial   float64 // first pass when the caller forces nothing
	Fallback  float64 // second pass threshold
	SkipFloor float64 // forced thresholds at or below this never trigger a second pass
}

// DefaultRetryPolicy returns the 0.25 / 0.05 policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Initial:   DefaultInitialConfidence,
		Fallback:  DefaultFallbackConfidence,
		SkipFloor: DefaultSkipFloor,
	}
}

// Pass records one executed detector call.
type Pass struct {
	Threshold  float64       `json:"threshold"`
	Detections int           `json:"detections"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Outcome is the effective result of a retry run.
type Outcome struct {
	Detections     []RawDetection
	ConfidenceUsed float64
	Passes         []Pass
	FallbackUsed   bool
}

// RetryController drives at most two detector passes.
type RetryController struct {
	Scorer Scorer
	Policy RetryPolicy
	Clock  func() time.Time
	Logger logger.Logger
}

// NewRetryController returns a controller using the wall clock.
func NewRetryController(scorer Scorer, policy RetryPolicy) *RetryController {
	return &RetryController{Scorer: scorer, Policy: policy}
}

// Run executes pass 1 at forced (when non-nil) or the initial threshold. When
// pass 1 finds nothing and either no threshold was forced or the forced value
// lies above SkipFloor, pass 2 runs at the fallback threshold and replaces
// pass 1 completely. Scorer errors end the run.
func (rc *RetryController) Run(ctx context.Context, source string, forced *float64) (Outcome, error) {
	log := rc.getLogger()

	first := rc.Policy.Initial
	if forced != nil {
		first = *forced
	}

	dets, pass, err := rc.pass(ctx, source, first)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Detections: dets, ConfidenceUsed: first, Passes: []Pass{pass}}
	log.Debug("first pass finished",
		logger.Float64("conf", first),
		logger.Int("detections", pass.Detections),
		logger.Duration("elapsed", pass.Elapsed))

	if len(dets) > 0 || !rc.shouldRetry(forced, first) {
		return out, nil
	}

	dets, pass, err = rc.pass(ctx, source, rc.Policy.Fallback)
	if err != nil {
		return Outcome{}, err
	}
	log.Debug("fallback pass finished",
		logger.Float64("conf", rc.Policy.Fallback),
		logger.Int("detections", pass.Detections),
		logger.Duration("elapsed", pass.Elapsed))

	out.Detections = dets
	out.ConfidenceUsed = rc.Policy.Fallback
	out.Passes = append(out.Passes, pass)
	out.FallbackUsed = true
	return out, nil
}

func (rc *RetryController) shouldRetry(forced *float64, first float64) bool {
	return forced == nil || first > rc.Policy.SkipFloor
}

func (rc *RetryController) pass(ctx context.Context, source string, threshold float64) ([]RawDetection, Pass, error) {
	now := rc.Clock
	if now == nil {
		now = time.Now
	}

	start := now()
	dets, err := rc.Scorer.Detect(ctx, source, threshold)
	elapsed := now().Sub(start)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryScorerFailure) {
			return nil, Pass{}, err
		}
		return nil, Pass{}, errors.New(err).
			Category(errors.CategoryScorerFailure).
			Context("threshold", threshold).
			Timing("detect", elapsed).
			Build()
	}
	return dets, Pass{Threshold: threshold, Detections: len(dets), Elapsed: elapsed}, nil
}

func (rc *RetryController) getLogger() logger.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return GetLogger()
}
