// Package analysis runs one inference job end to end. A Job loads its
// artifacts and produces a report; Execute times it, records metrics and hands
// the outcome to the post-run actions (history, MQTT).
package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/snapquote/internal/datastore"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/observability/metrics"
)

// Summary is the part of a report persisted in the run history.
type Summary struct {
	Model          string
	ConfidenceUsed float64
	Passes         int
	FallbackUsed   bool
	Labels         []string
	QuoteTotal     int64  // zero when no quote was produced
	Currency       string // currency of QuoteTotal
}

// Report is implemented by every job result.
type Report interface {
	Summary() Summary
}

// Job is one kind of inference run. Prepare loads artifacts, Infer produces
// the report. Close is always called, even when Prepare fails.
type Job[R Report] interface {
	Kind() string
	Source() string
	Model() string
	Prepare(ctx context.Context) error
	Infer(ctx context.Context) (R, error)
	Close() error
}

// Publisher sends an emitted document under a run kind.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload []byte) error
}

// Dependencies are the process-wide collaborators of Execute. Nil fields
// disable the matching feature.
type Dependencies struct {
	Metrics   *metrics.InferenceMetrics
	Store     datastore.Interface
	Publisher Publisher
	Logger    logger.Logger
	Clock     func() time.Time
}

func (d Dependencies) logger() logger.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return GetLogger()
}

func (d Dependencies) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// actions returns the post-run actions enabled by d, in execution order.
func (d Dependencies) actions() []Action {
	var actions []Action
	if d.Store != nil {
		actions = append(actions, &DatabaseAction{Store: d.Store})
	}
	if d.Publisher != nil {
		actions = append(actions, &MqttAction{Publisher: d.Publisher})
	}
	return actions
}

// Execute runs job and returns its report. Post-run action failures are
// logged and never change the returned result or error.
func Execute[R Report](ctx context.Context, job Job[R], deps Dependencies) (R, error) {
	var zero R
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := deps.logger().WithContext(ctx).With(
		logger.String("kind", job.Kind()),
		logger.String("source", job.Source()))

	start := deps.now()
	report, err := run(ctx, job)
	elapsed := deps.now().Sub(start)

	if cerr := job.Close(); cerr != nil {
		log.Warn("failed to release job resources", logger.Error(cerr))
	}

	rec := &RunRecord{
		ID:      runID,
		Kind:    job.Kind(),
		Source:  job.Source(),
		Model:   job.Model(),
		Err:     err,
		Elapsed: elapsed,
	}
	if err == nil {
		rec.Summary = report.Summary()
		if rec.Summary.Model != "" {
			rec.Model = rec.Summary.Model
		}
		rec.Payload, err = json.Marshal(report)
		if err != nil {
			rec.Err = err
		}
	}

	if deps.Metrics != nil {
		deps.Metrics.RecordRun(job.Kind(), elapsed, rec.Err)
		if rec.Err == nil {
			deps.Metrics.RecordPasses(job.Kind(), rec.Summary.Passes, rec.Summary.FallbackUsed)
		}
	}

	for _, action := range deps.actions() {
		if aerr := action.Execute(ctx, rec); aerr != nil {
			log.Warn("post-run action failed",
				logger.String("action", action.GetDescription()),
				logger.Error(aerr))
		}
	}

	if rec.Err != nil {
		log.Debug("run failed", logger.Duration("elapsed", elapsed), logger.Error(rec.Err))
		return zero, rec.Err
	}
	log.Debug("run finished",
		logger.Duration("elapsed", elapsed),
		logger.Int("passes", rec.Summary.Passes))
	return report, nil
}

func run[R Report](ctx context.Context, job Job[R]) (R, error) {
	var zero R
	if err := job.Prepare(ctx); err != nil {
		return zero, err
	}
	return job.Infer(ctx)
}
