package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/snapquote/internal/datastore"
	"github.com/tphakala/snapquote/internal/errors"
)

// MQTTPublishTimeout bounds one publish, connect included.
const MQTTPublishTimeout = 10 * time.Second

// RunRecord is the outcome of one Execute call as seen by post-run actions.
type RunRecord struct {
	ID      string // run id, also used as the history primary key
	Kind    string
	Source  string
	Model   string
	Summary Summary
	Payload []byte // emitted JSON document, nil on failure
	Err     error
	Elapsed time.Duration
}

// Action is a step executed after every run.
type Action interface {
	Execute(ctx context.Context, rec *RunRecord) error
	GetDescription() string
}

// DatabaseAction stores the run, failed runs included, in the history store.
type DatabaseAction struct {
	Store datastore.Interface
}

// GetDescription implements Action.
func (a *DatabaseAction) GetDescription() string {
	return "Save run to history database"
}

// Execute implements Action.
func (a *DatabaseAction) Execute(_ context.Context, rec *RunRecord) error {
	run := datastore.NewRun(rec.Kind, rec.Source, rec.Model)
	if rec.ID != "" {
		run.ID = rec.ID
	}
	run.DurationMs = rec.Elapsed.Milliseconds()
	if rec.Err != nil {
		run.Status = datastore.StatusError
		run.Error = rec.Err.Error()
	} else {
		run.ConfidenceUsed = rec.Summary.ConfidenceUsed
		run.Passes = rec.Summary.Passes
		run.SetLabels(rec.Summary.Labels)
		run.QuoteTotal = rec.Summary.QuoteTotal
		run.Currency = rec.Summary.Currency
		run.Result = string(rec.Payload)
	}
	return a.Store.Save(run)
}

// MqttAction publishes the emitted document of successful runs.
type MqttAction struct {
	Publisher Publisher
	Timeout   time.Duration
}

// GetDescription implements Action.
func (a *MqttAction) GetDescription() string {
	return "Publish result to MQTT"
}

// Execute implements Action.
func (a *MqttAction) Execute(ctx context.Context, rec *RunRecord) error {
	if rec.Err != nil || rec.Payload == nil {
		return nil
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = MQTTPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.Publisher.Publish(ctx, rec.Kind, rec.Payload); err != nil {
		if errors.IsCategory(err, errors.CategoryMQTTConnection) || errors.IsCategory(err, errors.CategoryMQTTPublish) {
			return err
		}
		return errors.New(fmt.Errorf("publish %s result: %w", rec.Kind, err)).
			Component("analysis").
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	return nil
}
