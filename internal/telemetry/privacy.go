package telemetry

import (
	"github.com/getsentry/sentry-go"

	"github.com/tphakala/snapquote/internal/privacy"
)

// privacyContexts are SDK-populated contexts that can identify the machine.
var privacyContexts = []string{"device", "culture", "trace"}

// beforeSend strips host-identifying data from every outgoing event.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil {
		return nil
	}

	event.ServerName = ""
	event.User = sentry.User{}
	event.Request = nil

	for _, key := range privacyContexts {
		delete(event.Contexts, key)
	}
	delete(event.Tags, "server_name")

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	return event
}
