package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key holding the *newrelic.Application used
// to record counts, durations and events.
var NewRelicContextKey = newRelicContextKey{}

// NewContext returns a copy of ctx that records metrics and events to app.
// Method traces additionally require a transaction, see newrelic.NewContext.
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	return context.WithValue(ctx, NewRelicContextKey, app)
}
