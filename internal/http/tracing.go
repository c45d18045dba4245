package http

import (
	"context"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// traceStep wraps one stage of a request (extraction, persistence) in a span
// and tags it with the stage's error, if any.
func traceStep(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, ctx := tracer.StartSpanFromContext(ctx, name)
	err := fn(ctx)
	if err != nil {
		span.SetTag("error", err.Error())
	}
	span.Finish()
	return err
}
