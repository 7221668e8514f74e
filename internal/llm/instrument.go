package llm

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abdulachik/storyteller/internal/observability"
)

type instrumented struct {
	next    Generator
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Instrument wraps g with a client span, Prometheus metrics and a debug log
// line per request. metrics may be nil.
func Instrument(g Generator, metrics *observability.Metrics) Generator {
	return &instrumented{
		next:    g,
		metrics: metrics,
		tracer:  observability.Tracer(),
	}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	provider := i.next.Name()
	ctx, span := i.tracer.Start(ctx, "llm."+req.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
			attribute.String("llm.op", req.Op),
			attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
			attribute.Int("llm.prompt_chars", len(req.Prompt)),
		),
	)
	defer span.End()

	start := time.Now()
	text, err := i.next.Generate(ctx, req)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	}

	if i.metrics != nil {
		i.metrics.LLMRequests.WithLabelValues(provider, req.Op, status).Inc()
		i.metrics.LLMRequestDuration.WithLabelValues(provider, req.Op).Observe(elapsed.Seconds())
	}

	slog.Debug("llm request",
		"provider", provider,
		"op", req.Op,
		"status", status,
		"duration", elapsed,
		"response_chars", len(text),
	)

	return text, err
}
