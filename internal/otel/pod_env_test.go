package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	corev1 "k8s.io/api/core/v1"
)

func TestPodEnv(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		var e propagation.TextMapCarrier = NewPodEnv()

		e.Set("traceparent", "00-abc-def-01")

		assert.Equal(t, "00-abc-def-01", e.Get("traceparent"))
		assert.Equal(t, []string{"traceparent"}, e.Keys())
	})

	t.Run("InjectionIgnoresEnviron", func(t *testing.T) {
		t.Setenv("TRACE_CARRIER_TRACEPARENT", "00-from-env-01")

		e := NewPodEnv()
		assert.Empty(t, e.Get("traceparent"))
		assert.Empty(t, e.Keys())
	})

	t.Run("FromEnviron", func(t *testing.T) {
		t.Setenv("TRACE_CARRIER_TRACEPARENT", "00-from-env-01")
		t.Setenv("TRACE_CARRIER_TRACESTATE", "vendor=1")

		e := FromEnviron()
		assert.Equal(t, "00-from-env-01", e.Get("traceparent"))
		assert.Subset(t, e.Keys(), []string{"traceparent", "tracestate"})
	})

	t.Run("EnvVarsOnlyRequestedFields", func(t *testing.T) {
		e := NewPodEnv()
		e.Set("traceparent", "00-abc-def-01")
		e.Set("baggage", "")
		e.Set("x-unrelated", "1")

		assert.Equal(t,
			[]corev1.EnvVar{{Name: "TRACE_CARRIER_TRACEPARENT", Value: "00-abc-def-01"}},
			e.EnvVars([]string{"tracestate", "traceparent", "baggage"}),
		)
	})
}

func TestInferencePodEnv(t *testing.T) {
	otel.SetTextMapPropagator(newPropagator())

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "submit")
	defer span.End()

	env := InferencePodEnv(ctx)
	require.Len(t, env, 1, "only traceparent is set without tracestate or baggage")
	assert.Equal(t, "TRACE_CARRIER_TRACEPARENT", env[0].Name)
	assert.Contains(t, env[0].Value, span.SpanContext().TraceID().String())

	t.Setenv(env[0].Name, env[0].Value)
	parent := trace.SpanContextFromContext(ParentContext(context.Background()))
	assert.True(t, parent.IsRemote())
	assert.Equal(t, span.SpanContext().TraceID(), parent.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), parent.SpanID())
}
