package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewResource(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		res, err := newResource(context.Background(), "batcheval")
		require.NoError(t, err)

		name, ok := res.Set().Value(attribute.Key("service.name"))
		require.True(t, ok)
		assert.Equal(t, "batcheval", name.AsString())

		namespace, ok := res.Set().Value(attribute.Key("service.namespace"))
		require.True(t, ok)
		assert.Equal(t, ServiceNamespace, namespace.AsString())
	})

	t.Run("InferencePodOverride", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "batcheval-inference")

		res, err := newResource(context.Background(), "batcheval")
		require.NoError(t, err)

		name, ok := res.Set().Value(attribute.Key("service.name"))
		require.True(t, ok)
		assert.Equal(t, "batcheval-inference", name.AsString())
	})
}

func TestSetupOTelSDK(t *testing.T) {
	shutdown, err := SetupOTelSDK(context.Background(), "batcheval", false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
	assert.NoError(t, shutdown(context.Background()))
}
