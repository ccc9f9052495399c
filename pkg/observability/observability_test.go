package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "fetch")
	EndSpan(span, nil)

	assert.NoError(t, shutdown(context.Background()))
}

func TestEnabledTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{
		Enabled:        true,
		ServiceName:    "spotify-dataset-test",
		ServiceVersion: "test",
		Writer:         &buf,
	})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "save", attribute.String("format", "csv"))
	_, child := StartSpan(ctx, "write")
	EndSpan(child, errors.New("disk full"))
	EndSpan(span, nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "save"`)
	assert.Contains(t, buf.String(), "disk full")
}
