package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_None(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Exporter: ExporterNone})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	p, err := NewProvider(context.Background(), Config{
		Exporter:    ExporterStdout,
		SampleRatio: 1,
		Version:     "test",
		Writer:      &buf,
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := otel.Tracer("test").Start(context.Background(), "corpus.read")
	assert.True(t, span.IsRecording())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"corpus.read"`)
	assert.Contains(t, buf.String(), ServiceName)
}

func TestNewProvider_ZeroRatioDropsRootSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	p, err := NewProvider(context.Background(), Config{Exporter: ExporterStdout, Writer: &buf})
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
}
