package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExporter(t *testing.T) {
	tests := []struct {
		raw     string
		want    Exporter
		wantErr bool
	}{
		{raw: "", want: ExporterNone},
		{raw: "none", want: ExporterNone},
		{raw: " Stdout ", want: ExporterStdout},
		{raw: "OTLP", want: ExporterOTLP},
		{raw: "jaeger", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseExporter(tt.raw)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrUnknownExporter)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestSetup_None(t *testing.T) {
	provider, shutdown, err := Setup(context.Background(), Config{Exporter: ExporterNone}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)

	_, span := provider.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_StdoutFlushesOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	provider, shutdown, err := Setup(context.Background(), Config{
		Exporter: ExporterStdout,
		Version:  "1.0.0",
		Writer:   &buf,
	}, nil)
	require.NoError(t, err)

	_, span := provider.Tracer("test").Start(context.Background(), "Orders.CreateOrder")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "Orders.CreateOrder")
	assert.Contains(t, buf.String(), ServiceName)
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, _, err := Setup(context.Background(), Config{Exporter: "zipkin"}, nil)
	require.ErrorIs(t, err, ErrUnknownExporter)
}
