package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewClient_DefaultTimeout(t *testing.T) {
	client := NewClient("openai", 0)
	assert.Equal(t, defaultClientTimeout, client.Timeout)
	require.NotNil(t, client.Transport)
	assert.Nil(t, BaseTransport(client), "transport is wrapped by otelhttp")
}

func TestNewClient_UsesShortTimeoutAsProvided(t *testing.T) {
	want := 1500 * time.Millisecond
	client := NewClient("serpapi", want)
	assert.Equal(t, want, client.Timeout)
}

func TestNewClient_EmitsClientSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient("upstash", time.Second)
	resp, err := client.Get(srv.URL + "/query")
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := exp.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "upstash GET /query", spans[0].Name)
}
