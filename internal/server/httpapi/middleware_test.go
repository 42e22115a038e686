package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/buildbio/internal/server/observability"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracing_SpanPathSurvivesLaterRequests(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(t.Context())
	})

	app := newTestApp(testConfig(), ratelimit.NewMemoryStore(0, 0), Services{Public: fakePublic{}})
	paths := []string{"/healthz", "/media/avatars/" + alice + "/me.png", "/media/vehicles/v1/hero.jpg"}
	for _, p := range paths {
		do(t, app, httptest.NewRequest("GET", p, nil))
	}

	var spans []sdktrace.ReadOnlySpan
	for _, span := range rec.Ended() {
		if strings.HasPrefix(span.Name(), "GET ") {
			spans = append(spans, span)
		}
	}
	require.Len(t, spans, len(paths))
	for i, span := range spans {
		assert.Equal(t, "GET "+paths[i], span.Name())
		assert.Contains(t, span.Attributes(), attribute.String("http.path", paths[i]))
	}
}
