package api

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func tracedClient(t *testing.T, fn roundTripFunc) (*Client, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	c := New("http://api.test", WithTracerProvider(tp), WithHTTPClient(&http.Client{Transport: fn}))
	return c, rec
}

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRequestsAreTraced(t *testing.T) {
	var recording bool
	c, rec := tracedClient(t, func(req *http.Request) (*http.Response, error) {
		recording = trace.SpanFromContext(req.Context()).IsRecording()
		return jsonResponse(200, `{"status":"Success","data":[]}`), nil
	})

	if _, err := c.ListActive(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !recording {
		t.Fatalf("request context carries no recording span")
	}

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	span := ended[0]
	if span.Name() != "api.list_active" {
		t.Fatalf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Unset {
		t.Fatalf("status = %v", span.Status())
	}
	if v, ok := attr(span, "http.response.status_code"); !ok || v.AsInt64() != 200 {
		t.Fatalf("status code attribute = %v %v", v, ok)
	}
	if v, ok := attr(span, "url.path"); !ok || v.AsString() != "/contacts/all" {
		t.Fatalf("path attribute = %v %v", v, ok)
	}
}

func TestFailedRequestMarksSpan(t *testing.T) {
	c, rec := tracedClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(500, `{"status":"Error","message":"Server error"}`), nil
	})

	if err := c.SoftDelete(context.Background(), 7); err == nil {
		t.Fatalf("expected error")
	}

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	span := ended[0]
	if span.Name() != "api.soft_delete" {
		t.Fatalf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Error || span.Status().Description == "" {
		t.Fatalf("status = %+v", span.Status())
	}
	var sawException bool
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	if !sawException {
		t.Fatalf("error not recorded on span: %+v", span.Events())
	}
}
