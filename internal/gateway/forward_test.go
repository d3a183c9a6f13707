package gateway

import (
	"net/http"
	"testing"
)

func TestBuildUpstreamURL(t *testing.T) {
	tests := []struct {
		upstream, subpath, query string
		want                     string
	}{
		{"http://svc.internal/api", "", "", "http://svc.internal/api/"},
		{"http://svc.internal/api/", "v2/items", "", "http://svc.internal/api/v2/items"},
		{"http://svc.internal/api", "/v2/items", "", "http://svc.internal/api/v2/items"},
		{"http://svc.internal/api/", "/v2/items", "", "http://svc.internal/api/v2/items"},
		{"http://svc.internal/api", "v2/items", "q=1&page=2", "http://svc.internal/api/v2/items?q=1&page=2"},
	}
	for _, tt := range tests {
		got := buildUpstreamURL(tt.upstream, tt.subpath, tt.query)
		if got != tt.want {
			t.Errorf("buildUpstreamURL(%q, %q, %q) = %q, want %q",
				tt.upstream, tt.subpath, tt.query, got, tt.want)
		}
	}
}

func TestForwardHeaders_StripsSensitive(t *testing.T) {
	in := http.Header{
		"Authorization":  {"Bearer tok-1"},
		"Host":           {"gateway.local"},
		"Content-Length": {"42"},
		"Content-Type":   {"application/json"},
		"X-Custom":       {"a", "b"},
	}

	out := forwardHeaders(in)

	for _, name := range []string{"Authorization", "Host", "Content-Length"} {
		if _, ok := out[name]; ok {
			t.Errorf("%s must not cross the gateway boundary", name)
		}
	}
	if out.Get("Content-Type") != "application/json" {
		t.Error("Content-Type should pass through")
	}
	if got := out["X-Custom"]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("X-Custom = %v, want [a b]", got)
	}
}

func TestFlattenHeader(t *testing.T) {
	h := http.Header{
		"Content-Type": {"text/plain"},
		"X-Multi":      {"first", "second"},
	}
	got := flattenHeader(h)
	if got["Content-Type"] != "text/plain" {
		t.Errorf("Content-Type = %q", got["Content-Type"])
	}
	if got["X-Multi"] != "first" {
		t.Errorf("X-Multi = %q, want first value only", got["X-Multi"])
	}
}

func TestPreview_Bounded(t *testing.T) {
	long := make([]byte, previewLimit+500)
	for i := range long {
		long[i] = 'x'
	}
	if got := preview(long); len(got) != previewLimit {
		t.Errorf("len(preview) = %d, want %d", len(got), previewLimit)
	}
	if got := preview([]byte("short")); got != "short" {
		t.Errorf("preview(short) = %q", got)
	}
}
