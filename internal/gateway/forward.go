package gateway

import (
	"net/http"
	"strings"
)

// strippedHeaders are hop-by-hop or authentication-sensitive headers that
// never cross the gateway boundary.
var strippedHeaders = map[string]struct{}{
	"host":           {},
	"authorization":  {},
	"content-length": {},
}

// buildUpstreamURL joins a configured upstream base with the remaining
// request path, normalizing the slash between them, and re-attaches the
// original query string verbatim.
func buildUpstreamURL(upstream, subpath, rawQuery string) string {
	target := strings.TrimRight(upstream, "/") + "/" + strings.TrimLeft(subpath, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// forwardHeaders copies inbound headers, dropping the stripped set.
func forwardHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for name, values := range in {
		if _, drop := strippedHeaders[strings.ToLower(name)]; drop {
			continue
		}
		out[name] = values
	}
	return out
}

// flattenHeader collapses a response header to single values for the JSON
// proxy response body.
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name := range h {
		out[name] = h.Get(name)
	}
	return out
}
