package observability

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
)

// NewHTTPClient returns an http.Client instrumented with an otelhttp
// transport and, for an https endpoint, an explicitly tuned HTTP/2
// transport — grounded on the reference client's practice of wrapping a
// base RoundTripper rather than relying on implicit protocol negotiation.
func NewHTTPClient(base *http.Client, endpointURL string) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if strings.HasPrefix(endpointURL, "https://") {
		if t, ok := rt.(*http.Transport); ok {
			if err := http2.ConfigureTransport(t); err == nil {
				rt = t
			}
		}
	}
	base.Transport = otelhttp.NewTransport(rt)
	return base
}

// WithHeaders wraps base so every outgoing request carries headers that
// aren't already set by the caller.
func WithHeaders(base *http.Client, headers map[string]string) *http.Client {
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	wrapped := *base
	wrapped.Transport = headerRoundTripper{next: rt, headers: headers}
	return &wrapped
}

type headerRoundTripper struct {
	next    http.RoundTripper
	headers map[string]string
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return h.next.RoundTrip(req)
}
