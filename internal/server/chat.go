// Reverse proxy from /api/chat to the question-answering service
package server

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nainya/redlist/internal/logger"
	"github.com/nainya/redlist/internal/metrics"
	"github.com/nainya/redlist/pkg/jsonx"
)

const (
	chatPrefix       = "/api/chat"
	chatUpstreamPath = "/chat"
)

// newChatProxy forwards chat requests unchanged apart from the path, which
// has its /api/chat prefix replaced by /chat under the upstream base URL.
func newChatProxy(upstream string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid chat upstream %q: %w", upstream, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid chat upstream %q: scheme and host are required", upstream)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			rest := strings.TrimPrefix(r.In.URL.Path, chatPrefix)
			r.Out.URL.Path = chatUpstreamPath + rest
			r.Out.URL.RawPath = ""
			r.SetURL(target)
			r.SetXForwarded()
		},
		Transport: otelhttp.NewTransport(transport),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			m.ChatProxyErrors.Inc()
			log.Error("Chat upstream unavailable").
				Str("upstream", target.Redacted()).
				Err(err).
				Send()

			body, _ := jsonx.Marshal(map[string]string{"error": "Chat service unavailable"})
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			w.Write(body)
		},
	}, nil
}
