package telegram

import (
	"net"
	"net/http"
	"path"
	"time"

	"github.com/DevTeady/EmiliaHikari/core/telegram/netutil"
)

// Long polling holds a request open for the poll timeout, so the client
// timeout must exceed it.
const (
	clientTimeout  = 30 * time.Second
	retryAttempts  = 3
	retryBaseDelay = 2 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Bot API calls. Transport
// level failures are retried before telebot sees them.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   clientTimeout,
		Transport: &retryTransport{base: transport, attempts: retryAttempts, delay: retryBaseDelay},
	}
}

// Member restrictions are sent once; the caller reports the failure instead.
var singleAttempt = map[string]bool{
	"banChatMember":      true,
	"unbanChatMember":    true,
	"restrictChatMember": true,
}

type retryTransport struct {
	base     http.RoundTripper
	attempts int
	delay    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if singleAttempt[path.Base(req.URL.Path)] {
		return t.base.RoundTrip(req)
	}
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		r := req
		if attempt > 1 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				r.Body = body
			}
		}

		resp, err := t.base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == t.attempts {
			break
		}

		timer := time.NewTimer(t.delay * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
