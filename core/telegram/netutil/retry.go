// Package netutil decides which failed Telegram calls are worth repeating.
package netutil

import (
	"errors"
	"net"
	"net/url"
	"time"

	tele "gopkg.in/telebot.v4"
)

// maxFloodWait caps how long a single flood-wait pause may block a lane.
const maxFloodWait = 30 * time.Second

// ShouldRetry reports whether a network error is transient: dial failures
// and timeouts produced by net/http while contacting the Bot API.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Timeout() || opErr.Op == "dial") {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}
	return false
}

// Backoff returns how long to wait before attempt+1 of a failed Bot API call,
// and false when the error is permanent. A flood-wait answer dictates its own
// delay; network errors and 5xx answers back off linearly from base.
func Backoff(err error, attempt int, base time.Duration) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		wait := time.Duration(flood.RetryAfter) * time.Second
		if wait <= 0 {
			wait = base
		}
		if wait > maxFloodWait {
			return 0, false
		}
		return wait, true
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return base * time.Duration(attempt), apiErr.Code >= 500
	}

	if ShouldRetry(err) {
		return base * time.Duration(attempt), true
	}
	return 0, false
}
