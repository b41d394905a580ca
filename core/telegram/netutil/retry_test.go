package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(errors.New("bad request")))
	assert.True(t, ShouldRetry(timeoutErr{}))
	assert.True(t, ShouldRetry(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}))
	assert.False(t, ShouldRetry(context.Canceled))
}

func TestBackoff(t *testing.T) {
	base := time.Second

	d, ok := Backoff(tele.FloodError{RetryAfter: 3}, 1, base)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = Backoff(tele.FloodError{RetryAfter: 600}, 1, base)
	assert.False(t, ok, "long flood waits are not worth holding a lane")

	d, ok = Backoff(&tele.Error{Code: 502, Description: "Bad Gateway"}, 2, base)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = Backoff(&tele.Error{Code: 400, Description: "Bad Request: chat not found"}, 1, base)
	assert.False(t, ok)

	d, ok = Backoff(timeoutErr{}, 3, base)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = Backoff(errors.New("boom"), 1, base)
	assert.False(t, ok)
}
