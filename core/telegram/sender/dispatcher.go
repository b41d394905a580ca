// Package sender delivers outbound Telegram calls off the update goroutine.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"sync"
	"time"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/metrics"
	"github.com/DevTeady/EmiliaHikari/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the lane is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// Lanes is the number of workers. Calls for one chat always share a lane,
	// so they reach Telegram in the order they were enqueued.
	Lanes int
	// LaneSize bounds queued jobs per lane.
	LaneSize     int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	chatID   int64
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	mu     sync.RWMutex
	closed bool
	lanes  []chan job
	wg     sync.WaitGroup
}

// NewDispatcher starts a dispatcher, filling zero options with defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Lanes <= 0 {
		opts.Lanes = 4
	}
	if opts.LaneSize <= 0 {
		opts.LaneSize = 64
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Lanes)}
	d.wg.Add(opts.Lanes)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, opts.LaneSize)
		go d.worker(d.lanes[i])
	}
	return d
}

func (d *Dispatcher) lane(chatID int64) chan job {
	if chatID < 0 {
		chatID = -chatID
	}
	return d.lanes[chatID%int64(len(d.lanes))]
}

// Enqueue schedules run on the lane of chatID. The run closure must be
// idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, chatID int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.lane(chatID) <- job{ctx: ctx, chatID: chatID, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits until queued ones are processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadlineCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		err := j.run()
		if err == nil {
			if attempt > 1 {
				logger.Info(ctx, "tg.sender", "send.retry.success",
					append(sendLogAttrs(j), slog.Int("attempt", attempt))...,
				)
			}
			return
		}

		delay, retry := netutil.Backoff(err, attempt, d.opts.RetryBackoff)
		if !retry || attempt == attempts {
			logSendFailure(ctx, j, err, attempt, time.Since(start))
			return
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(sendLogAttrs(j),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)...,
		)

		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			logSendFailure(ctx, j, deadlineCtx.Err(), attempt, time.Since(start))
			return
		case <-timer.C:
		}
	}
}

func sendLogAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if j.chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", j.chatID))
	}
	return attrs
}

func logSendFailure(ctx context.Context, j job, err error, attempts int, elapsed time.Duration) {
	kind := classifyError(err)
	metrics.IncSendFailure(kind)
	logger.Error(ctx, "tg.sender", "send.fail",
		append(sendLogAttrs(j),
			slog.String("err", sanitizeErrorMessage(err)),
			slog.String("err_code", kind),
			slog.Int("attempts", attempts),
			slog.Duration("elapsed", logger.RoundMS(elapsed)),
		)...,
	)
}

// classifyError buckets a failure for the send_failures_total metric.
func classifyError(err error) string {
	var (
		flood  tele.FloodError
		apiErr *tele.Error
		dnsErr *net.DNSError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &flood):
		return "flood"
	case errors.As(err, &apiErr):
		if apiErr.Code >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	case errors.As(err, &dnsErr):
		return "dns"
	case netutil.ShouldRetry(err):
		return "network"
	}
	return "unknown"
}

// sanitizeErrorMessage keeps bot tokens out of the logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
