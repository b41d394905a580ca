package logger

import (
	"slices"
	"strings"
)

// levelNames maps slog level strings (and the "warning" spelling used in
// configs) to the names printed in the level field.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var (
	statuses = []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}
	// outcomes are the results a handler or a warn decision can report.
	outcomes = []string{
		"ok", "fail", "cancelled", "rate_limited", "denied",
		"warned", "admin_immune", "limit_reached", "action_failed",
	}
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	// slog renders custom levels as "INFO+2"
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status; unknown values are kept but reported.
func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	return status, status != "" && slices.Contains(statuses, status)
}

// normalizeOutcome lowercases outcome; callers drop unknown values.
func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, outcome != "" && slices.Contains(outcomes, outcome)
}

// defaultKeyOrder lists keys printed right after ts; anything else follows
// alphabetically.
var defaultKeyOrder = []string{
	// envelope
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	// update
	"update_id", "user_id", "chat_id", "chat_type", "handler", "kind",
	"operation", "op", "cb_key", "outcome", "duration_ms",
	// warns
	"target_id", "warns", "limit", "soft_warn", "action", "keyword", "filters",
	"source", "messages", "count", "pages", "payload", "username",
	// transport and storage
	"mode", "listen", "public_url", "http_code", "driver", "db", "host", "port",
	// errors and retries
	"err", "err_code", "cause", "retryable", "attempts", "backoff_ms",
	"rate_limited", "collapsed", "repeats", "pending_count",
}
