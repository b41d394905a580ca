package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
)

func captureLine(t *testing.T, format logFormat, emit func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	emit(slog.New(handler))
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, -100)

	line := captureLine(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "service.warns"), slog.LevelInfo, "warn.issue",
			slog.Int("limit", 3),
			slog.Int("warns", 2),
			slog.Int64("target_id", 55),
			slog.String("status", "ok"),
		)
	})
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=service.warns", "event=warn.issue", "status=ok", "rid=rid-123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	target := strings.Index(line, "target_id=55")
	warns := strings.Index(line, "warns=2")
	limit := strings.Index(line, "limit=3")
	if target < 0 || warns < target || limit < warns {
		t.Fatalf("domain keys out of order: %s", line)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := captureLine(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "db.store"), slog.LevelError, "store.failed",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
		)
	})
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"db.store"`, `"event":"store.failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerOutcomes(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger) {
		log.Info("warn.escalate", slog.String("outcome", "LIMIT_REACHED"))
	})
	if !strings.Contains(line, "outcome=limit_reached") {
		t.Fatalf("expected normalized outcome, got %s", line)
	}

	line = captureLine(t, formatKV, func(log *slog.Logger) {
		log.Info("warn.escalate", slog.String("outcome", "exploded"))
	})
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(context.Background(), rawRID)

	kv := captureLine(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := captureLine(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(js, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", js)
	}
	if !strings.Contains(js, `"component":"app"`) {
		t.Fatalf("expected default component, got %s", js)
	}
}

func TestDurationKeysAreSuffixed(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger) {
		log.Info("db.query", slog.Duration("duration", 1500000), slog.Duration("backoff", 0))
	})
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected rounded duration_ms, got %s", line)
	}
	if !strings.Contains(line, "backoff_ms=0") {
		t.Fatalf("expected backoff_ms key, got %s", line)
	}
}

func TestSettingsFrom(t *testing.T) {
	s := settingsFrom(nil)
	if s.format != formatJSON || s.level != slog.LevelInfo || s.profile != "prod" {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "WARNING",
		Profile:     "Dev",
		KeysOrder:   "ts, event ,,level",
		DebugSample: "0",
	}}
	s = settingsFrom(cfg)
	if s.format != formatKV {
		t.Fatalf("dev profile should default to kv, got %s", s.format)
	}
	if s.level != slog.LevelWarn {
		t.Fatalf("level = %v", s.level)
	}
	if strings.Join(s.keyOrder, ",") != "ts,event,level" {
		t.Fatalf("key order = %v", s.keyOrder)
	}
	if s.sample != [2]int{0, 0} {
		t.Fatalf("sample = %v", s.sample)
	}
}
