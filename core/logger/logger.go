// Package logger provides the process wide structured logger and its
// per-component children.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/DevTeady/EmiliaHikari/core/buildinfo"
	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
)

var (
	initOnce     sync.Once
	shutdownOnce sync.Once

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger; component loggers below derive from it.
	L *slog.Logger

	// DB logs connection pool events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// SVCWarns logs warning ledger activity.
	SVCWarns *slog.Logger
	// SVCFilters logs keyword filter registry activity.
	SVCFilters *slog.Logger
	// Store logs persistence calls made by the storage layer.
	Store *slog.Logger
	// Metrics logs the Prometheus exposition server.
	Metrics *slog.Logger
)

var components = []struct {
	dst  **slog.Logger
	name string
}{
	{&DB, "db"},
	{&TG, "tg"},
	{&TWire, "tg.wire"},
	{&SVCWarns, "service.warns"},
	{&SVCFilters, "service.filters"},
	{&Store, "db.store"},
	{&Metrics, "metrics"},
}

func init() {
	// Component loggers stay usable before InitLogger, e.g. in package tests.
	L = slog.Default()
	wireComponents()
}

func wireComponents() {
	for _, c := range components {
		*c.dst = L.With("component", c.name)
	}
}

// settings is the logging section of the config after defaults.
type settings struct {
	format   logFormat
	level    slog.Level
	keyOrder []string
	profile  string
	sample   [2]int
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:   formatJSON,
		level:    slog.LevelInfo,
		keyOrder: defaultKeyOrder,
		profile:  "prod",
		sample:   [2]int{1, 50},
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.keyOrder = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		switch {
		case num == 0 && den == 0:
			s.sample = [2]int{0, 0}
		case num > 0 && den > 0:
			s.sample = [2]int{num, den}
		}
	}
	return s
}

// InitLogger configures the global structured logger. Only the first call has
// an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sample[0], s.sample[1])
		traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if f := openLogFile(cfg); f != nil {
			outputs = append(outputs, f)
			logClosers = append(logClosers, f)
		}
		logWriter = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(L)
		wireComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return initErr
}

// openLogFile opens logging.dir/logging.bot_file for appending. Failures are
// reported on the standard logger and leave stdout as the only sink.
func openLogFile(cfg *coreconfig.Config) *os.File {
	if cfg == nil {
		return nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	name := strings.TrimSpace(cfg.Logging.BotFile)
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return nil
	}
	return f
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Shutdown flushes buffered output and closes log files.
func Shutdown() error {
	var errs []error
	shutdownOnce.Do(func() {
		if logWriter != nil {
			errs = append(errs, logWriter.Flush(), logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

// LogEvent writes attrs with a leading event attribute. A nil logger falls
// back to the one stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event at level for component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high volume debug event should be
// logged. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
