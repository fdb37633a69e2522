// Package debug configures process logging and adds opt-in debug output
// per subsystem.
//
// CRAWLROUTER_DEBUG (or debug.categories) selects subsystems, e.g.
// "provider,engine" or "all". CRAWLROUTER_LOG_LEVEL (or debug.level) sets
// the level: ERROR, WARN, INFO, DEBUG or TRACE. At TRACE, rendered request
// configs and raw provider bodies are logged in full.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

const (
	EnvCategories = "CRAWLROUTER_DEBUG"
	EnvLevel      = "CRAWLROUTER_LOG_LEVEL"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// dumpLimit bounds Dump output below TRACE.
const dumpLimit = 2048

var enabled atomic.Pointer[set]

type set map[string]bool

func init() {
	enable(os.Getenv(EnvCategories))
}

// Init installs the default slog logger on stderr. Environment variables
// take precedence over the configured values; format is "text" or "json".
func Init(categories, level, format string) {
	enable(firstSet(os.Getenv(EnvCategories), categories))
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, ParseLevel(firstSet(os.Getenv(EnvLevel), level)))))
}

func firstSet(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func enable(list string) {
	s := set{}
	for c := range strings.SplitSeq(list, ",") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			s[c] = true
		}
	}
	enabled.Store(&s)
}

// NewHandler returns a text or JSON handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: levelName}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// levelName prints LevelTrace as TRACE instead of DEBUG-4.
func levelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Enabled reports whether debug output is on for category.
func Enabled(category string) bool {
	s := *enabled.Load()
	return s["all"] || s[category]
}

// Categories returns the enabled categories, sorted.
func Categories() []string {
	return slices.Sorted(maps.Keys(*enabled.Load()))
}

// Log writes a DEBUG record tagged with category when it is enabled.
func Log(category, msg string, args ...any) {
	emit(category, slog.LevelDebug, msg, args)
}

// Trace writes a TRACE record tagged with category when it is enabled.
func Trace(category, msg string, args ...any) {
	emit(category, LevelTrace, msg, args)
}

func emit(category string, level slog.Level, msg string, args []any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), level, msg, append([]any{"debug", category}, args...)...)
}

func tracing(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Dump logs v as JSON. The body is truncated unless TRACE is on.
func Dump(category, msg string, v any) {
	if !Enabled(category) {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		Log(category, msg, "error", err)
		return
	}
	if tracing(category) {
		Trace(category, msg, "body", string(b))
		return
	}
	Log(category, msg, "body", Truncate(string(b), dumpLimit))
}

// Raw prints text unformatted to stderr, at TRACE only.
func Raw(category, text string) {
	if tracing(category) {
		fmt.Fprintln(os.Stderr, text)
	}
}

// ParseLevel maps a level name to a slog level. Unknown names mean INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Truncate shortens s to at most n bytes without splitting a UTF-8
// sequence and marks the cut with "...".
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
