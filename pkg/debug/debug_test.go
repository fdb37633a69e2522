package debug

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

// withState enables categories and logs to a buffer at level for one test.
func withState(t *testing.T, categories string, level slog.Level) *bytes.Buffer {
	t.Helper()
	prevSet, prevLogger := enabled.Load(), slog.Default()
	t.Cleanup(func() {
		enabled.Store(prevSet)
		slog.SetDefault(prevLogger)
	})
	enable(categories)
	var buf bytes.Buffer
	slog.SetDefault(slog.New(NewHandler(&buf, "text", level)))
	return &buf
}

func TestCategories(t *testing.T) {
	tests := []struct {
		in   string
		want []string
		on   []string
		off  []string
	}{
		{"", nil, nil, []string{"provider"}},
		{"provider", []string{"provider"}, []string{"provider"}, []string{"engine"}},
		{" Provider ,,ENGINE ", []string{"engine", "provider"}, []string{"provider", "engine"}, []string{"mcp"}},
		{"all", []string{"all"}, []string{"provider", "anything"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			withState(t, tt.in, slog.LevelInfo)
			if got := Categories(); !slices.Equal(got, tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("Categories() = %v, want %v", got, tt.want)
			}
			for _, c := range tt.on {
				if !Enabled(c) {
					t.Errorf("%s should be enabled", c)
				}
			}
			for _, c := range tt.off {
				if Enabled(c) {
					t.Errorf("%s should be disabled", c)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"trace": LevelTrace, "DEBUG": slog.LevelDebug, "": slog.LevelInfo, "Info": slog.LevelInfo,
		"warning": slog.LevelWarn, "ERROR": slog.LevelError, "verbose": slog.LevelInfo,
	} {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"searxng results", 7, "searxng..."},
		{"héllo", 2, "h..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLogAndTrace(t *testing.T) {
	buf := withState(t, "provider", slog.LevelDebug)
	Log("provider", "call", "url", "http://searx.local")
	Log("engine", "hidden")
	Trace("provider", "too verbose")

	out := buf.String()
	if !strings.Contains(out, "debug=provider") || !strings.Contains(out, "url=http://searx.local") {
		t.Errorf("missing debug record: %q", out)
	}
	if strings.Contains(out, "hidden") || strings.Contains(out, "too verbose") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDump(t *testing.T) {
	big := strings.Repeat("x", dumpLimit*2)

	t.Run("debug truncates", func(t *testing.T) {
		buf := withState(t, "engine", slog.LevelDebug)
		Dump("engine", "request config", map[string]any{"body": big})
		Dump("provider", "skipped", map[string]any{})
		out := buf.String()
		if !strings.Contains(out, "request config") || strings.Contains(out, big) {
			t.Errorf("expected a truncated dump: %d bytes", len(out))
		}
		if strings.Contains(out, "skipped") {
			t.Error("disabled category was dumped")
		}
	})

	t.Run("trace keeps everything", func(t *testing.T) {
		buf := withState(t, "all", LevelTrace)
		Dump("engine", "provider reply", map[string]any{"body": big})
		out := buf.String()
		if !strings.Contains(out, big) || !strings.Contains(out, "level=TRACE") {
			t.Errorf("expected full TRACE dump")
		}
	})
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, "JSON", slog.LevelInfo)).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
