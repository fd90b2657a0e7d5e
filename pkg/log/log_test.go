package log

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})

	SetVerbose(false)
	Debug("hidden debug")
	Warn("visible warning", "file", "ci.yml")
	if strings.Contains(buf.String(), "hidden debug") {
		t.Errorf("debug message logged at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "file=ci.yml") {
		t.Errorf("expected warning with attrs, got %q", buf.String())
	}

	buf.Reset()
	SetVerbose(true)
	if level.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", level.Level())
	}
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("expected debug output, got %q", buf.String())
	}

	buf.Reset()
	SetQuiet(true)
	Warn("suppressed")
	Error("still shown")
	if strings.Contains(buf.String(), "suppressed") {
		t.Errorf("warning logged in quiet mode: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "still shown") {
		t.Errorf("expected error output, got %q", buf.String())
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	With("component", "sync").Warn("hello")
	if !strings.Contains(buf.String(), "component=sync") {
		t.Errorf("expected component attr, got %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSON(true)
	t.Cleanup(func() {
		SetJSON(false)
		SetOutput(os.Stderr)
	})

	Warn("fetch failed", "status", 502)
	if !strings.Contains(buf.String(), `"msg":"fetch failed"`) || !strings.Contains(buf.String(), `"status":502`) {
		t.Errorf("expected JSON line, got %q", buf.String())
	}
}

func TestConcurrentReconfigure(t *testing.T) {
	t.Cleanup(func() {
		SetJSON(false)
		SetOutput(os.Stderr)
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetOutput(io.Discard)
			SetJSON(i%2 == 0)
			Warn("reconfigured", "worker", i)
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	SetJSON(false)
	SetOutput(&buf)
	Warn("settled")
	if !strings.Contains(buf.String(), "msg=settled") {
		t.Errorf("expected text output after reconfiguring, got %q", buf.String())
	}
}
