package output

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tanq16/imgdl/internal/utils"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		current, total int64
		wantPct        string
	}{
		{0, 100, "0.0%"},
		{50, 100, "50.0%"},
		{150, 100, "100.0%"},
		{-5, 100, "0.0%"},
		{10, 0, "100.0%"},
	}
	for _, tt := range tests {
		bar := ProgressBar(tt.current, tt.total, 20)
		if !strings.HasSuffix(bar, tt.wantPct) {
			t.Errorf("ProgressBar(%d, %d) = %q, want suffix %q", tt.current, tt.total, bar, tt.wantPct)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("a", 45), 20)
	if len(lines) != 3 || len(lines[0]) != 20 || len(lines[2]) != 5 {
		t.Errorf("wrapText gave %d lines: %q", len(lines), lines)
	}
	if got := wrapText("short", 20); len(got) != 1 {
		t.Errorf("short text wrapped into %d lines", len(got))
	}
}

func TestManagerPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	m := NewManagerWithWriter(&buf, false)

	ok := utils.NewRequest("http://x/a.png", "", "", ".")
	bad := utils.NewRequest("http://x/b.png", "", "", ".")
	m.OnQueued(ok)
	m.OnQueued(bad)
	m.OnProgress(ok, 10, 100)
	m.OnAttempt(bad, 1, 2, errors.New("status 500"))
	m.OnSuccess(utils.DownloadOutcome{Request: ok, Succeeded: true, FinalPath: "a.png", AttemptsUsed: 1})
	m.OnFailure(utils.DownloadOutcome{Request: bad, AttemptsUsed: 2, ErrorKind: utils.KindHTTPStatus, Err: errors.New("status 500")})
	// terminal events are counted once
	m.OnSuccess(utils.DownloadOutcome{Request: ok, Succeeded: true, FinalPath: "a.png"})
	m.StopDisplay()

	if s, f := m.Summary(); s != 1 || f != 1 {
		t.Errorf("Summary() = (%d, %d), want (1, 1)", s, f)
	}
	out := buf.String()
	for _, want := range []string{"Attempt 1/2 failed", "Saved a.png", "Failed http://x/b.png after 2 attempt(s)", "Completed 1 of 2", "Failed 1 of 2", "http_status: status 500"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestManagerConcurrentEvents(t *testing.T) {
	m := NewManagerWithWriter(&bytes.Buffer{}, false)
	var wg sync.WaitGroup
	for n := 0; n < 20; n++ {
		req := utils.NewRequest("http://x/a.png", "", "", ".")
		m.OnQueued(req)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.OnProgress(req, 1, 2)
			m.OnMessage(req, "Validated")
			m.OnSuccess(utils.DownloadOutcome{Request: req, Succeeded: true})
		}()
	}
	wg.Wait()
	if s, f := m.Summary(); s != 20 || f != 0 {
		t.Errorf("Summary() = (%d, %d), want (20, 0)", s, f)
	}
}

func TestLogReporterAndMulti(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	var plain bytes.Buffer
	mgr := NewManagerWithWriter(&plain, false)
	r := Multi{NewLogReporter(logger), mgr}

	req := utils.NewRequest("http://x/a.png", "", "", ".")
	r.OnQueued(req)
	r.OnAttempt(req, 1, 3, &utils.ConfigError{Op: "url", Err: errors.New("unsupported")})
	r.OnFailure(utils.DownloadOutcome{Request: req, ErrorKind: utils.KindConfig, Err: errors.New("unsupported")})

	logged := buf.String()
	for _, want := range []string{`"kind":"config"`, `"message":"Download failed"`, req.ID} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %q:\n%s", want, logged)
		}
	}
	if _, f := mgr.Summary(); f != 1 {
		t.Errorf("manager saw %d failures, want 1", f)
	}
}
