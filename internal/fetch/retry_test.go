package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanq16/imgdl/internal/utils"
	"golang.org/x/time/rate"
)

// flakyFetcher fails transiently for the first failures calls.
type flakyFetcher struct {
	failures int
	calls    int
}

func (f *flakyFetcher) Fetch(ctx context.Context, link, dest string, progress utils.ProgressFunc) error {
	f.calls++
	if f.calls <= f.failures {
		return &FetchError{URL: link, ErrKind: utils.KindTransient, Err: errors.New("connection reset")}
	}
	return os.WriteFile(dest, []byte("data"), 0644)
}

type attemptRecorder struct {
	utils.NopReporter
	mu       sync.Mutex
	attempts []int
	errs     []error
}

func (r *attemptRecorder) OnAttempt(req utils.DownloadRequest, attempt, maxAttempts int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	r.errs = append(r.errs, err)
}

func TestFetchWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	const maxAttempts = 4
	for k := 0; k < maxAttempts; k++ {
		f := &flakyFetcher{failures: k}
		rec := &attemptRecorder{}
		req := utils.NewRequest("http://example.com/a.png", "", "", t.TempDir())
		dest := filepath.Join(req.SavePath, "a.png")

		outcome := FetchWithRetry(context.Background(), f, req, dest, RetryOptions{
			Policy:   utils.RetryPolicy{MaxAttempts: maxAttempts},
			Reporter: rec,
		})
		if !outcome.Succeeded {
			t.Fatalf("k=%d: expected success, got %v", k, outcome.Err)
		}
		if outcome.AttemptsUsed != k+1 {
			t.Errorf("k=%d: AttemptsUsed = %d, want %d", k, outcome.AttemptsUsed, k+1)
		}
		if outcome.FinalPath != dest || outcome.DownloadedPath != dest {
			t.Errorf("k=%d: paths = (%q, %q), want %q", k, outcome.DownloadedPath, outcome.FinalPath, dest)
		}
		if len(rec.attempts) != k+1 {
			t.Errorf("k=%d: observed %d attempts, want %d", k, len(rec.attempts), k+1)
		}
		if rec.errs[len(rec.errs)-1] != nil {
			t.Errorf("k=%d: last observed attempt should have succeeded", k)
		}
	}
}

func TestFetchWithRetryExhaustsAttempts(t *testing.T) {
	f := &flakyFetcher{failures: 1 << 30}
	req := utils.NewRequest("http://example.com/a.png", "", "", t.TempDir())

	outcome := FetchWithRetry(context.Background(), f, req, filepath.Join(req.SavePath, "a.png"), RetryOptions{
		Policy: utils.RetryPolicy{MaxAttempts: 5},
	})
	if outcome.Succeeded {
		t.Fatal("expected failure")
	}
	if outcome.AttemptsUsed != 5 || f.calls != 5 {
		t.Errorf("AttemptsUsed = %d, calls = %d, want 5", outcome.AttemptsUsed, f.calls)
	}
	if outcome.ErrorKind != utils.KindTransient {
		t.Errorf("ErrorKind = %q, want %q", outcome.ErrorKind, utils.KindTransient)
	}
	if outcome.FinalPath != "" {
		t.Errorf("FinalPath = %q, want empty", outcome.FinalPath)
	}
}

func TestFetchWithRetryHTTP500(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	req := utils.NewRequest(server.URL+"/a.png", "", "", t.TempDir())
	dest := filepath.Join(req.SavePath, "a.png")
	outcome := FetchWithRetry(context.Background(), newTestFetcher(t, utils.HTTPClientConfig{}), req, dest, RetryOptions{
		Policy: utils.RetryPolicy{MaxAttempts: 3},
	})
	if outcome.Succeeded {
		t.Fatal("expected failure")
	}
	if hits.Load() != 3 || outcome.AttemptsUsed != 3 {
		t.Errorf("server hits = %d, AttemptsUsed = %d, want 3", hits.Load(), outcome.AttemptsUsed)
	}
	if outcome.ErrorKind != utils.KindHTTPStatus {
		t.Errorf("ErrorKind = %q, want %q", outcome.ErrorKind, utils.KindHTTPStatus)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("no file should exist after a failed outcome")
	}
}

func TestFetchWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	f := FetcherFunc(func(ctx context.Context, link, dest string, progress utils.ProgressFunc) error {
		calls++
		return &FetchError{URL: link, ErrKind: utils.KindConfig, Err: errors.New("bad bucket")}
	})
	req := utils.NewRequest("s3://bucket/", "", "", t.TempDir())
	outcome := FetchWithRetry(context.Background(), f, req, filepath.Join(req.SavePath, "x.jpg"), RetryOptions{
		Policy: utils.RetryPolicy{MaxAttempts: 3},
	})
	if calls != 1 || outcome.AttemptsUsed != 1 {
		t.Errorf("calls = %d, AttemptsUsed = %d, want 1", calls, outcome.AttemptsUsed)
	}
	if outcome.ErrorKind != utils.KindConfig {
		t.Errorf("ErrorKind = %q, want %q", outcome.ErrorKind, utils.KindConfig)
	}
}

func TestFetchWithRetryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &flakyFetcher{}
	req := utils.NewRequest("http://example.com/a.png", "", "", t.TempDir())
	outcome := FetchWithRetry(ctx, f, req, filepath.Join(req.SavePath, "a.png"), RetryOptions{
		Policy: utils.RetryPolicy{MaxAttempts: 3},
	})
	if outcome.Succeeded || f.calls != 0 {
		t.Fatalf("expected no attempts on a canceled context, got %d calls", f.calls)
	}
	if outcome.AttemptsUsed != 0 || outcome.ErrorKind != utils.KindCanceled {
		t.Errorf("got AttemptsUsed = %d kind = %q, want 0 %q", outcome.AttemptsUsed, outcome.ErrorKind, utils.KindCanceled)
	}
}

func TestFetchWithRetryBackoffAndLimiter(t *testing.T) {
	f := &flakyFetcher{failures: 2}
	req := utils.NewRequest("http://example.com/a.png", "", "", t.TempDir())
	start := time.Now()
	outcome := FetchWithRetry(context.Background(), f, req, filepath.Join(req.SavePath, "a.png"), RetryOptions{
		Policy:  utils.RetryPolicy{MaxAttempts: 3, Backoff: 10 * time.Millisecond},
		Limiter: rate.NewLimiter(rate.Inf, 1),
	})
	if !outcome.Succeeded || outcome.AttemptsUsed != 3 {
		t.Fatalf("expected success on attempt 3, got %+v", outcome)
	}
	// 10ms before attempt 2, 20ms before attempt 3
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("backoff not applied, elapsed %v", elapsed)
	}
}
