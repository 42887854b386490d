package fetch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/utils"
	"golang.org/x/time/rate"
)

type RetryOptions struct {
	Policy   utils.RetryPolicy
	Limiter  *rate.Limiter // optional, shared by all workers
	Reporter utils.Reporter
}

// FetchWithRetry drives fetcher until it succeeds, the policy is exhausted, or
// a failure that retrying cannot fix occurs. Only the terminal outcome is
// returned; every attempt is reported through opts.Reporter.
func FetchWithRetry(ctx context.Context, fetcher Fetcher, req utils.DownloadRequest, dest string, opts RetryOptions) utils.DownloadOutcome {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = utils.NopReporter{}
	}
	maxAttempts := max(opts.Policy.MaxAttempts, 1)
	outcome := utils.DownloadOutcome{Request: req}
	progress := func(downloaded, total int64) {
		reporter.OnProgress(req, downloaded, total)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && opts.Policy.Backoff > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt-1)*opts.Policy.Backoff); err != nil {
				lastErr = transientError(ctx, req.URL, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = transientError(ctx, req.URL, err)
			break
		}
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				lastErr = transientError(ctx, req.URL, err)
				break
			}
		}

		outcome.AttemptsUsed = attempt
		err := fetcher.Fetch(ctx, req.URL, dest, progress)
		reporter.OnAttempt(req, attempt, maxAttempts, err)
		if err == nil {
			log.Info().Str("op", "fetch/retry").Str("id", req.ID).Str("url", req.URL).Int("attempt", attempt).Msgf("Downloaded %s", dest)
			outcome.Succeeded = true
			outcome.DownloadedPath = dest
			outcome.FinalPath = dest
			return outcome
		}
		lastErr = err
		log.Warn().Str("op", "fetch/retry").Str("id", req.ID).Err(err).Msgf("Attempt %d/%d failed for %s", attempt, maxAttempts, req.URL)
		if !retryable(err) {
			break
		}
	}

	outcome.Err = lastErr
	outcome.ErrorKind = utils.KindOf(lastErr)
	log.Error().Str("op", "fetch/retry").Str("id", req.ID).Str("kind", string(outcome.ErrorKind)).Int("attempts", outcome.AttemptsUsed).Msgf("Failed to download %s", req.URL)
	return outcome
}

func retryable(err error) bool {
	switch utils.KindOf(err) {
	case utils.KindTransient, utils.KindHTTPStatus:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
