// Package scheduler runs download requests, either one at a time on the caller
// or across a fixed pool of workers.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/fetch"
	"github.com/tanq16/imgdl/internal/imaging"
	"github.com/tanq16/imgdl/internal/naming"
	"github.com/tanq16/imgdl/internal/utils"
)

// linkChecker is implemented by fetchers that can reject a URL up front.
type linkChecker interface {
	Supports(link string) error
}

type Engine struct {
	fetcher   fetch.Fetcher
	retry     fetch.RetryOptions
	processor *imaging.Processor
	reporter  utils.Reporter
}

// NewEngine wires the pipeline. reporter receives every event from every
// worker; retry.Reporter is replaced by it.
func NewEngine(fetcher fetch.Fetcher, retry fetch.RetryOptions, processor *imaging.Processor, reporter utils.Reporter) *Engine {
	if reporter == nil {
		reporter = utils.NopReporter{}
	}
	if processor == nil {
		processor = &imaging.Processor{}
	}
	retry.Reporter = reporter
	return &Engine{fetcher: fetcher, retry: retry, processor: processor, reporter: reporter}
}

// Download processes req synchronously. The returned error is non-nil only
// for configuration problems detected before any network activity.
func (e *Engine) Download(ctx context.Context, req utils.DownloadRequest) (utils.DownloadOutcome, error) {
	if err := EnsureSaveDir(req.SavePath); err != nil {
		return utils.DownloadOutcome{Request: req, ErrorKind: utils.KindConfig, Err: err}, err
	}
	e.reporter.OnQueued(req)
	return e.process(ctx, req), nil
}

// RunBatch processes reqs on at most pool.Concurrency workers. outcomes[i]
// always belongs to reqs[i]. Per-request failures are reported in the
// outcomes; the error is reserved for configuration problems, in which case
// nothing is fetched.
func (e *Engine) RunBatch(ctx context.Context, reqs []utils.DownloadRequest, pool utils.PoolConfig) ([]utils.DownloadOutcome, error) {
	checked := make(map[string]bool)
	for _, req := range reqs {
		if checked[req.SavePath] {
			continue
		}
		if err := EnsureSaveDir(req.SavePath); err != nil {
			return nil, err
		}
		checked[req.SavePath] = true
	}

	outcomes := make([]utils.DownloadOutcome, len(reqs))
	if len(reqs) == 0 {
		return outcomes, nil
	}
	numWorkers := min(max(pool.Concurrency, 1), len(reqs))
	log.Info().Str("op", "scheduler").Int("requests", len(reqs)).Int("workers", numWorkers).Msg("Starting batch")

	jobCh := make(chan int, len(reqs))
	for i, req := range reqs {
		e.reporter.OnQueued(req)
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				outcomes[i] = e.process(ctx, reqs[i])
			}
		}()
	}
	wg.Wait()
	return outcomes, nil
}

func (e *Engine) process(ctx context.Context, req utils.DownloadRequest) utils.DownloadOutcome {
	outcome := e.run(ctx, req)
	if outcome.Succeeded {
		e.reporter.OnSuccess(outcome)
	} else {
		e.reporter.OnFailure(outcome)
	}
	return outcome
}

func (e *Engine) run(ctx context.Context, req utils.DownloadRequest) utils.DownloadOutcome {
	if err := ctx.Err(); err != nil {
		return utils.DownloadOutcome{Request: req, ErrorKind: utils.KindCanceled, Err: err}
	}
	if checker, ok := e.fetcher.(linkChecker); ok {
		if err := checker.Supports(req.URL); err != nil {
			return utils.DownloadOutcome{Request: req, ErrorKind: utils.KindConfig, Err: err}
		}
	}
	dest := Destination(req)
	log.Debug().Str("op", "scheduler").Str("id", req.ID).Str("url", req.URL).Msgf("Saving to %s", dest)
	outcome := fetch.FetchWithRetry(ctx, e.fetcher, req, dest, e.retry)
	return e.processor.Process(ctx, outcome, e.reporter)
}

// Destination is the path the fetcher writes req to.
func Destination(req utils.DownloadRequest) string {
	name := naming.SafeName(req.ExplicitName)
	if name == "" {
		name = naming.Name(req.URL, "")
	}
	return filepath.Join(req.SavePath, name)
}

// EnsureSaveDir creates dir if needed and fails when it exists as anything
// other than a directory.
func EnsureSaveDir(dir string) error {
	if dir == "" {
		dir = "."
	}
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return utils.NewConfigError("save path", fmt.Errorf("%s exists and is not a directory", dir))
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return utils.NewConfigError("save path", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return utils.NewConfigError("save path", fmt.Errorf("error creating %s: %w", dir, err))
	}
	return nil
}
