package output

import (
	"github.com/rs/zerolog"
	"github.com/tanq16/imgdl/internal/utils"
)

// LogReporter writes every request event to a zerolog logger.
type LogReporter struct {
	logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) OnQueued(req utils.DownloadRequest) {
	r.logger.Debug().Str("id", req.ID).Str("url", req.URL).Msg("Queued")
}

func (r *LogReporter) OnAttempt(req utils.DownloadRequest, attempt, maxAttempts int, err error) {
	event := r.logger.Info()
	if err != nil {
		event = r.logger.Warn().Err(err).Str("kind", string(utils.KindOf(err)))
	}
	event.Str("id", req.ID).Str("url", req.URL).Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("Attempt finished")
}

// OnProgress is not logged.
func (r *LogReporter) OnProgress(utils.DownloadRequest, int64, int64) {}

func (r *LogReporter) OnMessage(req utils.DownloadRequest, message string) {
	r.logger.Debug().Str("id", req.ID).Msg(message)
}

func (r *LogReporter) OnSuccess(outcome utils.DownloadOutcome) {
	event := r.logger.Info()
	if outcome.Err != nil {
		event = r.logger.Warn().Err(outcome.Err).Str("kind", string(outcome.ErrorKind))
	}
	event.Str("id", outcome.Request.ID).Str("url", outcome.Request.URL).
		Str("downloaded", outcome.DownloadedPath).Str("final", outcome.FinalPath).
		Int("attempts", outcome.AttemptsUsed).Msg("Download succeeded")
}

func (r *LogReporter) OnFailure(outcome utils.DownloadOutcome) {
	r.logger.Error().Err(outcome.Err).Str("kind", string(outcome.ErrorKind)).
		Str("id", outcome.Request.ID).Str("url", outcome.Request.URL).
		Int("attempts", outcome.AttemptsUsed).Msg("Download failed")
}

// Multi fans every event out to each reporter in order.
type Multi []utils.Reporter

func (m Multi) OnQueued(req utils.DownloadRequest) {
	for _, r := range m {
		r.OnQueued(req)
	}
}

func (m Multi) OnAttempt(req utils.DownloadRequest, attempt, maxAttempts int, err error) {
	for _, r := range m {
		r.OnAttempt(req, attempt, maxAttempts, err)
	}
}

func (m Multi) OnProgress(req utils.DownloadRequest, downloaded, total int64) {
	for _, r := range m {
		r.OnProgress(req, downloaded, total)
	}
}

func (m Multi) OnMessage(req utils.DownloadRequest, message string) {
	for _, r := range m {
		r.OnMessage(req, message)
	}
}

func (m Multi) OnSuccess(outcome utils.DownloadOutcome) {
	for _, r := range m {
		r.OnSuccess(outcome)
	}
}

func (m Multi) OnFailure(outcome utils.DownloadOutcome) {
	for _, r := range m {
		r.OnFailure(outcome)
	}
}
