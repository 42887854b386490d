package imaging

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/utils"
)

// Processor runs validate, convert and preview, in that order, on a fetched
// file.
type Processor struct {
	Preview bool
	Viewer  Viewer
}

func NewProcessor(preview bool) *Processor {
	return &Processor{Preview: preview, Viewer: SystemViewer}
}

// Process takes an outcome that already succeeded at fetching and returns it
// updated with the post-processing result. Outcomes that did not succeed are
// returned unchanged.
func (p *Processor) Process(ctx context.Context, outcome utils.DownloadOutcome, reporter utils.Reporter) utils.DownloadOutcome {
	if !outcome.Succeeded {
		return outcome
	}
	if reporter == nil {
		reporter = utils.NopReporter{}
	}
	req := outcome.Request

	cfg, format, err := Validate(outcome.DownloadedPath)
	if err != nil {
		log.Error().Str("op", "imaging/processor").Str("id", req.ID).Err(err).Msg("Validation failed")
		if rmErr := os.Remove(outcome.DownloadedPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Str("op", "imaging/processor").Err(rmErr).Msgf("Could not remove %s", outcome.DownloadedPath)
		}
		outcome.Succeeded = false
		outcome.FinalPath = ""
		outcome.ErrorKind = utils.KindValidation
		outcome.Err = err
		return outcome
	}
	reporter.OnMessage(req, fmt.Sprintf("Validated %s %dx%d", format, cfg.Width, cfg.Height))

	if req.TargetFormat != "" && !SameFormat(format, req.TargetFormat) {
		converted, err := Convert(outcome.DownloadedPath, req.TargetFormat)
		if err != nil {
			log.Error().Str("op", "imaging/processor").Str("id", req.ID).Err(err).Msg("Conversion failed")
			outcome.ErrorKind = utils.KindConversion
			outcome.Err = err
			reporter.OnMessage(req, fmt.Sprintf("Conversion to %s failed", req.TargetFormat))
		} else {
			outcome.FinalPath = converted
			reporter.OnMessage(req, fmt.Sprintf("Converted %s to %s", format, req.TargetFormat))
		}
	}

	if p.Preview && p.Viewer != nil {
		if err := p.Viewer(ctx, outcome.FinalPath); err != nil {
			log.Warn().Str("op", "imaging/processor").Str("id", req.ID).Err(&PreviewError{Path: outcome.FinalPath, Err: err}).Msg("Preview failed")
		}
	}
	return outcome
}
