package utils

import (
	"time"

	"github.com/google/uuid"
)

type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindConfig     ErrorKind = "config"
	KindHTTPStatus ErrorKind = "http_status"
	KindTransient  ErrorKind = "transient"
	KindValidation ErrorKind = "validation"
	KindConversion ErrorKind = "conversion"
	KindPreview    ErrorKind = "preview"
	KindCanceled   ErrorKind = "canceled"
)

// DownloadRequest describes one URL to fetch. Build it with NewRequest and
// treat it as read-only afterwards.
type DownloadRequest struct {
	ID           string
	URL          string
	ExplicitName string
	TargetFormat string
	SavePath     string
}

func NewRequest(url, explicitName, targetFormat, savePath string) DownloadRequest {
	return DownloadRequest{
		ID:           uuid.NewString(),
		URL:          url,
		ExplicitName: explicitName,
		TargetFormat: targetFormat,
		SavePath:     savePath,
	}
}

// DownloadOutcome is the terminal result for a single request.
type DownloadOutcome struct {
	Request        DownloadRequest
	DownloadedPath string // file written by the fetcher, kept even after conversion
	FinalPath      string // converted file if conversion succeeded, else DownloadedPath
	Succeeded      bool
	AttemptsUsed   int
	ErrorKind      ErrorKind
	Err            error
}

type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // 0 retries immediately, otherwise waits attempt*Backoff
}

type PoolConfig struct {
	Concurrency int
}

// ProgressFunc receives bytes written so far and the declared total.
type ProgressFunc func(downloaded, total int64)

// Reporter observes the lifecycle of requests. Implementations must be safe
// for concurrent use since every worker reports through the same value.
type Reporter interface {
	OnQueued(req DownloadRequest)
	OnAttempt(req DownloadRequest, attempt, maxAttempts int, err error)
	OnProgress(req DownloadRequest, downloaded, total int64)
	OnMessage(req DownloadRequest, message string)
	OnSuccess(outcome DownloadOutcome)
	OnFailure(outcome DownloadOutcome)
}

type NopReporter struct{}

func (NopReporter) OnQueued(DownloadRequest) {}
func (NopReporter) OnAttempt(DownloadRequest, int, int, error) {}
func (NopReporter) OnProgress(DownloadRequest, int64, int64) {}
func (NopReporter) OnMessage(DownloadRequest, string) {}
func (NopReporter) OnSuccess(DownloadOutcome) {}
func (NopReporter) OnFailure(DownloadOutcome) {}

type HTTPClientConfig struct {
	Timeout       time.Duration
	KATimeout     time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
	Headers       map[string]string
}

// BatchEntry is one item of a YAML batch file.
type BatchEntry struct {
	URL    string `yaml:"link"`
	Name   string `yaml:"name,omitempty"`
	Format string `yaml:"format,omitempty"`
}
