package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanq16/imgdl/internal/utils"
)

// FetchError is the failure of a single attempt.
type FetchError struct {
	URL        string
	ErrKind    utils.ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.ErrKind == utils.KindHTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Kind() utils.ErrorKind { return e.ErrKind }

func statusError(link string, code int) error {
	return &FetchError{URL: link, ErrKind: utils.KindHTTPStatus, StatusCode: code}
}

// transientError wraps err, reclassifying it as canceled when the caller's
// context is done.
func transientError(ctx context.Context, link string, err error) error {
	kind := utils.KindTransient
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		kind = utils.KindCanceled
	}
	return &FetchError{URL: link, ErrKind: kind, Err: err}
}
