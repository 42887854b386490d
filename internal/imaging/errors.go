package imaging

import (
	"fmt"

	"github.com/tanq16/imgdl/internal/utils"
)

type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid image %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Kind() utils.ErrorKind { return utils.KindValidation }

type ConversionError struct {
	Path   string
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("error converting %s to %s: %v", e.Path, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Kind() utils.ErrorKind { return utils.KindConversion }

// PreviewError is only ever logged.
type PreviewError struct {
	Path string
	Err  error
}

func (e *PreviewError) Error() string {
	return fmt.Sprintf("error previewing %s: %v", e.Path, e.Err)
}

func (e *PreviewError) Unwrap() error { return e.Err }

func (e *PreviewError) Kind() utils.ErrorKind { return utils.KindPreview }
