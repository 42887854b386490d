package fetch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/utils"
)

// streamToFile copies body into dest in utils.ChunkSize steps. Bytes land in
// a part file that is truncated first and renamed over dest only once the body
// has been read completely.
func streamToFile(ctx context.Context, link string, body io.Reader, total int64, dest string, progress utils.ProgressFunc) error {
	partPath := dest + utils.PartSuffix
	outFile, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return transientError(ctx, link, fmt.Errorf("error creating output file: %w", err))
	}
	if err := copyChunks(outFile, body, total, progress); err != nil {
		outFile.Close()
		os.Remove(partPath)
		return transientError(ctx, link, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(partPath)
		return transientError(ctx, link, fmt.Errorf("error closing output file: %w", err))
	}
	if err := os.Rename(partPath, dest); err != nil {
		os.Remove(partPath)
		return transientError(ctx, link, fmt.Errorf("error renaming (finalizing) output file: %w", err))
	}
	log.Debug().Str("op", "fetch/stream").Str("dest", dest).Msg("Stream finalized")
	return nil
}

func copyChunks(w io.Writer, body io.Reader, total int64, progress utils.ProgressFunc) error {
	buffer := make([]byte, utils.ChunkSize)
	var downloaded int64
	for {
		bytesRead, readErr := body.Read(buffer)
		if bytesRead > 0 {
			if _, writeErr := w.Write(buffer[:bytesRead]); writeErr != nil {
				return fmt.Errorf("error writing to output file: %w", writeErr)
			}
			downloaded += int64(bytesRead)
			if progress != nil && total > 0 {
				progress(downloaded, total)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("error reading response body: %w", readErr)
		}
	}
	if total > 0 && downloaded != total {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", total, downloaded)
	}
	return nil
}
