package imaging

import (
	"context"
	"os/exec"
	"runtime"
)

// Viewer opens a file in an external program.
type Viewer func(ctx context.Context, path string) error

// SystemViewer hands path to the platform's default image viewer and returns
// once the viewer process has been started.
func SystemViewer(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
