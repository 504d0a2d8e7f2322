package convert

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WorkspacePrefix names every per-call scratch directory under the scratch root.
const WorkspacePrefix = "docsum-"

// withWorkspace copies r into a new uniquely named directory under root and
// calls fn with that directory and the input file path. The directory and
// everything the external tools wrote into it are removed when withWorkspace
// returns, on success, error and panic alike.
func withWorkspace(root string, r io.Reader, suffix string, logger *slog.Logger, fn func(dir, input string) error) error {
	id := uuid.New().String()
	dir := filepath.Join(root, WorkspacePrefix+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("convert: workspace cleanup failed", "dir", dir, "err", err)
		}
	}()

	input := filepath.Join(dir, id+suffix)
	f, err := os.OpenFile(input, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close scratch file: %w", err)
	}

	return fn(dir, input)
}
