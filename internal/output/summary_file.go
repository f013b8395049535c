package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/torosent/crankpost/internal/config"
	"github.com/torosent/crankpost/internal/metrics"
)

// WriteSummaryFile encodes the summary to path. Concurrent writers are
// serialized through an exclusive lock on "<path>.lock", and the file is
// replaced atomically so readers never observe a partial summary.
func WriteSummaryFile(path string, summary metrics.Summary, format config.SummaryFormat) error {
	if path == "" {
		return fmt.Errorf("summary file path is empty")
	}

	var buf bytes.Buffer
	if err := EncodeSummary(&buf, summary, format); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock summary file: %w", err)
	}
	defer lock.Unlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write summary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write summary file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("write summary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write summary file: %w", err)
	}
	return nil
}
