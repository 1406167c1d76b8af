package output

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/browser"
)

// OpenReport opens a written HTML report in the default browser. The caller
// already has the file on disk, so failure here is recoverable: print the
// path and move on.
func OpenReport(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := browser.OpenURL("file://" + abs); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
