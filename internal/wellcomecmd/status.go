package wellcomecmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/progress"
)

func executeStatus(w io.Writer, path string, failures int) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "No progress file at %s, nothing uploaded yet\n", path)
		return nil
	}

	p, err := progress.Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Progress file: %s\n", path)
	fmt.Fprintf(w, "  Uploaded: %d\n", len(p.Uploaded))
	fmt.Fprintf(w, "  Skipped:  %d\n", len(p.Skipped))
	fmt.Fprintf(w, "  Failed:   %d\n", len(p.Failed))

	recent := p.RecentFailures(failures)
	if len(recent) > 0 {
		fmt.Fprintf(w, "\n  Last %d failures:\n", len(recent))
		printFailures(w, recent)
	}
	return nil
}
