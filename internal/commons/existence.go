package commons

import (
	"context"
	"log/slog"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/batch"
)

const existenceLogEvery = 120

// CheckExistence searches Commons for every Miro number in parallel batches
// and returns the hits keyed by Miro number. Search errors count as no hit.
func (c *Client) CheckExistence(ctx context.Context, miros []string) (map[string][]string, error) {
	slog.Info("Checking Commons for existing uploads", "count", len(miros))

	opts := c.search
	opts.OnBatch = func(done, total int) {
		if done%existenceLogEvery == 0 || done == total {
			slog.Info("Commons check", "checked", done, "total", total)
		}
	}

	results, err := batch.Run(ctx, miros, opts, c.SearchMiro)

	found := make(map[string][]string)
	for i, miro := range miros {
		if results[i].Err != nil {
			slog.Debug("Commons search failed", "miro", miro, "error", results[i].Err)
			continue
		}
		if len(results[i].Value) > 0 {
			found[miro] = results[i].Value
		}
	}

	slog.Info("Commons check complete", "already_on_commons", len(found), "new", len(miros)-len(found))
	return found, err
}
