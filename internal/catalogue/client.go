package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/batch"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
)

// WorkInclude is the include parameter sent with every work detail request
const WorkInclude = "contributors,subjects,genres,identifiers,production"

// Client talks to the Wellcome Collection catalogue API
type Client struct {
	BaseURL   string
	UserAgent string
	PageSize  int

	httpClient *http.Client
	pageDelay  time.Duration
	workBatch  batch.Options
	maxRetries int
	retryBase  time.Duration
}

// StatusError is returned when the API answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalogue API returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new catalogue client
func NewClient(cfg config.CatalogueConfig) *Client {
	return &Client{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		PageSize:  cfg.PageSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		pageDelay: cfg.PageDelay,
		workBatch: batch.Options{
			BatchSize: cfg.WorkBatchSize,
			Workers:   cfg.WorkWorkers,
			Delay:     cfg.BatchDelay,
		},
		maxRetries: cfg.MaxRetries,
		retryBase:  time.Second,
	}
}

// SearchImages pages through the images endpoint until a page comes back
// shorter than the page size, pausing pageDelay after every full page
func (c *Client) SearchImages(ctx context.Context, query url.Values, include string) ([]Image, error) {
	var all []Image

	for page := 1; ; page++ {
		params := url.Values{}
		for k, v := range query {
			params[k] = v
		}
		params.Set("pageSize", strconv.Itoa(c.PageSize))
		params.Set("page", strconv.Itoa(page))
		if include != "" {
			params.Set("include", include)
		}

		var resp ImagesResponse
		if err := c.getJSON(ctx, c.BaseURL+"/images?"+params.Encode(), &resp); err != nil {
			return all, fmt.Errorf("failed to fetch images page %d: %w", page, err)
		}

		all = append(all, resp.Results...)
		slog.Info("Fetched images page", "page", page, "count", len(resp.Results), "total", len(all))

		if len(resp.Results) < c.PageSize {
			break
		}

		if err := batch.Sleep(ctx, c.pageDelay); err != nil {
			return all, err
		}
	}

	return all, nil
}

// FetchWork fetches the detail record of a single work
func (c *Client) FetchWork(ctx context.Context, workID string) (Work, error) {
	params := url.Values{"include": {WorkInclude}}
	workURL := fmt.Sprintf("%s/works/%s?%s", c.BaseURL, url.PathEscape(workID), params.Encode())

	var work Work
	if err := c.getJSON(ctx, workURL, &work); err != nil {
		return Work{}, fmt.Errorf("failed to fetch work %s: %w", workID, err)
	}
	return work, nil
}

// FetchWorks fetches work details in parallel batches. Every id is present in
// the result; a work that could not be fetched maps to the zero Work.
func (c *Client) FetchWorks(ctx context.Context, workIDs []string) (map[string]Work, error) {
	opts := c.workBatch
	opts.OnBatch = func(done, total int) {
		slog.Info("Work details fetched", "progress", fmt.Sprintf("%d/%d", done, total))
	}

	results, err := batch.Run(ctx, workIDs, opts, c.FetchWork)

	works := make(map[string]Work, len(workIDs))
	for i, id := range workIDs {
		if results[i].Err != nil {
			slog.Warn("Failed to fetch work", "work_id", id, "error", results[i].Err)
		}
		works[id] = results[i].Value
	}

	return works, err
}

// UniqueWorkIDs returns the distinct source work ids in first-seen order
func UniqueWorkIDs(images []Image) []string {
	seen := make(map[string]struct{}, len(images))
	ids := make([]string, 0, len(images))
	for _, img := range images {
		if img.Source.ID == "" {
			continue
		}
		if _, ok := seen[img.Source.ID]; ok {
			continue
		}
		seen[img.Source.ID] = struct{}{}
		ids = append(ids, img.Source.ID)
	}
	return ids
}

// getJSON performs a GET with retries on throttling and server errors
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryBase * time.Duration(1<<(attempt-1))
			slog.Debug("Retrying catalogue request", "url", rawURL, "attempt", attempt+1, "wait", wait)
			if err := batch.Sleep(ctx, wait); err != nil {
				return err
			}
		}

		err := c.doGet(ctx, rawURL, v)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) doGet(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode catalogue response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	// transport errors (timeouts, resets) are worth another attempt
	var ue *url.Error
	return errors.As(err, &ue)
}
