// Package commons is a small MediaWiki API client for Wikimedia Commons:
// bot login, file existence checks, Miro number search and file upload.
package commons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/batch"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"golang.org/x/time/rate"
)

// Client talks to the Commons action API. It keeps the session cookie and
// csrf token between calls and is not safe for concurrent uploads.
type Client struct {
	APIURL    string
	UserAgent string
	MaxLag    int

	httpClient   *http.Client
	uploadClient *http.Client
	limiter      *rate.Limiter
	search       batch.Options
	csrfToken    string
}

// NewClient creates a new Commons client
func NewClient(cfg config.CommonsConfig) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), max(cfg.SearchWorkers, 1))
	}

	return &Client{
		APIURL:    cfg.APIURL,
		UserAgent: cfg.UserAgent,
		MaxLag:    cfg.MaxLag,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		uploadClient: &http.Client{
			Timeout: cfg.UploadTimeout,
			Jar:     jar,
		},
		limiter: limiter,
		search: batch.Options{
			BatchSize: cfg.SearchBatchSize,
			Workers:   cfg.SearchWorkers,
			Delay:     cfg.SearchDelay,
		},
	}, nil
}

// Login signs in with a bot password from Special:BotPasswords
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {"login"},
	})
	if err != nil {
		return fmt.Errorf("failed to get login token: %w", err)
	}
	loginToken, err := resp.GetString("query", "tokens", "logintoken")
	if err != nil {
		return fmt.Errorf("login token missing from response: %w", err)
	}

	resp, err = c.post(ctx, url.Values{
		"action":     {"login"},
		"lgname":     {username},
		"lgpassword": {password},
		"lgtoken":    {loginToken},
	})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}

	result, _ := resp.GetString("login", "result")
	if result != "Success" {
		reason, _ := resp.GetString("login", "reason")
		return fmt.Errorf("login as %s failed: %s %s", username, result, reason)
	}

	user, _ := resp.GetString("login", "lgusername")
	slog.Info("Logged in to Commons", "user", user)
	c.csrfToken = ""
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.csrfToken != "" {
		return c.csrfToken, nil
	}
	resp, err := c.get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get csrf token: %w", err)
	}
	token, err := resp.GetString("query", "tokens", "csrftoken")
	if err != nil {
		return "", fmt.Errorf("csrf token missing from response: %w", err)
	}
	c.csrfToken = token
	return token, nil
}

// FileExists reports whether File:filename already has a page on Commons
func (c *Client) FileExists(ctx context.Context, filename string) (bool, error) {
	resp, err := c.get(ctx, url.Values{
		"action": {"query"},
		"titles": {"File:" + filename},
	})
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", filename, err)
	}

	pages, err := resp.GetObjectArray("query", "pages")
	if err != nil || len(pages) == 0 {
		return false, fmt.Errorf("no page information returned for %s", filename)
	}

	page := pages[0]
	if missing, err := page.GetBoolean("missing"); err == nil && missing {
		return false, nil
	}
	if invalid, err := page.GetBoolean("invalid"); err == nil && invalid {
		reason, _ := page.GetString("invalidreason")
		return false, fmt.Errorf("invalid title File:%s: %s", filename, reason)
	}
	return true, nil
}

// SearchMiro returns the titles of File pages whose title contains miro
func (c *Client) SearchMiro(ctx context.Context, miro string) ([]string, error) {
	resp, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"list":        {"search"},
		"srnamespace": {"6"},
		"srsearch":    {`intitle:"` + miro + `"`},
		"srlimit":     {"5"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search for %s: %w", miro, err)
	}

	hits, err := resp.GetObjectArray("query", "search")
	if err != nil {
		return nil, nil
	}

	var titles []string
	for _, hit := range hits {
		title, err := hit.GetString("title")
		if err != nil {
			continue
		}
		if strings.Contains(title, miro) {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// Upload sends content as File:filename with text as its description page.
// Warnings such as duplicates are not ignored and fail with ErrUploadWarning.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader, text, comment string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	err = c.upload(ctx, filename, data, text, comment)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "badtoken" {
		slog.Debug("csrf token rejected, refreshing", "filename", filename)
		c.csrfToken = ""
		err = c.upload(ctx, filename, data, text, comment)
	}
	return err
}

func (c *Client) upload(ctx context.Context, filename string, data []byte, text, comment string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := c.withDefaults(url.Values{
		"action":   {"upload"},
		"filename": {filename},
		"comment":  {comment},
		"text":     {text},
	})
	for key, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				return fmt.Errorf("failed to write form field %s: %w", key, err)
			}
		}
	}
	// token must follow the other fields
	if err := mw.WriteField("token", token); err != nil {
		return fmt.Errorf("failed to write form field token: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(c.uploadClient, req)
	if err != nil {
		return err
	}

	result, _ := resp.GetString("upload", "result")
	switch result {
	case "Success":
		return nil
	case "Warning":
		warnings, _ := resp.GetObject("upload", "warnings")
		detail := ""
		if warnings != nil {
			detail = warnings.String()
		}
		return fmt.Errorf("%w: %s", ErrUploadWarning, detail)
	default:
		return fmt.Errorf("upload of %s returned result %q", filename, result)
	}
}

func (c *Client) withDefaults(params url.Values) url.Values {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	if c.MaxLag > 0 {
		params.Set("maxlag", strconv.Itoa(c.MaxLag))
	}
	return params
}

func (c *Client) get(ctx context.Context, params url.Values) (*jason.Object, error) {
	reqURL := c.APIURL + "?" + c.withDefaults(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(c.httpClient, req)
}

func (c *Client) post(ctx context.Context, params url.Values) (*jason.Object, error) {
	form := c.withDefaults(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(c.httpClient, req)
}

func (c *Client) do(client *http.Client, req *http.Request) (*jason.Object, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	slog.Debug("Commons API request", "method", req.Method, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode commons response: %w", err)
	}

	if apiErr, err := obj.GetObject("error"); err == nil {
		code, _ := apiErr.GetString("code")
		info, _ := apiErr.GetString("info")
		return nil, &APIError{Code: code, Info: info}
	}

	return obj, nil
}
