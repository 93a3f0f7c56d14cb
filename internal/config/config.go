package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a fetch or upload run
type Config struct {
	Catalogue CatalogueConfig `yaml:"catalogue"`
	Commons   CommonsConfig   `yaml:"commons"`
	Download  DownloadConfig  `yaml:"download"`
	Storage   StorageConfig   `yaml:"storage"`
}

// CatalogueConfig configures the Wellcome Collection catalogue client
type CatalogueConfig struct {
	BaseURL       string        `yaml:"base_url"`
	IIIFBaseURL   string        `yaml:"iiif_base_url"`
	SiteURL       string        `yaml:"site_url"`
	UserAgent     string        `yaml:"user_agent"`
	PageSize      int           `yaml:"page_size"`
	PageDelay     time.Duration `yaml:"page_delay"`
	Timeout       time.Duration `yaml:"timeout"`
	WorkBatchSize int           `yaml:"work_batch_size"`
	WorkWorkers   int           `yaml:"work_workers"`
	BatchDelay    time.Duration `yaml:"batch_delay"`
	MaxRetries    int           `yaml:"max_retries"`
}

// CommonsConfig configures the Wikimedia Commons client
type CommonsConfig struct {
	APIURL           string        `yaml:"api_url"`
	UserAgent        string        `yaml:"user_agent"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"-"`
	Timeout          time.Duration `yaml:"timeout"`
	UploadTimeout    time.Duration `yaml:"upload_timeout"`
	MaxLag           int           `yaml:"maxlag"`
	RequestsPerSec   float64       `yaml:"requests_per_second"` // 0 means unlimited
	SearchBatchSize  int           `yaml:"search_batch_size"`
	SearchWorkers    int           `yaml:"search_workers"`
	SearchDelay      time.Duration `yaml:"search_delay"`
	UploadDelay      time.Duration `yaml:"upload_delay"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
	UploadComment    string        `yaml:"upload_comment"`
}

// DownloadConfig configures the image downloader
type DownloadConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	Workers    int           `yaml:"workers"`
	BatchDelay time.Duration `yaml:"batch_delay"`
	Timeout    time.Duration `yaml:"timeout"`
	MinSize    int64         `yaml:"min_size"`
	UserAgent  string        `yaml:"user_agent"`
}

// StorageConfig selects where image blobs live
type StorageConfig struct {
	Backend string      `yaml:"backend"` // "fs" or "minio"
	MinIO   MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds the S3-compatible endpoint used by the minio backend
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

const (
	BackendFS    = "fs"
	BackendMinIO = "minio"
)

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Catalogue: CatalogueConfig{
			BaseURL:       "https://api.wellcomecollection.org/catalogue/v2",
			IIIFBaseURL:   "https://iiif.wellcomecollection.org/image",
			SiteURL:       "https://wellcomecollection.org",
			UserAgent:     "WellcomeDownloader/1.0",
			PageSize:      100,
			PageDelay:     300 * time.Millisecond,
			Timeout:       30 * time.Second,
			WorkBatchSize: 50,
			WorkWorkers:   10,
			BatchDelay:    500 * time.Millisecond,
			MaxRetries:    3,
		},
		Commons: CommonsConfig{
			APIURL:           "https://commons.wikimedia.org/w/api.php",
			UserAgent:        "WellcomeCommonsCheck/1.0",
			Timeout:          15 * time.Second,
			UploadTimeout:    5 * time.Minute,
			MaxLag:           5,
			RequestsPerSec:   20,
			SearchBatchSize:  30,
			SearchWorkers:    10,
			SearchDelay:      500 * time.Millisecond,
			UploadDelay:      2 * time.Second,
			RateLimitBackoff: 30 * time.Second,
			UploadComment:    "Batch upload of pathology images from the Wellcome Collection (SB Lucas), CC0 licensed",
		},
		Download: DownloadConfig{
			BatchSize:  50,
			Workers:    12,
			BatchDelay: 500 * time.Millisecond,
			Timeout:    60 * time.Second,
			MinSize:    1000,
			UserAgent:  "Mozilla/5.0",
		},
		Storage: StorageConfig{
			Backend: BackendFS,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Catalogue.BaseURL, "WELLCOME_API_URL")
	setString(&c.Commons.APIURL, "COMMONS_API_URL")
	setString(&c.Commons.Username, "COMMONS_BOT_USERNAME")
	setString(&c.Commons.Password, "COMMONS_BOT_PASSWORD")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Storage.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.MinIO.Bucket, "MINIO_BUCKET")
	if v, ok := os.LookupEnv("MINIO_USE_SSL"); ok {
		c.Storage.MinIO.UseSSL = v == "true"
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate rejects settings that would stall or misroute a run
func (c *Config) Validate() error {
	positive := map[string]int{
		"catalogue.page_size":       c.Catalogue.PageSize,
		"catalogue.work_batch_size": c.Catalogue.WorkBatchSize,
		"catalogue.work_workers":    c.Catalogue.WorkWorkers,
		"catalogue.max_retries":     c.Catalogue.MaxRetries,
		"commons.search_batch_size": c.Commons.SearchBatchSize,
		"commons.search_workers":    c.Commons.SearchWorkers,
		"download.batch_size":       c.Download.BatchSize,
		"download.workers":          c.Download.Workers,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("invalid config: %s must be positive, got %d", name, v)
		}
	}

	if c.Commons.RequestsPerSec < 0 {
		return fmt.Errorf("invalid config: commons.requests_per_second must not be negative, got %g", c.Commons.RequestsPerSec)
	}

	switch c.Storage.Backend {
	case BackendFS:
	case BackendMinIO:
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("invalid config: minio backend requires MINIO_ENDPOINT and MINIO_BUCKET")
		}
	default:
		return fmt.Errorf("invalid config: unknown storage backend %q (supported: fs, minio)", c.Storage.Backend)
	}

	return nil
}
