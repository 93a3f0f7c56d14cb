// Package progress persists the upload checkpoint between runs.
package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Failure is one failed upload attempt
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Progress records which files were uploaded, failed or skipped
type Progress struct {
	Uploaded []string  `json:"uploaded"`
	Failed   []Failure `json:"failed"`
	Skipped  []string  `json:"skipped"`
}

// New returns an empty checkpoint
func New() *Progress {
	return &Progress{
		Uploaded: []string{},
		Failed:   []Failure{},
		Skipped:  []string{},
	}
}

// Load reads the checkpoint at path. A missing file yields an empty checkpoint.
func Load(path string) (*Progress, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	p := New()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse progress file %s: %w", path, err)
	}
	p.normalize()

	return p, nil
}

func (p *Progress) normalize() {
	if p.Uploaded == nil {
		p.Uploaded = []string{}
	}
	if p.Failed == nil {
		p.Failed = []Failure{}
	}
	if p.Skipped == nil {
		p.Skipped = []string{}
	}
}

// Save writes the checkpoint to path through a temp file and rename
func (p *Progress) Save(path string) error {
	p.normalize()

	data, err := p.marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp progress file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp progress file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move progress file into place: %w", err)
	}

	return nil
}

// marshal indents two spaces and keeps <, > and & literal in error texts
func (p *Progress) marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// IsUploaded reports whether filename has been uploaded
func (p *Progress) IsUploaded(filename string) bool {
	return slices.Contains(p.Uploaded, filename)
}

// MarkUploaded records a successful upload and clears earlier failures for it
func (p *Progress) MarkUploaded(filename string) {
	p.Uploaded = append(p.Uploaded, filename)
	p.Failed = slices.DeleteFunc(p.Failed, func(f Failure) bool {
		return f.Filename == filename
	})
}

// MarkFailed records a failed attempt
func (p *Progress) MarkFailed(filename, reason string) {
	p.Failed = append(p.Failed, Failure{Filename: filename, Error: reason})
}

// MarkSkipped records a file that already exists on Commons
func (p *Progress) MarkSkipped(filename string) {
	p.Skipped = append(p.Skipped, filename)
}

// RecentFailures returns up to the last n failures, oldest first
func (p *Progress) RecentFailures(n int) []Failure {
	if n <= 0 {
		return nil
	}
	if len(p.Failed) <= n {
		return p.Failed
	}
	return p.Failed[len(p.Failed)-n:]
}
