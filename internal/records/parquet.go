package records

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes rows to a parquet file at path
func WriteParquet(path string, rows []Record) error {
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

// Load reads an export produced by fetch. The format follows the extension.
func Load(path string) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".csv":
		return ReadCSV(path)
	case ".parquet":
		return loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .csv, .parquet)", ext)
	}
}

func loadParquet(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "path", path, "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	rows := make([]Record, 0, pf.NumRows())
	buf := make([]Record, 128)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	return rows, nil
}
