package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/quantfold/countfit/compress"
	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/internal/options"
)

// writeConfig holds IO settings shared by the CSV and binary writers.
type writeConfig struct {
	kind compress.Kind
}

// WriteOption configures dataset file writers.
type WriteOption = options.Option[*writeConfig]

// WithCompression selects the compression codec explicitly, overriding
// detection from the file extension.
func WithCompression(kind compress.Kind) WriteOption {
	return options.New(func(cfg *writeConfig) error {
		if !kind.Valid() {
			return fmt.Errorf("%w: compression kind %d", errs.ErrInvalidFormat, kind)
		}
		cfg.kind = kind

		return nil
	})
}

// ReadCSV reads a dataset from a CSV file with a header row. The compression
// codec is inferred from the file extension (.zst, .s2, .lz4); any other
// extension is treated as plain text.
func ReadCSV(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	codec, err := compress.ForKind(compress.DetectKind(path))
	if err != nil {
		return nil, err
	}
	text, err := codec.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}

	records, err := csv.NewReader(bytes.NewReader(text)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", errs.ErrEmptyDataset, path)
	}

	names := records[0]
	rows := make([][]float64, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %q", errs.ErrInvalidFormat, i+1, j, field)
			}
			row[j] = v
		}
		rows[i] = row
	}

	return FromRows(names, rows)
}

// WriteCSV writes the dataset as CSV with a header row. The compression codec
// is inferred from the file extension unless WithCompression overrides it.
// Values are formatted with strconv 'g' so the file round-trips exactly.
func (d *Dataset) WriteCSV(path string, opts ...WriteOption) error {
	cfg := &writeConfig{kind: compress.DetectKind(path)}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(d.names); err != nil {
		return err
	}

	record := make([]string, len(d.cols))
	for i := 0; i < d.NumRows(); i++ {
		for j, col := range d.cols {
			record[j] = strconv.FormatFloat(col[i], 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	codec, err := compress.ForKind(cfg.kind)
	if err != nil {
		return err
	}
	payload, err := codec.Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to compress %s: %w", path, err)
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
