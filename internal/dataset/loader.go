// Package dataset loads known-value lists (names, employee ids, customer
// handles) from text, CSV, JSON and Parquet files.
package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/logger"
)

// Loader reads known values from dataset files.
type Loader struct {
	config Config
	logger *logger.Logger
}

// NewLoader creates a new loader
func NewLoader(config Config, log *logger.Logger) *Loader {
	if config.MaxValueLength <= 0 {
		config.MaxValueLength = DefaultConfig().MaxValueLength
	}
	return &Loader{config: config, logger: log}
}

// LoadFiles loads several files and merges their values in order.
func (l *Loader) LoadFiles(ctx context.Context, paths ...string) ([]string, error) {
	var merged []string
	seen := make(map[string]bool)
	for _, path := range paths {
		result, err := l.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, v := range result.Values {
			if !seen[v] {
				seen[v] = true
				merged = append(merged, v)
			}
		}
	}
	return merged, nil
}

// LoadFile reads one dataset file. The format is detected from the extension.
func (l *Loader) LoadFile(ctx context.Context, filePath string) (*LoadResult, error) {
	start := time.Now()
	format := DetectFileFormat(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", format, err)
	}
	defer file.Close()

	result := &LoadResult{Format: format}
	b := &builder{loader: l, result: result, seen: make(map[string]bool)}

	switch format {
	case FormatText:
		err = l.readText(ctx, file, b)
	case FormatCSV:
		err = l.readCSV(ctx, file, b)
	case FormatJSON:
		err = l.readJSON(ctx, file, b)
	case FormatParquet:
		err = l.readParquet(ctx, file, b)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return result, fmt.Errorf("%s processing failed: %w", format, err)
	}

	result.Duration = time.Since(start)

	l.logger.Info("Known values loaded",
		zap.String("file", filePath),
		zap.String("format", string(format)),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("accepted", result.Accepted),
		zap.Int64("rejected", result.Rejected),
		zap.Int64("duplicates", result.Duplicates),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// readText reads one value per line. Blank lines and lines starting with #
// are ignored.
func (l *Loader) readText(ctx context.Context, r io.Reader, b *builder) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.add(Record{Value: line})
	}
	return scanner.Err()
}

// readCSV uses the "value" column, or the first column when the header has
// none, and the optional "kind" column.
func (l *Loader) readCSV(ctx context.Context, r io.Reader, b *builder) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	valueCol, kindCol := 0, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "value":
			valueCol = i
		case "kind":
			kindCol = i
		}
	}
	l.logger.Debug("CSV header detected", zap.Strings("columns", header))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			b.fail(fmt.Errorf("failed to read CSV record: %w", err))
			continue
		}
		if valueCol >= len(row) {
			b.fail(fmt.Errorf("invalid CSV record length %d", len(row)))
			continue
		}
		rec := Record{Value: row[valueCol]}
		if kindCol >= 0 && kindCol < len(row) {
			rec.Kind = row[kindCol]
		}
		b.add(rec)
	}
}

// readJSON accepts a JSON array or a stream of values (JSON Lines). Each
// value is either a string or an object with a "value" field.
func (l *Loader) readJSON(ctx context.Context, r io.Reader, b *builder) error {
	decoder := json.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var doc any
		err := decoder.Decode(&doc)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read JSON record: %w", err)
		}
		if items, ok := doc.([]any); ok {
			for _, item := range items {
				b.addJSON(item)
			}
			continue
		}
		b.addJSON(doc)
	}
}

func (l *Loader) readParquet(ctx context.Context, file *os.File, b *builder) error {
	reader := parquet.NewReader(file)
	defer reader.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var record Record
		err := reader.Read(&record)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			b.fail(fmt.Errorf("failed to read Parquet record: %w", err))
			return nil
		}
		b.add(record)
	}
}

type builder struct {
	loader *Loader
	result *LoadResult
	seen   map[string]bool
}

func (b *builder) addJSON(v any) {
	switch val := v.(type) {
	case string:
		b.add(Record{Value: val})
	case map[string]any:
		rec := Record{}
		rec.Value, _ = val["value"].(string)
		rec.Kind, _ = val["kind"].(string)
		b.add(rec)
	default:
		b.fail(fmt.Errorf("unexpected JSON value of type %T", v))
	}
}

func (b *builder) add(rec Record) {
	b.result.TotalRecords++

	if !b.loader.accepts(rec) {
		b.result.Rejected++
		return
	}

	value := strings.TrimSpace(rec.Value)
	if b.seen[value] {
		b.result.Duplicates++
		return
	}
	b.seen[value] = true
	b.result.Values = append(b.result.Values, value)
	b.result.Accepted++
}

func (b *builder) fail(err error) {
	b.result.TotalRecords++
	b.result.Rejected++
	b.result.Errors = append(b.result.Errors, err.Error())
	b.loader.logger.Warn("Skipping dataset record", zap.Error(err))
}

// accepts validates a record
func (l *Loader) accepts(rec Record) bool {
	value := strings.TrimSpace(rec.Value)
	if value == "" {
		return false
	}
	if l.config.Kind != "" && rec.Kind != "" && !strings.EqualFold(rec.Kind, l.config.Kind) {
		return false
	}
	if !l.config.ValidateData {
		return true
	}
	if len(value) > l.config.MaxValueLength {
		l.logger.Debug("Invalid record: value too long", zap.Int("length", len(value)))
		return false
	}
	if strings.ContainsAny(value, "\n\r") {
		return false
	}
	return true
}
