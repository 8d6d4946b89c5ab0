package dataset

import (
	"path/filepath"
	"strings"
	"time"
)

// Record is a single known value as stored in structured dataset files.
type Record struct {
	Value string `csv:"value" parquet:"value" json:"value"`
	Kind  string `csv:"kind" parquet:"kind" json:"kind,omitempty"`
}

// LoadResult summarizes a load. Values holds the accepted values in first
// seen order without duplicates.
type LoadResult struct {
	Format       FileFormat    `json:"format"`
	Values       []string      `json:"-"`
	TotalRecords int64         `json:"total_records"`
	Accepted     int64         `json:"accepted"`
	Rejected     int64         `json:"rejected"`
	Duplicates   int64         `json:"duplicates"`
	Duration     time.Duration `json:"duration"`
	Errors       []string      `json:"errors,omitempty"`
}

// Config contains loader configuration
type Config struct {
	MaxValueLength int    `yaml:"max_value_length" mapstructure:"max_value_length"` // 256
	ValidateData   bool   `yaml:"validate_data" mapstructure:"validate_data"`       // true
	Kind           string `yaml:"kind" mapstructure:"kind"`                         // only rows of this kind, when set
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return Config{MaxValueLength: 256, ValidateData: true}
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatText    FileFormat = "text"
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatText
	}
}
