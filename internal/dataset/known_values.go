package dataset

import (
	"context"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/logger"
)

// LoadKnownValues reads the known-value file named in cfg plus any extra
// files. Inline values from cfg are not included; the catalog merges those
// itself.
func LoadKnownValues(ctx context.Context, cfg config.KnownValuesConfig, extraFiles []string, log *logger.Logger) ([]string, error) {
	var files []string
	if cfg.File != "" {
		files = append(files, cfg.File)
	}
	files = append(files, extraFiles...)
	if len(files) == 0 {
		return nil, nil
	}

	loaderConfig := DefaultConfig()
	loaderConfig.Kind = cfg.Kind
	return NewLoader(loaderConfig, log).LoadFiles(ctx, files...)
}
