package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/dataset"
	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/privacy"
	"github.com/raaihank/llm-redactor/internal/redaction"
	"github.com/raaihank/llm-redactor/internal/session"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		knownValues  = flag.String("known-values", "", "Comma-separated known-value files (txt, csv, json, parquet)")
		inputFile    = flag.String("input", "", "Input file to redact, - for stdin")
		outputFile   = flag.String("output", "", "Write redacted text here instead of stdout")
		restoreFile  = flag.String("restore", "", "File with tokens to restore against the same session")
		sessionID    = flag.String("session", "batch", "Session id used for the run")
		jsonInput    = flag.Bool("json", false, "Redact string values of a JSON document")
		validateOnly = flag.Bool("validate-only", false, "Only validate the catalog and known values")
		showStats    = flag.Bool("stats", false, "Print session statistics to stderr")
	)
	flag.Parse()

	if *inputFile == "" && !*validateOnly {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --validate-only --known-values names.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input transcript.txt --stats\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input request.json --json --restore reply.json\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the redacted output.
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Output: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	values, err := loadKnownValues(ctx, cfg, splitList(*knownValues), *validateOnly, log)
	if err != nil {
		log.Fatal("Failed to load known values", zap.Error(err))
	}

	detector, err := privacy.New(cfg.Privacy, values, log.WithComponent("privacy"))
	if err != nil {
		log.Fatal("Invalid pattern catalog", zap.Error(err))
	}

	if *validateOnly {
		printCatalog(detector, len(values))
		return
	}

	engine := redaction.New(detector, session.NewMemoryStore(), log.WithComponent("redaction"))

	input, err := readInput(*inputFile)
	if err != nil {
		log.Fatal("Failed to read input", zap.Error(err))
	}

	var redacted []byte
	if *jsonInput {
		redacted, _, err = engine.RedactJSON(*sessionID, input)
		if err != nil {
			log.Fatal("Failed to redact JSON input", zap.Error(err))
		}
	} else {
		redacted = []byte(engine.Redact(*sessionID, string(input)).Text)
	}

	if err := writeOutput(*outputFile, redacted); err != nil {
		log.Fatal("Failed to write output", zap.Error(err))
	}

	if *restoreFile != "" {
		reply, err := os.ReadFile(*restoreFile)
		if err != nil {
			log.Fatal("Failed to read restore input", zap.Error(err))
		}
		var restored []byte
		if *jsonInput {
			restored, err = engine.RestoreJSON(*sessionID, reply)
			if err != nil {
				log.Fatal("Failed to restore JSON reply", zap.Error(err))
			}
		} else {
			restored = []byte(engine.Restore(*sessionID, string(reply)))
		}
		fmt.Fprintln(os.Stdout, "--- restored ---")
		fmt.Fprintln(os.Stdout, string(restored))
	}

	if *showStats {
		stats, _ := json.MarshalIndent(engine.Stats(*sessionID), "", "  ")
		fmt.Fprintln(os.Stderr, string(stats))
	}
}

// loadKnownValues merges the configured file with the command line files.
// In validate mode each file is loaded separately so its counters can be
// reported.
func loadKnownValues(ctx context.Context, cfg *config.Config, files []string, report bool, log *logger.Logger) ([]string, error) {
	if !report {
		return dataset.LoadKnownValues(ctx, cfg.Privacy.KnownValues, files, log.WithComponent("dataset"))
	}

	if cfg.Privacy.KnownValues.File != "" {
		files = append([]string{cfg.Privacy.KnownValues.File}, files...)
	}

	loaderConfig := dataset.DefaultConfig()
	loaderConfig.Kind = cfg.Privacy.KnownValues.Kind
	loader := dataset.NewLoader(loaderConfig, log.WithComponent("dataset"))

	var values []string
	seen := make(map[string]bool)
	for _, f := range files {
		result, err := loader.LoadFile(ctx, f)
		if err != nil {
			return nil, err
		}
		fmt.Printf("%s (%s): %d records, %d accepted, %d rejected, %d duplicates\n",
			f, result.Format, result.TotalRecords, result.Accepted, result.Rejected, result.Duplicates)
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
		for _, v := range result.Values {
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	return values, nil
}

func printCatalog(detector *privacy.Detector, knownValues int) {
	fmt.Println("Pattern catalog is valid")
	for _, rule := range detector.Catalog().Rules() {
		state := "disabled"
		if rule.Enabled {
			state = "enabled"
		}
		fmt.Printf("  %-16s %-14s priority=%-4d %s\n", rule.Name, rule.Kind, rule.Priority, state)
	}
	fmt.Printf("Known values: %d\n", knownValues)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
