package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tenderworks/boqd/internal/config"
	"github.com/tenderworks/boqd/internal/extract"
	"github.com/tenderworks/boqd/internal/parser"
	"github.com/tenderworks/boqd/internal/pipeline"
)

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func main() {
	var (
		in          = flag.String("in", "", "tender file or directory to consolidate (required)")
		out         = flag.String("out", "", "output XLSX path (defaults to <project>.xlsx)")
		project     = flag.String("project", "", "project name (defaults to input base name)")
		template    = flag.String("template", "", "workbook template YAML path")
		contingency = flag.Float64("contingency", -1, "contingency percent override")
		workers     = flag.Int("workers", 0, "parallel file parsers (defaults to config)")
		skipExtract = flag.Bool("skip-extraction", false, "convert recognized tables directly, no LLM calls")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *in == "" {
		printError("Error: -in is required\n")
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if *template != "" {
		cfg.TemplatePath = *template
	}
	if *contingency >= 0 {
		cfg.ContingencyPercent = *contingency
	}
	if *workers > 0 {
		cfg.MaxConcurrentParse = *workers
	}

	if !*skipExtract && cfg.OpenAIAPIKey == "" {
		printError("Error: OPENAI_API_KEY is required unless -skip-extraction is set\n")
		os.Exit(1)
	}

	files, err := collectFiles(*in)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		printError("Error: no supported files under %s\n", *in)
		os.Exit(1)
	}

	projectName := *project
	if projectName == "" {
		base := filepath.Base(strings.TrimSuffix(*in, string(filepath.Separator)))
		projectName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var extractor *extract.Extractor
	if !*skipExtract {
		stats := extract.NewStats(time.Hour)
		client := extract.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		defer client.Close()
		extractor = extract.NewExtractor(client, log, stats)
	}

	worker, err := pipeline.NewWorker(cfg, extractor, log)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	job := pipeline.NewJob(projectName, files)
	job.SkipExtraction = *skipExtract

	worker.Process(context.Background(), job)

	snap := job.Snapshot()
	for _, e := range snap.Progress.Errors {
		printError("warning: %s\n", e)
	}

	boq, workbook := job.Result()
	if boq == nil {
		printError("Error: consolidation failed (status %s)\n", snap.Status)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = projectName + ".xlsx"
	}
	if workbook == nil {
		printError("Error: workbook rendering failed (status %s)\n", snap.Status)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, workbook, 0o644); err != nil {
		printError("Error: write %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d items in %d sections", outPath, boq.TotalItems, len(boq.Sections))
	if boq.DuplicatesRemoved > 0 {
		fmt.Printf(", %d duplicates merged", boq.DuplicatesRemoved)
	}
	fmt.Printf(", grand total %.2f\n", boq.GrandTotal)
}

// collectFiles gathers the supported files under path, in walk order.
func collectFiles(path string) ([]pipeline.NamedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var files []pipeline.NamedFile
	add := func(p string) error {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, pipeline.NamedFile{Name: filepath.Base(p), Data: data})
		return nil
	}

	if !info.IsDir() {
		if !parser.IsSupportedExtension(path) {
			return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
		}
		if err := add(path); err != nil {
			return nil, err
		}
		return files, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !parser.IsSupportedExtension(p) {
			return nil
		}
		return add(p)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
