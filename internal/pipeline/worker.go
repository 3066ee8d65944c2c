package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/tenderworks/boqd/internal/assemble"
	"github.com/tenderworks/boqd/internal/chunker"
	"github.com/tenderworks/boqd/internal/classify"
	"github.com/tenderworks/boqd/internal/config"
	"github.com/tenderworks/boqd/internal/document"
	"github.com/tenderworks/boqd/internal/extract"
	"github.com/tenderworks/boqd/internal/parser"
	"github.com/tenderworks/boqd/internal/render"
)

// textCategories are the content kinds worth sending to the model for
// line-item extraction. Everything else (drawings registers, contract
// boilerplate, cover letters) only dilutes the prompts.
var textCategories = []classify.Category{
	classify.BillOfQuantities,
	classify.PricingSchedule,
	classify.ScopeOfWork,
	classify.TechnicalSpecifications,
}

// tableCategories are the table kinds treated as line-item sources.
var tableCategories = []classify.Category{
	classify.BillOfQuantities,
	classify.PricingSchedule,
}

// Worker runs the full consolidation pipeline for one job.
type Worker struct {
	extractor  *extract.Extractor
	classifier *classify.Classifier
	chunks     *chunker.Chunker
	counter    chunker.TokenCounter
	assembler  *assemble.Assembler
	generator  *render.Generator
	parseOpts  parser.Options
	cfg        config.Config
	log        *slog.Logger

	maxConcurrentParse int
}

// NewWorker wires the pipeline stages from config. Catalog and template
// paths are optional; built-in defaults apply when empty.
func NewWorker(cfg config.Config, extractor *extract.Extractor, log *slog.Logger) (*Worker, error) {
	catalog := classify.DefaultCatalog()
	if cfg.CategoryCatalogPath != "" {
		var err error
		catalog, err = classify.LoadCatalog(cfg.CategoryCatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load category catalog: %w", err)
		}
	}

	sections := assemble.DefaultSections()
	if cfg.SectionCatalogPath != "" {
		var err error
		sections, err = assemble.LoadSections(cfg.SectionCatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load section catalog: %w", err)
		}
	}

	tpl := render.DefaultTemplate()
	if cfg.TemplatePath != "" {
		var err error
		tpl, err = render.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
	}

	counter := chunker.NewCounter(cfg.OpenAIModel)
	return &Worker{
		extractor:  extractor,
		classifier: classify.NewClassifier(catalog, cfg.ClassifierMinConfidence),
		chunks:     chunker.New(cfg.DefaultChunkSize, cfg.DefaultChunkOverlap, counter),
		counter:    counter,
		assembler:  assemble.NewAssembler(sections, cfg.SimilarityThreshold),
		generator:  render.NewGenerator(tpl),
		parseOpts: parser.Options{
			MinPageTextChars:  cfg.MinPageTextChars,
			OCREnabled:        cfg.OCREnabled,
			OCRLanguage:       cfg.OCRLanguage,
			OCRDPI:            cfg.OCRDPI,
			FallbackPdftotext: cfg.PDFFallbackPdftotext,
		},
		cfg:                cfg,
		log:                log,
		maxConcurrentParse: cfg.MaxConcurrentParse,
	}, nil
}

// Process runs the job end to end: parse, classify, chunk, extract,
// assemble, render.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "project", job.ProjectName)

	// Phase 1: Parse files in parallel with a join barrier. Results
	// land at the file's own index so batch order stays deterministic.
	job.SetStatus(StatusParsing, "parsing")
	files := job.Files()
	results := w.parseFiles(ctx, job, files, log)

	parsed := 0
	for _, r := range results {
		if r != nil {
			parsed++
		}
	}
	if parsed == 0 {
		log.Error("no files could be parsed")
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	log.Info("parsing complete", "files", parsed, "of", len(files))

	// Phase 2: Classify every fragment and table.
	job.SetStatus(StatusClassifying, "classifying")
	var fragments []document.Fragment
	var tables []document.Table
	for _, r := range results {
		if r == nil {
			continue
		}
		fragments = append(fragments, r.Fragments...)
		tables = append(tables, r.Tables...)
	}
	byCategory := w.classifier.ClassifyAll(fragments, tables)

	// Phase 3: Chunk the extraction-worthy text.
	job.SetStatus(StatusChunking, "chunking")
	var docs []chunker.Document
	for _, cat := range textCategories {
		for _, c := range byCategory[cat] {
			if c.IsTable {
				continue
			}
			docs = append(docs, chunker.Document{
				Text:    c.Fragment.Text,
				Page:    c.Fragment.PageNumber,
				Section: c.Fragment.SectionTitle,
			})
		}
	}
	chunks := w.chunks
	if job.MaxTokens > 0 || job.OverlapTokens > 0 {
		maxTokens := job.MaxTokens
		if maxTokens <= 0 {
			maxTokens = w.cfg.DefaultChunkSize
		}
		overlap := job.OverlapTokens
		if overlap <= 0 {
			overlap = w.cfg.DefaultChunkOverlap
		}
		chunks = chunker.New(maxTokens, overlap, w.counter)
	}
	segments := chunks.ChunkDocuments(docs)
	job.SetTotalChunks(len(segments))

	var itemTables []document.Table
	for _, cat := range tableCategories {
		for _, c := range byCategory[cat] {
			if c.IsTable {
				itemTables = append(itemTables, *c.Table)
			}
		}
	}
	log.Info("content selected", "chunks", len(segments), "tables", len(itemTables))

	if len(segments) == 0 && len(itemTables) == 0 {
		job.AddError("no bill-of-quantities content found in input")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 4: Extract line items.
	job.SetStatus(StatusExtracting, "extracting")
	var result extract.Result
	if job.SkipExtraction {
		result = w.convertTables(itemTables)
	} else {
		pctx := extract.Context{ProjectName: job.ProjectName, DocumentType: "tender documents"}
		result = w.extractor.ExtractSegments(ctx, segments, pctx)
		result.Merge(w.extractor.ExtractTables(ctx, itemTables, pctx))
	}
	job.SetChunksProcessed(result.SuccessfulChunks + result.FailedChunks)
	for _, e := range result.Errors {
		job.AddError(e)
	}
	log.Info("extraction complete",
		"items", len(result.Items),
		"failed_chunks", result.FailedChunks,
		"avg_confidence", result.AverageConfidence)

	if len(result.Items) == 0 {
		job.SetStatus(StatusFailed, "extracting")
		return
	}

	// Phase 5: Assemble the consolidated BOQ.
	job.SetStatus(StatusAssembling, "assembling")
	contingency := w.cfg.ContingencyPercent
	if job.ContingencyPercent != nil {
		contingency = *job.ContingencyPercent
	}
	boq := w.assembler.Assemble(job.ProjectName, result.Items, contingency)
	job.SetItemCounts(len(result.Items), boq.DuplicatesRemoved)
	log.Info("assembly complete",
		"sections", len(boq.Sections),
		"total_items", boq.TotalItems,
		"duplicates_removed", boq.DuplicatesRemoved,
		"grand_total", boq.GrandTotal)

	// Phase 6: Render the workbook.
	job.SetStatus(StatusRendering, "rendering")
	workbook, err := w.generator.Generate(boq)
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
		job.SetResult(boq, nil)
		job.SetStatus(StatusPartial, "rendering")
		return
	}
	job.SetResult(boq, workbook)

	if parsed < len(files) || len(result.Errors) > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// parseFiles fans the batch out over a bounded pool and waits for all
// of them. The returned slice is indexed by input file; failed files
// stay nil with their errors recorded on the job.
func (w *Worker) parseFiles(ctx context.Context, job *Job, files []NamedFile, log *slog.Logger) []*document.ParseResult {
	results := make([]*document.ParseResult, len(files))
	sem := make(chan struct{}, w.maxConcurrentParse)
	var wg sync.WaitGroup

	for i, file := range files {
		if ctx.Err() != nil {
			job.AddError(fmt.Sprintf("%s: %s", file.Name, ctx.Err()))
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, file NamedFile) {
			defer wg.Done()
			defer func() { <-sem }()

			p, err := parser.ForFile(file.Name, w.parseOpts)
			if err != nil {
				log.Warn("unsupported file", "file", file.Name, "error", err)
				job.AddError(fmt.Sprintf("%s: %s", file.Name, err))
				return
			}
			result, err := p.Parse(bytes.NewReader(file.Data), file.Name)
			if err != nil {
				log.Error("parse failed", "file", file.Name, "error", err)
				job.AddError(fmt.Sprintf("%s: parse: %s", file.Name, err))
				return
			}
			for _, e := range result.Errors {
				job.AddError(fmt.Sprintf("%s: %s", file.Name, e))
			}
			for _, warn := range result.Warnings {
				job.AddError(fmt.Sprintf("%s: %s", file.Name, warn))
			}
			results[i] = result
			job.IncrFilesParsed()
		}(i, file)
	}
	wg.Wait()
	return results
}

// convertTables turns classified BOQ tables into items without calling
// the model, for runs that bypass remote extraction. Column meaning is
// resolved from header names.
func (w *Worker) convertTables(tables []document.Table) extract.Result {
	var result extract.Result
	for ti := range tables {
		table := &tables[ti]
		cols := mapColumns(table.Headers)
		if cols.description < 0 {
			result.FailedChunks++
			result.Errors = append(result.Errors,
				fmt.Sprintf("table %d: no description column recognized", ti))
			continue
		}

		conf := table.Confidence
		if conf <= 0 {
			conf = 0.9
		}
		for _, row := range table.Rows {
			item := extract.Item{
				ItemNumber:  cellAt(row, cols.itemNumber),
				Description: strings.TrimSpace(cellAt(row, cols.description)),
				Unit:        cellAt(row, cols.unit),
				Quantity:    parseNumber(cellAt(row, cols.quantity)),
				Rate:        parseNumber(cellAt(row, cols.rate)),
				Amount:      parseNumber(cellAt(row, cols.amount)),
				Confidence:  conf,
				SourcePage:  table.PageNumber,
			}
			if item.Description == "" {
				continue
			}
			result.Items = append(result.Items, item)
		}
		result.SuccessfulChunks++
	}
	result.TotalChunks = len(tables)
	if result.SuccessfulChunks > 0 {
		result.AverageConfidence = 0.9
	}
	return result
}

type columnMap struct {
	itemNumber  int
	description int
	unit        int
	quantity    int
	rate        int
	amount      int
}

// mapColumns resolves BOQ column meaning from header names. Unmatched
// columns are -1.
func mapColumns(headers []string) columnMap {
	cols := columnMap{itemNumber: -1, description: -1, unit: -1, quantity: -1, rate: -1, amount: -1}
	match := func(h string, words ...string) bool {
		for _, word := range words {
			if strings.Contains(h, word) {
				return true
			}
		}
		return false
	}
	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		switch {
		case cols.description < 0 && match(h, "description", "particular", "work item", "scope"):
			cols.description = i
		case cols.quantity < 0 && match(h, "qty", "quantity"):
			cols.quantity = i
		case cols.rate < 0 && match(h, "rate", "unit price", "price"):
			cols.rate = i
		case cols.unit < 0 && match(h, "unit", "uom"):
			cols.unit = i
		case cols.amount < 0 && match(h, "amount", "total", "value"):
			cols.amount = i
		case cols.itemNumber < 0 && match(h, "item", "no.", "ref", "code", "#"):
			cols.itemNumber = i
		}
	}
	return cols
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", "£", "", "€", "", " ", "")

func parseNumber(s string) *float64 {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
