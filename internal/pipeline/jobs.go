package pipeline

import (
	"sync"
	"time"

	"github.com/tenderworks/boqd/internal/assemble"
)

// JobStatus represents the state of a consolidation job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusClassifying JobStatus = "classifying"
	StatusChunking    JobStatus = "chunking"
	StatusExtracting  JobStatus = "extracting"
	StatusAssembling  JobStatus = "assembling"
	StatusRendering   JobStatus = "rendering"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
)

// NamedFile is one uploaded tender document.
type NamedFile struct {
	Name string
	Data []byte
}

// Job tracks the state of one tender batch from upload to workbook.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	ProjectName string `json:"project_name"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Per-job overrides, set before Submit. Zero values defer to config.
	SkipExtraction     bool     `json:"-"`
	ContingencyPercent *float64 `json:"-"`
	MaxTokens          int      `json:"-"`
	OverlapTokens      int      `json:"-"`

	// Internal: not serialized.
	files    []NamedFile
	boq      *assemble.BOQ
	workbook []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalFiles        int      `json:"total_files"`
	FilesParsed       int      `json:"files_parsed"`
	TotalChunks       int      `json:"total_chunks"`
	ChunksProcessed   int      `json:"chunks_processed"`
	ItemsExtracted    int      `json:"items_extracted"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	Errors            []string `json:"errors"`
}

// NewJob builds a queued job for the given files.
func NewJob(projectName string, files []NamedFile) *Job {
	now := time.Now()
	return &Job{
		ID:          newJobID(),
		ProjectName: projectName,
		Status:      StatusQueued,
		Phase:       "queued",
		Progress:    Progress{TotalFiles: len(files)},
		CreatedAt:   now,
		UpdatedAt:   now,
		files:       files,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrFilesParsed atomically increments the parsed file count.
func (j *Job) IncrFilesParsed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesParsed++
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// SetChunksProcessed records how many chunks finished extraction.
func (j *Job) SetChunksProcessed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksProcessed = n
	j.UpdatedAt = time.Now()
}

// SetItemCounts records the extracted and post-dedup item counts.
func (j *Job) SetItemCounts(extracted, duplicatesRemoved int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ItemsExtracted = extracted
	j.Progress.DuplicatesRemoved = duplicatesRemoved
	j.UpdatedAt = time.Now()
}

// Files returns the input files.
func (j *Job) Files() []NamedFile {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.files
}

// SetResult stores the assembled BOQ and the rendered workbook.
func (j *Job) SetResult(boq *assemble.BOQ, workbook []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.boq = boq
	j.workbook = workbook
	j.UpdatedAt = time.Now()
}

// Result returns the assembled BOQ and workbook bytes, nil until the
// job has finished assembling.
func (j *Job) Result() (*assemble.BOQ, []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.boq, j.workbook
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	ProjectName string    `json:"project_name"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		ProjectName: j.ProjectName,
		Status:      j.Status,
		Phase:       j.Phase,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		Progress: Progress{
			TotalFiles:        j.Progress.TotalFiles,
			FilesParsed:       j.Progress.FilesParsed,
			TotalChunks:       j.Progress.TotalChunks,
			ChunksProcessed:   j.Progress.ChunksProcessed,
			ItemsExtracted:    j.Progress.ItemsExtracted,
			DuplicatesRemoved: j.Progress.DuplicatesRemoved,
			Errors:            errs,
		},
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
