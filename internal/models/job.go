package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// Job represents an async operation (plan submission, host network apply).
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`   // "plan-create", "plan-update", "host-network"
	Target     string     `json:"target"` // name of the plan or provider the job writes
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Output     []string   `json:"output"`
	Result     any        `json:"result,omitempty"`

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// Context is cancelled when the job is cancelled.
func (j *Job) Context() context.Context {
	return j.ctx
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = append(j.Output, line)
}

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Output) {
		return nil
	}
	lines := make([]string, len(j.Output)-offset)
	copy(lines, j.Output[offset:])
	return lines
}

// State returns the current status.
func (j *Job) State() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Finished reports whether the job stopped running.
func (j *Job) Finished() bool {
	return j.State() != JobRunning
}

func (j *Job) finish(status, errMsg string, result any) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != JobRunning {
		return false
	}
	j.Status = status
	j.Error = errMsg
	j.Result = result
	now := time.Now()
	j.FinishedAt = &now
	j.cancel()
	return true
}

// Complete marks the job as completed with an optional result.
func (j *Job) Complete(result any) {
	j.finish(JobCompleted, "", result)
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string) {
	j.finish(JobFailed, err, nil)
}

// Cancel stops a running job. It returns false if the job already finished.
func (j *Job) Cancel() bool {
	return j.finish(JobCancelled, "cancelled by user", nil)
}

// Snapshot returns a copy safe to encode while the job keeps running.
func (j *Job) Snapshot() *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return &Job{
		ID:         j.ID,
		Type:       j.Type,
		Target:     j.Target,
		Status:     j.Status,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Error:      j.Error,
		Output:     append([]string{}, j.Output...),
		Result:     j.Result,
	}
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new running job, assigning it a UUID.
func (s *JobStore) Create(jobType, target string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Target:    target,
		Status:    JobRunning,
		StartedAt: time.Now(),
		Output:    []string{},
		ctx:       ctx,
		cancel:    cancel,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result
}
