package downloader

import (
	"sort"
	"sync"

	"spool/internal/queue"
)

// Registry is the owned, in-memory working set of jobs. All access goes
// through its lock; callers only ever see clones, so a snapshot can never be
// mutated behind the registry's back.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*queue.Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*queue.Job)}
}

// Put stores a copy of the job, replacing any entry with the same id.
func (r *Registry) Put(job *queue.Job) {
	if job == nil || job.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
}

// Get returns a copy of the job, or false when the id is unknown.
func (r *Registry) Get(id string) (*queue.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Delete removes the entry and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// Update mutates one job under the registry lock. fn reports whether its
// mutation applies; when it returns false the job is left untouched. The
// returned clone reflects the post-call state. This is the serialization
// point for every per-job field mutation.
func (r *Registry) Update(id string, fn func(*queue.Job) bool) (*queue.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	if !fn(job) {
		return job.Clone(), false
	}
	return job.Clone(), true
}

// IDs returns the ids of all entries.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns copies of all jobs (optionally scoped to one user),
// ordered by enqueue time, newest first.
func (r *Registry) Snapshot(userID string) []*queue.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*queue.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if userID != "" && job.UserID != userID {
			continue
		}
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].EnqueuedAt.Equal(jobs[j].EnqueuedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].EnqueuedAt.After(jobs[j].EnqueuedAt)
	})
	return jobs
}

// CountByStatus returns how many jobs currently hold the given status.
func (r *Registry) CountByStatus(status queue.Status) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, job := range r.jobs {
		if job.Status == status {
			count++
		}
	}
	return count
}
