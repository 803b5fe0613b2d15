package cron

import "context"

// Job is a unit of background work run by the worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by name in registration order.
type Registry struct {
	jobs  []Job
	index map[string]int
}

// NewRegistry builds a registry preloaded with jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job. A job with the same name replaces the earlier one in place.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if i, ok := r.index[job.Name()]; ok {
		r.jobs[i] = job
		return
	}
	r.index[job.Name()] = len(r.jobs)
	r.jobs = append(r.jobs, job)
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.jobs[i], true
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
