package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry is a job bound to its five-field cron expression.
type Entry struct {
	Spec     string
	Job      Job
	schedule robfig.Schedule
}

// Next returns the first fire time strictly after t, in t's location.
func (e Entry) Next(t time.Time) time.Time {
	return e.schedule.Next(t)
}

// Registry tracks registered cron jobs.
type Registry struct {
	entries []Entry
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds job under spec. Specs use the standard five fields
// (minute hour day-of-month month day-of-week).
func (r *Registry) Register(spec string, job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q for %s: %w", spec, job.Name(), err)
	}
	r.entries = append(r.entries, Entry{Spec: spec, Job: job, schedule: schedule})
	return nil
}

// Entries returns the registered entries in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
