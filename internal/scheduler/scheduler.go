package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/letterbox/letterbox/internal/event_bus"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var ErrJobNotFound = errors.New("job not found")
var ErrDuplicateJob = errors.New("job already registered")

// Job is a named unit of work triggered by a cron spec.
type Job interface {
	Name() string
	Spec() string
	Run(ctx context.Context) error
}

type RunInfo struct {
	RunId    string
	Started  time.Time
	Duration time.Duration
	Error    string
}

type Entry struct {
	Name    string
	Spec    string
	Next    time.Time
	Prev    time.Time
	LastRun *RunInfo
}

type registered struct {
	job     Job
	entryId cron.EntryID
	lastRun *RunInfo
}

// Registry owns the cron instance and every job registered on it.
type Registry struct {
	mu       sync.Mutex
	loc      *time.Location
	cron     *cron.Cron
	jobs     map[string]*registered
	started  bool
	eventBus *event_bus.EventBus
}

func New(timezone string, eventBus *event_bus.EventBus) *Registry {
	loc := loadLocation(timezone)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Registry{
		loc:      loc,
		cron:     cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		jobs:     make(map[string]*registered),
		eventBus: eventBus,
	}
}

func loadLocation(timezone string) *time.Location {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warnf("invalid scheduler timezone %q, falling back to Local: %v", tz, err)
		return time.Local
	}
	return loc
}

func (r *Registry) Location() *time.Location {
	return r.loc
}

// Register adds a job. Invalid specs and panics are logged and returned; the
// registry stays usable either way.
func (r *Registry) Register(job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("registering job panicked: %v", p)
		}
		if err != nil {
			log.Errorf("scheduler: skipping job: %v", err)
		}
	}()

	name := job.Name()
	spec := job.Spec()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	id, err := r.cron.AddFunc(spec, func() {
		_ = r.run(context.Background(), name)
	})
	if err != nil {
		return fmt.Errorf("invalid spec %q for job %s: %w", spec, name, err)
	}
	r.jobs[name] = &registered{job: job, entryId: id}
	log.Infof("scheduler: registered job %s (%s)", name, spec)
	return nil
}

func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.cron.Start()
	r.started = true
	log.Infof("scheduler started with %d jobs (tz %s)", len(r.jobs), r.loc)
}

// Stop stops triggering jobs and waits for running ones, or until ctx is done.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.mu.Unlock()

	select {
	case <-r.cron.Stop().Done():
		log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		log.Warn("scheduler stop timed out waiting for running jobs")
		return ctx.Err()
	}
}

// Entries lists registered jobs sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.jobs))
	for name, reg := range r.jobs {
		e := r.cron.Entry(reg.entryId)
		entry := Entry{Name: name, Spec: reg.job.Spec(), Next: e.Next, Prev: e.Prev}
		if reg.lastRun != nil {
			last := *reg.lastRun
			entry.LastRun = &last
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// RunNow runs a job synchronously, outside its schedule.
func (r *Registry) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	_, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return r.run(ctx, name)
}

func (r *Registry) run(ctx context.Context, name string) (err error) {
	r.mu.Lock()
	reg := r.jobs[name]
	r.mu.Unlock()

	runId := uuid.NewString()
	logger := log.WithFields(log.Fields{"job": name, "run_id": runId})
	started := time.Now()
	logger.Info("job started")

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
		duration := time.Since(started)
		info := &RunInfo{RunId: runId, Started: started, Duration: duration}
		if err != nil {
			info.Error = err.Error()
			logger.WithField("duration", duration).Errorf("job failed: %v", err)
		} else {
			logger.WithField("duration", duration).Info("job finished")
		}

		r.mu.Lock()
		reg.lastRun = info
		r.mu.Unlock()

		if r.eventBus != nil {
			pubErr := r.eventBus.Publish(event_bus.NewEvent(context.Background(), event_bus.JobFinishedType, event_bus.JobFinished{
				Name:     name,
				RunId:    runId,
				Duration: duration,
				Err:      err,
			}))
			if pubErr != nil {
				logger.Warnf("job finished event not fully processed: %v", pubErr)
			}
		}
	}()

	return reg.job.Run(ctx)
}
