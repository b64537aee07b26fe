package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FirepowerKit/internal/flowip"

	log "github.com/sirupsen/logrus"
)

// Processor analyzes a single source.
type Processor func(ctx context.Context, src flowip.Source) (*flowip.FileResult, error)

// Job is one queued source and the slot its result goes to.
type Job struct {
	Slot   int
	Source flowip.Source
}

// Result is the outcome of one job.
type Result struct {
	Source  flowip.Source
	File    *flowip.FileResult
	Err     error
	Elapsed time.Duration
}

// Manager runs a Processor over many sources with a fixed pool of workers.
type Manager struct {
	process    Processor
	numWorkers int

	jobs     chan Job
	results  []Result
	workerWg sync.WaitGroup

	doneMu sync.Mutex
	onDone func(Result)
}

// NewManager creates a Manager with up to numWorkers concurrent workers.
func NewManager(numWorkers int, process Processor) *Manager {
	return &Manager{process: process, numWorkers: max(numWorkers, 1)}
}

// OnDone registers fn to be called after each job finishes. Calls are serialized.
func (m *Manager) OnDone(fn func(Result)) {
	m.onDone = fn
}

// Run processes sources and returns one Result per source, in input order.
// When ctx is cancelled no further jobs are dispatched, the processor of a job
// in flight sees the cancelled ctx and may stop early, and Run returns the
// context error alongside the results gathered so far.
func (m *Manager) Run(ctx context.Context, sources []flowip.Source) ([]Result, error) {
	m.results = make([]Result, len(sources))
	if len(sources) == 0 {
		return m.results, nil
	}

	workers := min(m.numWorkers, len(sources))
	m.jobs = make(chan Job, workers)

	m.workerWg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker(ctx, i+1)
	}
	log.Infof("Manager started with %d workers for %d files.", workers, len(sources))

dispatch:
	for i, src := range sources {
		select {
		case <-ctx.Done():
			log.Warn("Termination requested, no more files will be queued.")
			break dispatch
		case m.jobs <- Job{Slot: i, Source: src}:
		}
	}
	close(m.jobs)

	log.Debug("Waiting for workers to finish...")
	m.workerWg.Wait()

	if err := ctx.Err(); err != nil {
		return m.results, fmt.Errorf("analysis interrupted: %w", err)
	}
	return m.results, nil
}

func (m *Manager) worker(ctx context.Context, id int) {
	defer m.workerWg.Done()
	for job := range m.jobs {
		if ctx.Err() != nil {
			m.results[job.Slot] = Result{Source: job.Source, Err: ctx.Err()}
			continue
		}

		log.Debugf("Worker %d picked up %s", id, job.Source.Path)
		start := time.Now()
		file, err := m.process(ctx, job.Source)
		res := Result{Source: job.Source, File: file, Err: err, Elapsed: time.Since(start)}
		m.results[job.Slot] = res

		if err != nil {
			log.Errorf("Failed to process csv-%d (%s): %v", job.Source.Instance, job.Source.Path, err)
		} else {
			log.Infof("Finished processing csv-%d file. Found %d time periods of data in %s.",
				job.Source.Instance, file.Stats.Intervals, res.Elapsed.Round(time.Millisecond))
		}

		if m.onDone != nil {
			m.doneMu.Lock()
			m.onDone(res)
			m.doneMu.Unlock()
		}
	}
}
