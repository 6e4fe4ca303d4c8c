package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type job func(ctx context.Context)

// pool runs jobs on a fixed set of workers. The jobs channel is unbuffered:
// submit returns once a worker has taken the job, so nothing queues up
// behind a shutdown.
type pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	work    context.Context
	timeout time.Duration
	logger  *slog.Logger
}

// newPool starts workers. Every job runs under a context derived from work
// and bounded by timeout when it is positive.
func newPool(work context.Context, workers int, timeout time.Duration, logger *slog.Logger) *pool {
	if workers <= 0 {
		workers = 1
	}
	p := &pool{jobs: make(chan job), work: work, timeout: timeout, logger: logger}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// submit hands j to a free worker. It gives up, returning false, when ctx
// is done first.
func (p *pool) submit(ctx context.Context, j job) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- j:
		return true
	case <-ctx.Done():
		return false
	}
}

// stop waits for running jobs. No submit may follow it.
func (p *pool) stop() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *pool) run(j job) {
	ctx, cancel := p.work, context.CancelFunc(func() {})
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(p.work, p.timeout)
	}
	defer func() {
		cancel()
		if r := recover(); r != nil {
			p.logger.Error("indexer job panicked", "error", fmt.Sprint(r))
		}
	}()
	j(ctx)
}
