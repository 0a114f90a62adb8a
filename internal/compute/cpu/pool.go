package cpu

import (
	"context"
	"sync"
)

// RowJob runs fn over the half-open row range [Lo, Hi).
type RowJob struct {
	Lo, Hi int
	Run    func(lo, hi int) error
	// Result channel - receives exactly one RowResult when the job is done
	ResultChan chan RowResult
}

// RowResult contains the result of a RowJob
type RowResult struct {
	Lo, Hi int
	Error  error
}

// WorkerPool manages goroutines that execute kernel row ranges
type WorkerPool struct {
	jobQueue chan RowJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new pool with the given number of workers
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &WorkerPool{
		jobQueue: make(chan RowJob, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// SubmitJob submits a job to the pool
// Returns true if job was submitted successfully, false if queue is full
func (p *WorkerPool) SubmitJob(job RowJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// SubmitJobBlocking submits a job and blocks until it's queued.
// Returns false if the pool is shutting down.
func (p *WorkerPool) SubmitJobBlocking(job RowJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// worker is the worker goroutine that processes row jobs
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			result := RowResult{Lo: job.Lo, Hi: job.Hi}
			result.Error = job.Run(job.Lo, job.Hi)

			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers. Queued jobs that have not started are dropped.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// GetQueueLength returns the current number of jobs in the queue
func (p *WorkerPool) GetQueueLength() int {
	return len(p.jobQueue)
}

// ForRows splits [0, rows) into contiguous bands, runs fn on each band in the pool and
// returns the first error. It blocks until every band has finished.
func (p *WorkerPool) ForRows(rows int, fn func(lo, hi int) error) error {
	if rows <= 0 {
		return nil
	}
	bands := p.workers * 4
	if bands > rows {
		bands = rows
	}
	step := (rows + bands - 1) / bands

	results := make(chan RowResult, bands)
	submitted := 0
	for lo := 0; lo < rows; lo += step {
		hi := min(lo+step, rows)
		if !p.SubmitJobBlocking(RowJob{Lo: lo, Hi: hi, Run: fn, ResultChan: results}) {
			break
		}
		submitted++
	}

	var first error
	for range submitted {
		select {
		case r := <-results:
			if r.Error != nil && first == nil {
				first = r.Error
			}
		case <-p.ctx.Done():
			return context.Canceled
		}
	}
	if submitted*step < rows && first == nil {
		return context.Canceled
	}
	return first
}
