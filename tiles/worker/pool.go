package worker

import (
	"context"
	"errors"
	"sync"
)

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	tasks   chan Task
	quit    chan struct{}
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

type Task struct {
	Ctx  context.Context
	Work func() error
}

func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	p := &Pool{
		tasks: make(chan Task, maxWorkers),
		quit:  make(chan struct{}),
	}
	p.workers.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	defer p.pending.Done()

	var err error
	if task.Ctx != nil && task.Ctx.Err() != nil {
		err = task.Ctx.Err()
	} else {
		err = task.Work()
	}
	if err != nil {
		p.mu.Lock()
		p.errs = append(p.errs, err)
		p.mu.Unlock()
	}
}

// Submit queues a task, blocking while every worker is busy and the queue is full.
func (p *Pool) Submit(task Task) {
	p.pending.Add(1)
	p.tasks <- task
}

// Wait blocks until every submitted task has finished and returns their
// joined errors. The pool can be reused afterwards.
func (p *Pool) Wait() error {
	p.pending.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}

// Shutdown stops the workers. Tasks must not be submitted afterwards.
func (p *Pool) Shutdown() {
	close(p.quit)
	p.workers.Wait()
}
