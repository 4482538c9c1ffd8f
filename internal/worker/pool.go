package worker

import (
	"errors"
	"log"
	"sync"
)

var (
	ErrQueueFull   = errors.New("worker queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Pool runs processing tasks on a fixed number of goroutines. Execute never
// blocks: when the queue is full the task is refused.
type Pool struct {
	tasks       chan func()
	workerCount int
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewPool(workerCount, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		tasks:       make(chan func(), queueSize),
		workerCount: workerCount,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop refuses new tasks, lets the workers drain the queue and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) Execute(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(id, task)
	}

	log.Printf("Worker %d shutting down", id)
}

func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: task panicked: %v", id, r)
		}
	}()
	task()
}
