package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task types dispatched by the registration flow.
const (
	TypeStaffAlert  = "staff_alert"
	TypeParentEmail = "parent_email"
)

// Task is a unit of background work. Payload must be safe to share across goroutines.
type Task struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a task of a single type.
type Handler func(context.Context, Task) error

// Config configures the worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Dispatcher routes tasks to per-type handlers on a fixed pool of workers.
// Failed tasks are retried with linear backoff up to MaxRetries.
type Dispatcher struct {
	handlers map[string]Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
}

// NewDispatcher builds an idle dispatcher. Register handlers before Start.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers:   make(map[string]Handler),
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		tasks:      make(chan Task, cfg.BufferSize),
	}
}

// Register binds a handler to a task type, replacing any previous one.
func (d *Dispatcher) Register(taskType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[taskType] = h
}

// Start launches the workers. Subsequent calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.started = true
	d.logger.Info("dispatcher started", zap.Int("workers", d.workers))
}

// Stop cancels the workers and waits for in-flight tasks to return.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.started = false
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// Enqueue schedules a task without blocking. It fails when the buffer is full,
// the dispatcher is stopped, or no handler is registered for the type.
func (d *Dispatcher) Enqueue(taskType string, payload interface{}) (string, error) {
	return d.enqueue(Task{ID: uuid.NewString(), Type: taskType, Payload: payload})
}

func (d *Dispatcher) enqueue(task Task) (string, error) {
	d.mu.RLock()
	started := d.started
	_, known := d.handlers[task.Type]
	d.mu.RUnlock()

	if !started {
		return "", fmt.Errorf("dispatcher not started")
	}
	if !known {
		return "", fmt.Errorf("no handler for task type %q", task.Type)
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}
	select {
	case d.tasks <- task:
		return task.ID, nil
	default:
		return "", fmt.Errorf("dispatcher queue full")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case task := <-d.tasks:
			d.process(task)
		}
	}
}

func (d *Dispatcher) process(task Task) {
	d.mu.RLock()
	h := d.handlers[task.Type]
	d.mu.RUnlock()

	err := h(d.ctx, task)
	if err == nil {
		return
	}
	task.Attempt++
	fields := []zap.Field{zap.String("task_id", task.ID), zap.String("type", task.Type), zap.Int("attempt", task.Attempt), zap.Error(err)}
	if task.Attempt > d.maxRetries {
		d.logger.Error("task exhausted retries", fields...)
		return
	}
	d.logger.Warn("task failed, retrying", fields...)

	delay := d.retryDelay * time.Duration(task.Attempt)
	go func(t Task) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-d.ctx.Done():
		case <-timer.C:
			if _, err := d.enqueue(t); err != nil {
				d.logger.Error("requeue task", zap.String("task_id", t.ID), zap.Error(err))
			}
		}
	}(task)
}
