// Package dispatch runs the entries of one inbound webhook batch concurrently,
// isolating each entry so a failure or panic in one never reaches its siblings.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Task handles one entry of a batch.
type Task func(ctx context.Context) error

// Config bounds the pool.
type Config struct {
	// Concurrency is the maximum number of tasks of one batch running at once.
	Concurrency int
	// Timeout applies to each task individually.
	Timeout time.Duration
}

// Pool executes batches of tasks. Submitted batches outlive the request that
// produced them and are drained by Stop.
type Pool struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(cfg Config) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{cfg: cfg, ctx: ctx, cancel: cancel}
}

// Run executes tasks and blocks until all have returned. The returned slice
// holds each task's error at its index.
func (p *Pool) Run(ctx context.Context, batch string, tasks []Task) []error {
	results := make([]error, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = p.runTask(ctx, batch, i, task)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Submit runs tasks in the background. It reports false once the pool is stopped.
func (p *Pool) Submit(batch string, tasks []Task) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		log.Warn().Str("batch", batch).Msg("⚠️ Dispatch pool stopped, dropping batch")
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.Run(p.ctx, batch, tasks)
	}()
	return true
}

// Stop refuses new batches and waits for in-flight ones. If ctx expires first,
// running tasks are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		log.Info().Msg("✅ Dispatch pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("dispatch pool stop: %w", ctx.Err())
	}
}

func (p *Pool) runTask(ctx context.Context, batch string, index int, task Task) (err error) {
	taskCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			log.Error().
				Str("batch", batch).
				Int("task", index).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("🔥 Dispatch task panicked")
		}
	}()

	start := time.Now()
	if err = task(taskCtx); err != nil {
		log.Error().Err(err).
			Str("batch", batch).
			Int("task", index).
			Dur("duration", time.Since(start)).
			Msg("❌ Dispatch task failed")
	}
	return err
}
