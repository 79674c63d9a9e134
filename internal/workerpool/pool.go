package workerpool

import (
	"context"
	"log/slog"
	"sync"
)

// Task 任务函数
type Task func()

// Pool 固定大小的 Worker Pool
// 连接读循环把需要 I/O 的工作丢进来，避免阻塞
type Pool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// New 创建 Worker Pool
func New(workers, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    slog.Default(),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Worker pool started", "workers", workers, "queueSize", queueSize)
	return pool
}

// worker 工作协程
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}

			// 执行任务，捕获 panic
			func() {
				defer func() {
					if r := recover(); r != nil {
						p.logger.Error("Task panic recovered", "workerId", id, "panic", r)
					}
				}()
				task()
			}()
		}
	}
}

// Submit 提交任务，队列满时阻塞直到有空位或池已关闭
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	}
}

// TrySubmit 尝试提交任务，队列满时立即返回 false
func (p *Pool) TrySubmit(task Task) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Shutdown 优雅关闭，等待已入队任务完成
func (p *Pool) Shutdown() {
	p.cancel()
	close(p.taskQueue)
	p.wg.Wait()
	p.logger.Info("Worker pool shutdown completed")
}
