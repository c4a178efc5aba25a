package worker

import (
	"context"
	"marketplace/internal/pkg/events"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventTask struct {
	Event events.Event
	Retry int // 重试次数
}

// WorkerPool 领域事件异步投递
// 业务事务提交后入队，投递失败进入重试队列，超过最大次数记入死信日志
type WorkerPool struct {
	TaskQueue  chan EventTask
	RetryQueue chan EventTask // 重试队列
	Sink       events.Sink
	WorkerNum  int
	MaxRetry   int           // 最大重试次数
	RetryDelay time.Duration // 第 n 次重试延迟 n*RetryDelay
	Timeout    time.Duration // 单次投递超时

	metrics *metrics.MetricsCollector
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewWorkerPool(sink events.Sink, workerNum int, bufferSize int, collector *metrics.MetricsCollector) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 1 {
		bufferSize = 2
	}
	return &WorkerPool{
		TaskQueue:  make(chan EventTask, bufferSize),
		RetryQueue: make(chan EventTask, bufferSize/2),
		Sink:       sink,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
		RetryDelay: time.Second,
		Timeout:    5 * time.Second,
		metrics:    collector,
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	logger.Log.Info("event worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止接收新任务，等待队列中的任务处理完毕
// 重试队列中尚未回到主队列的任务会被记入死信
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.TaskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.RetryQueue)
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for task := range p.TaskQueue {
		err := p.processTask(task)
		if err == nil {
			continue
		}
		logger.Log.Warn("failed to deliver event",
			zap.Int("worker", id),
			zap.String("event_id", task.Event.ID),
			zap.String("type", task.Event.Type),
			zap.Int("retry", task.Retry),
			zap.Error(err),
		)

		// 如果未达到最大重试次数，加入重试队列
		if task.Retry < p.MaxRetry {
			task.Retry++
			if !p.enqueueRetry(task) {
				p.logFailedTask(task, err)
			}
			continue
		}
		p.logFailedTask(task, err)
	}
}

func (p *WorkerPool) enqueueRetry(task EventTask) (ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.RetryQueue <- task:
		return true
	default:
		return false
	}
}

func (p *WorkerPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * p.RetryDelay)

		if !p.enqueue(task) {
			p.logFailedTask(task, nil)
		}
	}
}

func (p *WorkerPool) processTask(task EventTask) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()
	return p.Sink.Deliver(ctx, task.Event)
}

func (p *WorkerPool) logFailedTask(task EventTask, err error) {
	p.metrics.EventDropped()
	logger.Log.Error("[DeadLetter] event dropped",
		zap.String("event_id", task.Event.ID),
		zap.String("type", task.Event.Type),
		zap.String("aggregate_id", task.Event.AggregateID),
		zap.Int("retry", task.Retry),
		zap.Error(err),
	)
}

// enqueue 非阻塞入队，已关闭或队列满返回 false
func (p *WorkerPool) enqueue(task EventTask) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.TaskQueue <- task:
		return true
	default:
		return false
	}
}

func (p *WorkerPool) AddTask(task EventTask) {
	if !p.enqueue(task) {
		p.logFailedTask(task, nil)
	}
}

// Dispatch 实现 events.Dispatcher
func (p *WorkerPool) Dispatch(evt events.Event) {
	p.AddTask(EventTask{Event: evt})
}

var _ events.Dispatcher = (*WorkerPool)(nil)
