package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"study_platform_backend/pkg/logger"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pendingKey = "taskqueue:pending"
	delayedKey = "taskqueue:delayed"
)

// Task 入队的任务，Payload 由各处理器自行序列化
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}

// Handler 处理某一类任务，返回错误则按退避策略重试
type Handler func(ctx context.Context, payload json.RawMessage) error

type Options struct {
	Workers     int
	MaxRetries  int
	RetryBase   time.Duration // 第 n 次重试延迟 RetryBase * 2^n
	TaskTimeout time.Duration
}

// Queue 基于 Redis List + ZSet 的进程内任务队列
// 即时任务走 LPUSH/BRPOP，重试任务按到期时间放入 ZSet，由调度协程搬回列表
// FailureHandler 在重试次数耗尽后调用一次
type FailureHandler func(ctx context.Context, payload json.RawMessage, err error)

type Queue struct {
	client     *redis.Client
	opts       Options
	handlers   map[string]Handler
	onFailure  map[string]FailureHandler
	mu         sync.RWMutex
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

func New(client *redis.Client, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Minute
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}
	return &Queue{
		client:    client,
		opts:      opts,
		handlers:  make(map[string]Handler),
		onFailure: make(map[string]FailureHandler),
	}
}

// Register 注册任务处理器，必须在 Start 之前调用
func (q *Queue) Register(taskType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

// RegisterFailure 注册重试耗尽后的回调
func (q *Queue) RegisterFailure(taskType string, h FailureHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFailure[taskType] = h
}

// Enqueue 立即入队
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	task := Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   raw,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, pendingKey, data).Err(); err != nil {
		return "", err
	}
	return task.ID, nil
}

// Start 启动工作协程和延迟调度协程
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.wg.Add(1)
	go q.scheduler(ctx)

	logger.Log.Info("Task queue started", zap.Int("workers", q.opts.Workers))
}

// Stop 停止接收新任务并等待在途任务完成
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	logger.Log.Info("Task queue stopped")
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := q.client.BRPop(ctx, 5*time.Second, pendingKey).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			logger.Log.Error("Task queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			logger.Log.Error("Invalid task payload dropped", zap.Error(err))
			continue
		}

		q.process(ctx, &task, id)
	}
}

func (q *Queue) process(ctx context.Context, task *Task, workerID int) {
	q.mu.RLock()
	handler, ok := q.handlers[task.Type]
	q.mu.RUnlock()
	if !ok {
		logger.Log.Error("No handler for task type", zap.String("type", task.Type), zap.String("task_id", task.ID))
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, q.opts.TaskTimeout)
	defer cancel()

	start := time.Now()
	err := handler(taskCtx, task.Payload)
	if err == nil {
		logger.Log.Info("Task completed",
			zap.String("type", task.Type),
			zap.String("task_id", task.ID),
			zap.Int("worker", workerID),
			zap.Duration("elapsed", time.Since(start)))
		return
	}

	if task.Retries >= q.opts.MaxRetries {
		logger.Log.Error("Task failed permanently",
			zap.String("type", task.Type),
			zap.String("task_id", task.ID),
			zap.Int("retries", task.Retries),
			zap.Error(err))
		q.mu.RLock()
		failure, hasFailure := q.onFailure[task.Type]
		q.mu.RUnlock()
		if hasFailure {
			failure(context.Background(), task.Payload, err)
		}
		return
	}

	task.Retries++
	delay := q.opts.RetryBase * time.Duration(1<<uint(task.Retries-1))
	logger.Log.Warn("Task failed, scheduling retry",
		zap.String("type", task.Type),
		zap.String("task_id", task.ID),
		zap.Int("attempt", task.Retries),
		zap.Duration("delay", delay),
		zap.Error(err))

	data, merr := json.Marshal(task)
	if merr != nil {
		logger.Log.Error("Failed to marshal retry task", zap.Error(merr))
		return
	}
	score := float64(time.Now().Add(delay).Unix())
	if zerr := q.client.ZAdd(context.Background(), delayedKey, &redis.Z{Score: score, Member: data}).Err(); zerr != nil {
		logger.Log.Error("Failed to schedule retry", zap.Error(zerr))
	}
}

// scheduler 把到期的延迟任务搬回待处理列表
func (q *Queue) scheduler(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := strconv.FormatInt(time.Now().Unix(), 10)
			due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
				Min: "-inf",
				Max: now,
			}).Result()
			if err != nil {
				if ctx.Err() == nil {
					logger.Log.Error("Delayed task scan failed", zap.Error(err))
				}
				continue
			}
			for _, member := range due {
				pipe := q.client.TxPipeline()
				pipe.ZRem(ctx, delayedKey, member)
				pipe.LPush(ctx, pendingKey, member)
				if _, err := pipe.Exec(ctx); err != nil {
					logger.Log.Error("Failed to requeue delayed task", zap.Error(err))
				}
			}
		}
	}
}

// PendingCount 当前待处理任务数，供健康检查使用
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
