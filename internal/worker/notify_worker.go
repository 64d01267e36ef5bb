package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notification is one outgoing operator message.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Attempt   int       `json:"attempt"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliverFunc sends a notification; an error schedules a retry.
type DeliverFunc func(ctx context.Context, n Notification) error

// NotifyWorker delivers notifications off the request path. Redis keeps the
// queue across restarts when configured; otherwise a bounded channel is used.
type NotifyWorker struct {
	deliver       DeliverFunc
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan Notification
	redisQueueKey string
	deadLetterKey string
	popTimeout    time.Duration
	logger        zerolog.Logger

	// after schedules a retry; replaced in tests
	after func(d time.Duration, f func())

	mu          sync.Mutex
	deadLetters []Notification
}

// NewNotifyWorker builds a worker with sane defaults; redisClient may be nil.
func NewNotifyWorker(deliver DeliverFunc, redisClient *redis.Client, retry RetryPolicy, prefix string, logger *zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if prefix == "" {
		prefix = "shareit"
	}

	w := &NotifyWorker{
		deliver:       deliver,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan Notification, 128),
		redisQueueKey: prefix + ":notify:queue",
		deadLetterKey: prefix + ":notify:deadletter",
		popTimeout:    time.Second,
		logger:        zerolog.Nop(),
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	if logger != nil {
		w.logger = logger.With().Str("component", "notify_worker").Logger()
	}
	return w
}

// Enqueue schedules a notification for delivery.
func (w *NotifyWorker) Enqueue(ctx context.Context, kind, text string) error {
	if text == "" {
		return errors.New("notification text is required")
	}
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now(),
	}
	return w.push(ctx, n)
}

func (w *NotifyWorker) push(ctx context.Context, n Notification) error {
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, n); err != nil {
			w.logger.Warn().Err(err).Str("id", n.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- n:
		return nil
	default:
		return fmt.Errorf("notification queue is full, dropped %s", n.ID)
	}
}

// Start launches the delivery loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Bool("redis", w.redis != nil).Msg("notify worker started")
	defer w.logger.Info().Msg("notify worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if n, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &n)
			continue
		}

		if w.redis != nil {
			if n, ok := w.tryRedis(ctx); ok {
				w.processTask(ctx, &n)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case n := <-w.queue:
			w.processTask(ctx, &n)
		}
	}
}

func (w *NotifyWorker) tryLocalQueue() (Notification, bool) {
	select {
	case n := <-w.queue:
		return n, true
	default:
		return Notification{}, false
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (Notification, bool) {
	res, err := w.redis.BRPop(ctx, w.popTimeout, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return Notification{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		// не крутим цикл вхолостую, пока Redis недоступен
		select {
		case <-ctx.Done():
		case <-time.After(w.popTimeout):
		}
		return Notification{}, false
	}
	if len(res) != 2 {
		return Notification{}, false
	}
	var n Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		w.logger.Error().Err(err).Msg("decode redis notification")
		return Notification{}, false
	}
	return n, true
}

func (w *NotifyWorker) processTask(ctx context.Context, n *Notification) {
	if err := w.deliver(ctx, *n); err != nil {
		w.retryOrFail(ctx, n, err)
		return
	}
	w.logger.Debug().Str("id", n.ID).Str("kind", n.Kind).Int("attempt", n.Attempt+1).Msg("notification delivered")
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, n *Notification, cause error) {
	n.Attempt++
	n.LastError = cause.Error()

	if n.Attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).Str("id", n.ID).Str("kind", n.Kind).Int("attempts", n.Attempt).Msg("notification failed permanently")
		w.pushDeadLetter(ctx, *n)
		return
	}

	delay := w.retryPolicy.NextDelay(n.Attempt)
	w.logger.Warn().Err(cause).Str("id", n.ID).Int("attempt", n.Attempt).Dur("retry_in", delay).Msg("notification failed, will retry")

	retry := *n
	w.after(delay, func() {
		if err := w.push(context.Background(), retry); err != nil {
			w.logger.Error().Err(err).Str("id", retry.ID).Msg("requeue notification")
		}
	})
}

func (w *NotifyWorker) pushRedis(ctx context.Context, key string, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, n Notification) {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.deadLetterKey, n)
		if err == nil {
			return
		}
		w.logger.Error().Err(err).Str("id", n.ID).Msg("deadletter push failed")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.deadLetters = append(w.deadLetters, n)
}

// DeadLetters returns notifications that exhausted their retries and could
// not be stored in Redis.
func (w *NotifyWorker) DeadLetters() []Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Notification(nil), w.deadLetters...)
}
