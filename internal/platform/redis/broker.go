package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phrazzld/moodboard-api/internal/task"
)

// promoteBatch bounds how many due jobs one promotion moves.
const promoteBatch = 100

// promoteScript moves due members of the delayed set (KEYS[1]) onto the ready
// list (KEYS[2]). ARGV[1] is the current time in Unix milliseconds.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

// Broker is a task.Broker on Redis lists with at-least-once delivery.
type Broker struct {
	client     *redis.Client
	ready      string
	delayed    string
	processing string
	logger     *slog.Logger
	now        func() time.Time
}

var (
	_ task.Broker    = (*Broker)(nil)
	_ task.Recoverer = (*Broker)(nil)
)

// NewBroker creates a broker whose keys start with prefix. consumer names this
// process's processing list and must be unique among live workers.
func NewBroker(client *redis.Client, prefix, consumer string, logger *slog.Logger) *Broker {
	return &Broker{
		client:     client,
		ready:      prefix + ":ready",
		delayed:    prefix + ":delayed",
		processing: prefix + ":processing:" + consumer,
		logger:     logger.With(slog.String("component", "redis_broker")),
		now:        time.Now,
	}
}

// Enqueue implements task.Broker.
func (b *Broker) Enqueue(ctx context.Context, job *task.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := b.client.LPush(ctx, b.ready, data).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue implements task.Broker.
func (b *Broker) Dequeue(ctx context.Context, timeout time.Duration) (*task.Job, error) {
	raw, err := b.client.BRPopLPush(ctx, b.ready, b.processing, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}

	var job task.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// An undecodable envelope can never be handled; drop it so it does
		// not come back on every Recover.
		b.logger.Error("dropping malformed job envelope",
			slog.String("envelope", raw),
			slog.String("error", err.Error()))
		if rerr := b.client.LRem(ctx, b.processing, 1, raw).Err(); rerr != nil {
			return nil, fmt.Errorf("remove malformed job: %w", rerr)
		}
		return nil, nil
	}

	job.Attempt++
	job.Receipt = raw
	return &job, nil
}

// Ack implements task.Broker.
func (b *Broker) Ack(ctx context.Context, job *task.Job) error {
	if err := b.client.LRem(ctx, b.processing, 1, job.Receipt).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// Retry implements task.Broker. The delivery is removed from the processing
// list and the updated envelope added to the delayed set in one transaction.
func (b *Broker) Retry(ctx context.Context, job *task.Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	due := b.now().Add(delay).UnixMilli()

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, b.processing, 1, job.Receipt)
		pipe.ZAdd(ctx, b.delayed, &redis.Z{Score: float64(due), Member: string(data)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule retry of job %s: %w", job.ID, err)
	}
	return nil
}

// Promote moves delayed jobs whose due time has passed back to the ready list
// and returns how many were moved.
func (b *Broker) Promote(ctx context.Context) (int, error) {
	now := strconv.FormatInt(b.now().UnixMilli(), 10)
	n, err := promoteScript.Run(ctx, b.client, []string{b.delayed, b.ready}, now, promoteBatch).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}
	return n, nil
}

// RunPromoter calls Promote every interval until ctx is cancelled. Promotion
// errors are logged and retried on the next tick.
func (b *Broker) RunPromoter(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for {
			n, err := b.Promote(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Warn("failed to promote delayed jobs", slog.String("error", err.Error()))
				}
				break
			}
			if n > 0 {
				b.logger.Debug("promoted delayed jobs", slog.Int("count", n))
			}
			if n < promoteBatch {
				break
			}
		}
	}
}

// Recover implements task.Recoverer by moving everything left in this
// consumer's processing list back to the ready list.
func (b *Broker) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := b.client.RPopLPush(ctx, b.processing, b.ready).Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover processing list: %w", err)
		}
		n++
	}
}
