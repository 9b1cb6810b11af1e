package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"amenityhub/internal/broker"
	"amenityhub/internal/events"
	"amenityhub/internal/metrics"
	"amenityhub/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	relayQueueKey      = "outbox:queue"
	relayDeadLetterKey = "outbox:deadletter"
	recordTimeout      = 5 * time.Second
)

// OutboxStore is the persistence the relay needs.
type OutboxStore interface {
	CreateOutboxMessage(ctx context.Context, msg *models.OutboxMessage) error
	GetOutboxMessage(ctx context.Context, id int64) (*models.OutboxMessage, error)
	GetPendingOutbox(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error)
	UpdateOutboxStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedOutbox(ctx context.Context) ([]models.OutboxMessage, error)
}

// RelayWorker moves outbox messages to the brokers. New messages are handed
// over through redis (or an in-memory channel without redis); the outbox
// table is polled as the durable fallback.
type RelayWorker struct {
	store        OutboxStore
	publisher    broker.Publisher
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan int64
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
	now          func() time.Time
	roll         func() float64
}

func NewRelayWorker(store OutboxStore, publisher broker.Publisher, redisClient *redis.Client,
	retry RetryPolicy, pollInterval time.Duration, batchSize int, logger *zerolog.Logger,
) *RelayWorker {
	retry = retry.withDefaults()
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &RelayWorker{
		store:        store,
		publisher:    publisher,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan int64, 128),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
		now:          time.Now,
		roll:         rand.Float64,
	}
}

// Subscribe attaches Record to every reservation event on bus.
func (w *RelayWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(w.Record, events.AllTypes...)
}

// Record persists event to the outbox and schedules its delivery.
func (w *RelayWorker) Record(event *events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	msg := models.OutboxMessage{
		EventType: event.Type,
		Key:       event.Key,
		Payload:   string(event.Payload),
		Status:    models.OutboxPending,
	}
	if err := w.store.CreateOutboxMessage(ctx, &msg); err != nil {
		return fmt.Errorf("persist outbox message: %w", err)
	}

	if w.redis != nil {
		err := w.redis.LPush(ctx, relayQueueKey, msg.ID).Err()
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Int64("outbox_id", msg.ID).Msg("redis push failed, using memory queue")
	}

	select {
	case w.queue <- msg.ID:
	default:
		w.logger.Warn().Int64("outbox_id", msg.ID).Msg("relay queue full, message left to polling")
	}
	return nil
}

// Start runs the relay loop until ctx is done.
func (w *RelayWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("relay worker started")
	defer w.logger.Info().Msg("relay worker stopped")

	if n := w.reportFailed(ctx); n > 0 {
		w.logger.Warn().Int("failed", n).Msg("outbox holds undelivered events")
	}

	for ctx.Err() == nil {
		if id, ok := w.tryLocalQueue(); ok {
			w.processByID(ctx, id)
			continue
		}
		if id, ok := w.tryRedis(ctx); ok {
			w.processByID(ctx, id)
			continue
		}
		if n := w.pollOnce(ctx); n > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.processByID(ctx, id)
		case <-time.After(w.pollInterval):
		}
	}
}

// pollOnce delivers due messages from the outbox table and returns how many it handled.
func (w *RelayWorker) pollOnce(ctx context.Context) int {
	msgs, err := w.store.GetPendingOutbox(ctx, w.now(), w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("fetch pending outbox")
		}
		return 0
	}
	for i := range msgs {
		w.process(ctx, &msgs[i])
	}
	return len(msgs)
}

func (w *RelayWorker) tryLocalQueue() (int64, bool) {
	select {
	case id := <-w.queue:
		return id, true
	default:
		return 0, false
	}
}

func (w *RelayWorker) tryRedis(ctx context.Context) (int64, bool) {
	if w.redis == nil {
		return 0, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, relayQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		}
		return 0, false
	}
	if len(res) != 2 {
		return 0, false
	}
	var id int64
	if err := json.Unmarshal([]byte(res[1]), &id); err != nil {
		w.logger.Warn().Err(err).Str("value", res[1]).Msg("decode relay queue entry")
		return 0, false
	}
	return id, true
}

// processByID reloads the message so one already delivered by polling is not sent twice.
func (w *RelayWorker) processByID(ctx context.Context, id int64) {
	msg, err := w.store.GetOutboxMessage(ctx, id)
	if err != nil {
		w.logger.Warn().Err(err).Int64("outbox_id", id).Msg("load outbox message")
		return
	}
	if msg.Status != models.OutboxPending && msg.Status != models.OutboxRetry {
		return
	}
	if msg.NextRetryAt != nil && msg.NextRetryAt.After(w.now()) {
		return
	}
	w.process(ctx, msg)
}

func (w *RelayWorker) process(ctx context.Context, msg *models.OutboxMessage) {
	err := w.publisher.Publish(ctx, broker.Message{
		ID:        msg.ID,
		Type:      msg.EventType,
		Key:       msg.Key,
		Payload:   []byte(msg.Payload),
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		w.retryOrFail(ctx, msg, err)
		return
	}

	if err := w.store.UpdateOutboxStatus(ctx, msg.ID, models.OutboxCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("outbox_id", msg.ID).Msg("mark outbox completed")
	}
	metrics.IncOutbox("published")
}

func (w *RelayWorker) retryOrFail(ctx context.Context, msg *models.OutboxMessage, cause error) {
	attempt := msg.RetryCount + 1
	if !w.retryPolicy.ShouldRetry(attempt) {
		if err := w.store.UpdateOutboxStatus(ctx, msg.ID, models.OutboxFailed, cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("outbox_id", msg.ID).Msg("mark outbox failed")
		}
		w.pushDeadLetter(ctx, msg)
		w.logger.Error().Err(cause).Int64("outbox_id", msg.ID).Str("event", msg.EventType).Msg("event dropped to dead letter")
		metrics.IncOutbox("failed")
		w.reportFailed(ctx)
		return
	}

	next := w.now().Add(w.retryPolicy.Delay(attempt, w.roll()))
	if err := w.store.UpdateOutboxStatus(ctx, msg.ID, models.OutboxRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("outbox_id", msg.ID).Msg("mark outbox retry")
	}
	w.logger.Warn().Err(cause).Int64("outbox_id", msg.ID).Int("attempt", attempt).Time("next_retry_at", next).Msg("event delivery failed")
	metrics.IncOutbox("retry")
}

// reportFailed refreshes the failed-messages gauge and returns the count, or -1.
func (w *RelayWorker) reportFailed(ctx context.Context) int {
	failed, err := w.store.GetFailedOutbox(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("count failed outbox messages")
		return -1
	}
	metrics.SetOutboxFailed(len(failed))
	return len(failed)
}

func (w *RelayWorker) pushDeadLetter(ctx context.Context, msg *models.OutboxMessage) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		w.logger.Error().Err(err).Int64("outbox_id", msg.ID).Msg("encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, relayDeadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("outbox_id", msg.ID).Msg("dead letter push")
	}
}
