package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"amenityhub/internal/broker"
	"amenityhub/internal/database"
	"amenityhub/internal/events"
	"amenityhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []broker.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg broker.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func recordEvent(t *testing.T, w *RelayWorker) {
	t.Helper()
	event, err := events.NewJSONEvent(events.EventReservationCreated, map[string]string{"reservation_id": "r1"})
	require.NoError(t, err)
	event.Key = "gym"
	require.NoError(t, w.Record(&event))
}

func TestRelayDeliversRecordedEvent(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	w := NewRelayWorker(db, pub, nil, RetryPolicy{}, time.Second, 10, nil)

	recordEvent(t, w)
	id, ok := w.tryLocalQueue()
	require.True(t, ok, "expected message in local queue")
	w.processByID(context.Background(), id)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, "gym", pub.msgs[0].Key)
	assert.Equal(t, events.EventReservationCreated, pub.msgs[0].Type)
	assert.JSONEq(t, `{"reservation_id":"r1"}`, string(pub.msgs[0].Payload))

	msg, err := db.GetOutboxMessage(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxCompleted, msg.Status)
	assert.Nil(t, msg.NextRetryAt)

	// a second hand-over of the same id is ignored
	w.processByID(context.Background(), id)
	assert.Equal(t, 1, pub.count())
}

func TestRelayRetry(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	w := NewRelayWorker(db, pub, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Minute}, time.Second, 10, nil)

	recordEvent(t, w)
	id, _ := w.tryLocalQueue()
	w.processByID(context.Background(), id)

	msg, err := db.GetOutboxMessage(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxRetry, msg.Status)
	assert.Equal(t, 1, msg.RetryCount)
	require.NotNil(t, msg.NextRetryAt)
	assert.True(t, msg.NextRetryAt.After(time.Now()))

	// not due yet
	assert.Zero(t, w.pollOnce(context.Background()))

	pub.err = nil
	w.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, w.pollOnce(context.Background()))
	assert.Equal(t, 1, pub.count())
}

func TestRelayDeadLetter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	db := newTestDB(t)
	pub := &fakePublisher{err: errors.New("fatal")}
	w := NewRelayWorker(db, pub, client, RetryPolicy{MaxRetries: 1}, time.Second, 10, nil)

	recordEvent(t, w)
	id, ok := w.tryRedis(context.Background())
	require.True(t, ok, "expected message on the redis queue")
	w.processByID(context.Background(), id)

	msg, err := db.GetOutboxMessage(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxFailed, msg.Status)

	dead, err := mr.List(relayDeadLetterKey)
	require.NoError(t, err)
	assert.Len(t, dead, 1)
	assert.Equal(t, 1, w.reportFailed(context.Background()))
}

func TestRelayStartDrainsOutbox(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	w := NewRelayWorker(db, pub, nil, RetryPolicy{}, 10*time.Millisecond, 10, nil)

	bus := events.NewEventBus()
	w.Subscribe(bus)
	require.NoError(t, bus.PublishJSON(events.EventReservationCancelled, map[string]string{"id": "r1"}))
	require.NoError(t, bus.PublishJSON(events.EventReservationExpired, map[string]string{"id": "r2"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	pending, err := db.GetPendingOutbox(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	if d := policy.NextDelay(1); d != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d)
	}
	if d := policy.NextDelay(2); d != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d)
	}
	if d := policy.NextDelay(5); d != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d)
	}
	if d := (RetryPolicy{}).NextDelay(0); d != time.Second {
		t.Fatalf("zero policy expected 1s, got %s", d)
	}
}

func TestRetryPolicyJitterAndLimit(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: 10 * time.Second, Jitter: 0.2}.withDefaults()

	assert.True(t, policy.ShouldRetry(1))
	assert.True(t, policy.ShouldRetry(2))
	assert.False(t, policy.ShouldRetry(3))

	assert.Equal(t, 8*time.Second, policy.Delay(1, 0))
	assert.Equal(t, 10*time.Second, policy.Delay(1, 0.5))
	assert.Equal(t, 20*time.Second, policy.Delay(2, 0.5))
	assert.InDelta(t, float64(12*time.Second), float64(policy.Delay(1, 0.999999)), float64(time.Millisecond))

	wide := RetryPolicy{Jitter: 3}.withDefaults()
	assert.Equal(t, 0.5, wide.Jitter)
	assert.Equal(t, 5, wide.MaxRetries)
	assert.Equal(t, time.Second, wide.Delay(1, 0), "2s backoff spread by half")

	flat := RetryPolicy{InitialDelay: time.Second}
	assert.Equal(t, time.Second, flat.Delay(1, 0.9), "no jitter configured")
}
